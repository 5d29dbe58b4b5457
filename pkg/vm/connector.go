// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package vm

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
)

// connector trace columns: start pc, start timestamp, end pc, end timestamp,
// is_terminate, exit code.
const connectorTraceWidth = 6

// ConnectorChip binds a segment's boundary states into public values and
// seeds the execution bus: it sends the start state and receives the end
// state, so the bus closes iff exactly one chain of executor rows links the
// two.
type ConnectorChip struct {
	executionBus bus.Index
	start        ExecutionState
	end          ExecutionState
	terminated   bool
	exitCode     uint32
	// begun and ended guard the call protocol.
	begun bool
	ended bool
}

// NewConnectorChip constructs an unseeded connector.
func NewConnectorChip(executionBus bus.Index) *ConnectorChip {
	return &ConnectorChip{executionBus: executionBus}
}

// Name implementation for the chip.Chip interface.
func (p *ConnectorChip) Name() string {
	return "connector"
}

// Begin seeds the segment's start state.  Called exactly once.
func (p *ConnectorChip) Begin(state ExecutionState) {
	if p.begun {
		panic("connector already begun")
	}
	//
	p.start = state
	p.begun = true
}

// End settles the segment's end state, with the termination flag and exit
// code when the segment ends on a halt.  Called exactly once.
func (p *ConnectorChip) End(state ExecutionState, terminated bool, exitCode uint32) {
	if !p.begun {
		panic("connector ended before begun")
	} else if p.ended {
		panic("connector already ended")
	}
	//
	p.end = state
	p.terminated = terminated
	p.exitCode = exitCode
	p.ended = true
}

// Start returns the seeded start state.
func (p *ConnectorChip) Start() ExecutionState {
	return p.start
}

// EndState returns the settled end state.
func (p *ConnectorChip) EndState() ExecutionState {
	return p.end
}

// IsTerminated reports whether the segment ended on a halt.
func (p *ConnectorChip) IsTerminated() bool {
	return p.terminated
}

// ExitCode returns the halt code; meaningful only when terminated.
func (p *ConnectorChip) ExitCode() uint32 {
	return p.exitCode
}

// CurrentTraceHeight implementation for the chip.Chip interface: the
// connector is a single row.
func (p *ConnectorChip) CurrentTraceHeight() uint {
	return 1
}

// TraceWidth implementation for the chip.Chip interface.
func (p *ConnectorChip) TraceWidth() uint {
	return connectorTraceWidth
}

// GenerateTrace produces the single connector row.
func (p *ConnectorChip) GenerateTrace() *chip.Matrix {
	if !p.ended {
		panic("connector not ended")
	}
	//
	trace := chip.NewMatrix(1, connectorTraceWidth)
	//
	for i, value := range p.PublicValues() {
		trace.Set(0, uint(i), value)
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.
func (p *ConnectorChip) EmitInteractions(acc *bus.Multiset) {
	if !p.ended {
		panic("connector not ended")
	}
	//
	acc.Send(p.executionBus, bus.ExecutionTuple(p.start.Pc, p.start.Timestamp), 1)
	acc.Receive(p.executionBus, bus.ExecutionTuple(p.end.Pc, p.end.Timestamp), 1)
}

// PublicValues returns the connector's contribution to the segment public
// values: (start_pc, start_timestamp, end_pc, end_timestamp, is_terminate,
// exit_code).
func (p *ConnectorChip) PublicValues() []fr.Element {
	values := bus.Tuple(uint64(p.start.Pc), uint64(p.start.Timestamp),
		uint64(p.end.Pc), uint64(p.end.Timestamp), 0, uint64(p.exitCode))
	//
	if p.terminated {
		values[4].SetUint64(1)
	}
	//
	return values
}
