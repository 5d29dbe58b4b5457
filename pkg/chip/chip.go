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
package chip

import (
	"github.com/consensys/go-zkvm/pkg/bus"
)

// Chip is an executor or periphery component owning one AIR and a
// trace-generation routine.  During execution a chip accumulates records;
// once a segment completes, its trace matrix is generated from those records
// independently of every other chip.
type Chip interface {
	// Name returns a stable identifier for this chip, used in diagnostics
	// and segmentation decisions.
	Name() string
	// CurrentTraceHeight returns the number of trace rows the records
	// accumulated so far would occupy, before padding to a power of two.
	CurrentTraceHeight() uint
	// TraceWidth returns the number of columns in this chip's trace.
	TraceWidth() uint
}

// TraceGenerator is implemented by chips whose trace can be produced from
// their accumulated records.  Trace generation is pure: records in, matrix
// out.  It is safe to call concurrently across distinct chips.
type TraceGenerator interface {
	Chip
	// GenerateTrace produces this chip's trace matrix, padded to a
	// power-of-two height.
	GenerateTrace() *Matrix
}

// Interactor is implemented by chips participating in one or more bus
// arguments.  EmitInteractions replays every signed tuple this chip's trace
// rows would emit, allowing the bus-closure property to be checked without a
// prover.
type Interactor interface {
	Chip
	// EmitInteractions adds this chip's signed bus tuples to the given
	// accumulator.
	EmitInteractions(acc *bus.Multiset)
}

// Cells returns the total number of trace cells a chip currently occupies.
func Cells(c Chip) uint {
	return c.CurrentTraceHeight() * c.TraceWidth()
}
