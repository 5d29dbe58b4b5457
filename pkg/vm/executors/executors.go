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

// Package executors provides the baseline executor set: field arithmetic,
// loads and stores at every supported width, control flow, byte-level bitwise
// operations and the hint/reveal channel.  Each executor owns a closed opcode
// set, performs its memory operations through the shared controller, and
// chains the execution bus row by row.
package executors

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// executor trace columns: valid, pc, timestamp, next pc, next timestamp,
// opcode, then the seven operands.
const executorTraceWidth = 13

// execRecord captures one executed instruction: the state chain link plus the
// instruction itself (re-sent on the program bus as the fetch).
type execRecord struct {
	pc            uint32
	timestamp     uint32
	nextPc        uint32
	nextTimestamp uint32
	insn          program.Instruction
}

// baseExecutor carries the bookkeeping every executor shares: identity, owned
// opcodes, the environment and the executed-instruction log driving trace
// generation and bus emission.
type baseExecutor struct {
	name    string
	opcodes []program.Opcode
	env     *vm.Environment
	records []execRecord
}

func newBaseExecutor(name string, env *vm.Environment, opcodes ...program.Opcode) baseExecutor {
	return baseExecutor{name: name, opcodes: opcodes, env: env}
}

// Name implementation for the chip.Chip interface.
func (p *baseExecutor) Name() string {
	return p.name
}

// Opcodes implementation for the vm.Executor interface.
func (p *baseExecutor) Opcodes() []program.Opcode {
	return p.opcodes
}

// CurrentTraceHeight implementation for the chip.Chip interface.
func (p *baseExecutor) CurrentTraceHeight() uint {
	return uint(len(p.records))
}

// TraceWidth implementation for the chip.Chip interface.
func (p *baseExecutor) TraceWidth() uint {
	return executorTraceWidth
}

// finish closes out one instruction: the final clock tick accounts for the
// fetch, and the resulting state chains into the next row.
func (p *baseExecutor) finish(insn program.Instruction, state vm.ExecutionState,
	nextPc uint32) vm.ExecutionState {
	//
	p.env.Memory.IncrementTimestamp()
	next := vm.ExecutionState{Pc: nextPc, Timestamp: p.env.Memory.Timestamp()}
	p.records = append(p.records, execRecord{state.Pc, state.Timestamp, next.Pc, next.Timestamp, insn})
	//
	return next
}

// GenerateTrace produces one row per executed instruction: (valid, pc,
// timestamp, next pc, next timestamp, opcode, operands...).
func (p *baseExecutor) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(uint(len(p.records)), executorTraceWidth)
	//
	for i, record := range p.records {
		row := uint(i)
		//
		trace.SetUint64(row, 0, 1)
		trace.SetUint64(row, 1, uint64(record.pc))
		trace.SetUint64(row, 2, uint64(record.timestamp))
		trace.SetUint64(row, 3, uint64(record.nextPc))
		trace.SetUint64(row, 4, uint64(record.nextTimestamp))
		trace.SetUint64(row, 5, uint64(record.insn.Opcode))
		//
		for j, operand := range record.insn.Operands() {
			trace.Set(row, 6+uint(j), operand)
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface: each row
// receives its entry state, sends its exit state and sends its fetch on the
// program bus.
func (p *baseExecutor) EmitInteractions(acc *bus.Multiset) {
	for _, record := range p.records {
		acc.Receive(bus.Execution, bus.ExecutionTuple(record.pc, record.timestamp), 1)
		acc.Send(bus.Execution, bus.ExecutionTuple(record.nextPc, record.nextTimestamp), 1)
		p.env.Program.EmitFetch(acc, record.pc, record.insn)
	}
}

// word narrows a field operand known by construction to be a machine word;
// anything else is a malformed program.
func word(operand fr.Element, what string) (uint32, error) {
	if !operand.IsUint64() || operand.Uint64() > 0xffffffff {
		return 0, &vm.ExecutionError{
			Kind:    vm.ProgramError,
			Message: fmt.Sprintf("%s operand %s not a machine word", what, operand.String()),
		}
	}
	//
	return uint32(operand.Uint64()), nil
}

// nextPc returns the fall-through program counter.
func nextPc(env *vm.Environment, pc uint32) uint32 {
	return pc + env.Program.Program().PcStep()
}
