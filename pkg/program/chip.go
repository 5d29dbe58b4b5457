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
package program

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
)

// trace columns: pc, opcode, a..g, multiplicity.
const traceWidth = 10

// Chip serves instruction fetches over the program bus.  Any executor row
// claiming to execute at pc sends (pc, opcode, operands...); this chip
// receives each such tuple with multiplicity equal to the number of fetches
// at that pc.
type Chip struct {
	busIndex bus.Index
	program  *Program
	// fetchCounts[i] is the number of fetches of instruction i.
	fetchCounts []uint32
}

// NewChip constructs a program chip for the given committed image.
func NewChip(busIndex bus.Index, prog *Program) *Chip {
	return &Chip{
		busIndex:    busIndex,
		program:     prog,
		fetchCounts: make([]uint32, prog.Size()),
	}
}

// Name implementation for the chip.Chip interface.
func (p *Chip) Name() string {
	return "program"
}

// Program returns the underlying committed image.
func (p *Chip) Program() *Program {
	return p.program
}

// Fetch returns the instruction at the given pc, recording the fetch for the
// program bus argument.
func (p *Chip) Fetch(pc uint32) (Instruction, error) {
	insn, err := p.program.InstructionAt(pc)
	//
	if err == nil {
		p.fetchCounts[(pc-p.program.pcBase)/p.program.pcStep]++
	}
	//
	return insn, err
}

// CurrentTraceHeight implementation for the chip.Chip interface.  The program
// trace has one row per instruction regardless of usage.
func (p *Chip) CurrentTraceHeight() uint {
	return p.program.Size()
}

// TraceWidth implementation for the chip.Chip interface.
func (p *Chip) TraceWidth() uint {
	return traceWidth
}

// GenerateTrace produces one row per instruction: (pc, opcode, operands...,
// multiplicity).
func (p *Chip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(p.program.Size(), traceWidth)
	//
	for i, insn := range p.program.instructions {
		pc := p.program.pcBase + uint32(i)*p.program.pcStep
		row := trace.Row(uint(i))
		//
		copy(row, busTuple(pc, insn))
		row[traceWidth-1].SetUint64(uint64(p.fetchCounts[i]))
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface: each
// image row receives its fetch tuple with the recorded multiplicity.
func (p *Chip) EmitInteractions(acc *bus.Multiset) {
	for i, insn := range p.program.instructions {
		if count := p.fetchCounts[i]; count != 0 {
			pc := p.program.pcBase + uint32(i)*p.program.pcStep
			acc.Receive(p.busIndex, busTuple(pc, insn), uint64(count))
		}
	}
}

// EmitFetch sends one fetch tuple on behalf of the executor row which
// executed the instruction at pc.
func (p *Chip) EmitFetch(acc *bus.Multiset, pc uint32, insn Instruction) {
	acc.Send(p.busIndex, busTuple(pc, insn), 1)
}

// busTuple constructs the (pc, opcode, a, b, c, d, e, f, g) program bus
// tuple.
func busTuple(pc uint32, insn Instruction) []fr.Element {
	tuple := make([]fr.Element, 9)
	//
	tuple[0].SetUint64(uint64(pc))
	tuple[1].SetUint64(uint64(insn.Opcode))
	copy(tuple[2:], insn.Operands())
	//
	return tuple
}
