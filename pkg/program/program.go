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

// Package program holds the committed immutable program image and the chip
// serving (pc → instruction) lookups over the program bus.
package program

import (
	"fmt"

	"github.com/consensys/go-zkvm/pkg/hasher"
)

// DefaultPcStep is the program-counter increment between consecutive
// instructions.
const DefaultPcStep uint32 = 4

// Program is an immutable committed image mapping program counters to
// instructions.  The image is fixed at proving-key time; its commitment binds
// every segment proof to one program.
type Program struct {
	instructions []Instruction
	// pcBase is the pc of the first instruction (the entry point).
	pcBase uint32
	// pcStep is the pc distance between consecutive instructions.
	pcStep uint32
}

// New constructs a program from an instruction sequence with the default pc
// base and step.
func New(instructions ...Instruction) *Program {
	return NewWithBase(0, DefaultPcStep, instructions...)
}

// NewWithBase constructs a program whose first instruction sits at pcBase and
// whose instructions are pcStep apart.
func NewWithBase(pcBase uint32, pcStep uint32, instructions ...Instruction) *Program {
	if pcStep == 0 {
		panic("program pc step cannot be zero")
	}
	//
	return &Program{instructions, pcBase, pcStep}
}

// PcBase returns the entry-point pc of this program.
func (p *Program) PcBase() uint32 {
	return p.pcBase
}

// PcStep returns the pc distance between consecutive instructions.
func (p *Program) PcStep() uint32 {
	return p.pcStep
}

// Size returns the number of instructions in this program.
func (p *Program) Size() uint {
	return uint(len(p.instructions))
}

// InstructionAt returns the instruction at the given pc, or an error if pc is
// misaligned or outside the image.
func (p *Program) InstructionAt(pc uint32) (Instruction, error) {
	if pc < p.pcBase || (pc-p.pcBase)%p.pcStep != 0 {
		return Instruction{}, fmt.Errorf("misaligned pc %#x (base %#x, step %d)", pc, p.pcBase, p.pcStep)
	}
	//
	index := (pc - p.pcBase) / p.pcStep
	//
	if uint(index) >= uint(len(p.instructions)) {
		return Instruction{}, fmt.Errorf("pc %#x outside program image", pc)
	}
	//
	return p.instructions[index], nil
}

// Commit computes the commitment of this program image.  The commitment
// becomes part of the verifying key.
func (p *Program) Commit(h hasher.Hasher) hasher.Digest {
	digest := h.Hash(busTuple(p.pcBase, Instruction{}))
	//
	for i, insn := range p.instructions {
		pc := p.pcBase + uint32(i)*p.pcStep
		digest = h.Compress(digest, h.Hash(busTuple(pc, insn)))
	}
	//
	return digest
}
