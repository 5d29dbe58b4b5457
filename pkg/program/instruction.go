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
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Opcode is a dense non-negative integer drawn from the global opcode space.
// The space is partitioned across executors by the class offsets below; each
// executor owns a closed set of opcodes declared at configuration time.
type Opcode uint32

// Opcode class offsets.  Executors register their opcodes relative to these.
const (
	// SystemOffset holds opcodes handled by the execution controller itself.
	SystemOffset Opcode = 0x000
	// AluOffset holds field-arithmetic opcodes.
	AluOffset Opcode = 0x100
	// MemoryOffset holds load/store opcodes.
	MemoryOffset Opcode = 0x200
	// ControlOffset holds control-flow opcodes.
	ControlOffset Opcode = 0x300
	// IoOffset holds the hint/reveal channel opcodes.
	IoOffset Opcode = 0x400
	// BitwiseOffset holds byte-level bitwise opcodes.
	BitwiseOffset Opcode = 0x500
)

// The opcode catalogue.
const (
	// Terminate halts execution; operand c is the exit code.
	Terminate = SystemOffset + iota
	// Phantom is a no-op carrying a discriminant in operand c, used for
	// debugging aids and hint-stream management.
	Phantom
)

// Arithmetic opcodes: [a]_d = [b]_e op [c]_f, with address space 0 operands
// read as immediates.
const (
	Add = AluOffset + iota
	Sub
	Mul
)

// Memory opcodes.
const (
	// Loadw reads the cell at (e, b) and writes it to (d, a).
	Loadw = MemoryOffset + iota
	// Storew reads the cell at (d, a) and writes it to (e, b).
	Storew
	// Loadb reads a block of f cells at (e, b) and writes them to (d, a).
	Loadb
	// Storeb reads a block of f cells at (d, a) and writes them to (e, b).
	Storeb
)

// Control-flow opcodes.
const (
	// Jal writes pc + step to (d, a) and jumps to operand b.
	Jal = ControlOffset + iota
	// Bne jumps to operand c iff [a]_d ≠ [b]_e.
	Bne
	// Beq jumps to operand c iff [a]_d = [b]_e.
	Beq
)

// Hint/reveal channel opcodes.
const (
	// Hintw pops one value from the hint stream and writes it to (d, a).
	Hintw = IoOffset + iota
	// Reveal publishes [b]_e to public-value slot [a]_d (slot read as
	// immediate when d = 0).
	Reveal
)

// Bitwise opcodes: byte-level [a]_d = [b]_e op [c]_f via the lookup table.
const (
	Xor = BitwiseOffset + iota
	And
)

// Instruction is a seven-operand record.  Operands are field-valued; the
// interpretation of each operand belongs to the owning executor, though by
// convention d, e, f carry address spaces and a, b, c carry pointers or
// immediates.
type Instruction struct {
	Opcode Opcode
	A, B, C, D, E, F, G fr.Element
}

// NewInstruction constructs an instruction from machine-word operands,
// filling any trailing operands with zero.
func NewInstruction(opcode Opcode, operands ...uint64) Instruction {
	if len(operands) > 7 {
		panic(fmt.Sprintf("instruction has at most 7 operands (got %d)", len(operands)))
	}
	//
	var insn Instruction
	//
	insn.Opcode = opcode
	fields := []*fr.Element{&insn.A, &insn.B, &insn.C, &insn.D, &insn.E, &insn.F, &insn.G}
	//
	for i, v := range operands {
		fields[i].SetUint64(v)
	}
	//
	return insn
}

// Operands returns the seven operands in order.
func (p *Instruction) Operands() []fr.Element {
	return []fr.Element{p.A, p.B, p.C, p.D, p.E, p.F, p.G}
}

func (p Instruction) String() string {
	return fmt.Sprintf("%#x(%s, %s, %s, %s, %s, %s, %s)", uint32(p.Opcode),
		p.A.String(), p.B.String(), p.C.String(), p.D.String(), p.E.String(), p.F.String(), p.G.String())
}
