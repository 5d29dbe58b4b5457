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
package executors

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// AluExecutor implements field arithmetic over cells: [a]_d = [b]_e op [c]_f,
// with either source read as an immediate when its address space is 0.  Every
// instruction costs two reads, one write and the fetch.
type AluExecutor struct {
	baseExecutor
}

// NewAlu constructs the arithmetic executor.
func NewAlu(env *vm.Environment) *AluExecutor {
	return &AluExecutor{newBaseExecutor("alu", env, program.Add, program.Sub, program.Mul)}
}

// Execute implementation for the vm.Executor interface.
func (p *AluExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	a, b, c, d, e, f, err := wordOperands(insn)
	//
	if err != nil {
		return state, err
	}
	//
	x := p.env.Memory.ReadCell(e, b)
	y := p.env.Memory.ReadCell(f, c)
	//
	var z fr.Element
	//
	switch insn.Opcode {
	case program.Add:
		z.Add(&x, &y)
	case program.Sub:
		z.Sub(&x, &y)
	case program.Mul:
		z.Mul(&x, &y)
	default:
		panic(fmt.Sprintf("alu given opcode %#x", uint32(insn.Opcode)))
	}
	//
	p.env.Memory.WriteCell(d, a, z)
	//
	return p.finish(insn, state, nextPc(p.env, state.Pc)), nil
}

// wordOperands narrows the six addressing operands of a three-operand
// instruction.
func wordOperands(insn program.Instruction) (a, b, c, d, e, f uint32, err error) {
	operands := []fr.Element{insn.A, insn.B, insn.C, insn.D, insn.E, insn.F}
	names := []string{"a", "b", "c", "d", "e", "f"}
	words := make([]uint32, len(operands))
	//
	for i := range operands {
		if words[i], err = word(operands[i], names[i]); err != nil {
			return 0, 0, 0, 0, 0, 0, err
		}
	}
	//
	return words[0], words[1], words[2], words[3], words[4], words[5], nil
}
