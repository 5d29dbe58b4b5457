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
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// BranchExecutor implements control flow.  JAL links pc plus step into (d, a)
// and jumps to operand b; BNE and BEQ compare [a]_d against [b]_e and jump to
// operand c on inequality respectively equality.
type BranchExecutor struct {
	baseExecutor
}

// NewBranch constructs the control-flow executor.
func NewBranch(env *vm.Environment) *BranchExecutor {
	return &BranchExecutor{newBaseExecutor("branch", env, program.Jal, program.Bne, program.Beq)}
}

// Execute implementation for the vm.Executor interface.
func (p *BranchExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	a, b, c, d, e, _, err := wordOperands(insn)
	//
	if err != nil {
		return state, err
	}
	//
	target := nextPc(p.env, state.Pc)
	//
	switch insn.Opcode {
	case program.Jal:
		var link fr.Element
		//
		link.SetUint64(uint64(target))
		p.env.Memory.WriteCell(d, a, link)
		target = b
	case program.Bne, program.Beq:
		x := p.env.Memory.ReadCell(d, a)
		y := p.env.Memory.ReadCell(e, b)
		taken := x.Equal(&y) == (insn.Opcode == program.Beq)
		//
		if taken {
			target = c
		}
	}
	//
	return p.finish(insn, state, target), nil
}
