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
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// LoadStoreExecutor moves cells between memory locations.  LOADW and STOREW
// move a single cell; LOADB and STOREB move an aligned block whose
// power-of-two length sits in operand f.  Every instruction costs one read,
// one write and the fetch.
type LoadStoreExecutor struct {
	baseExecutor
}

// NewLoadStore constructs the load/store executor.
func NewLoadStore(env *vm.Environment) *LoadStoreExecutor {
	return &LoadStoreExecutor{newBaseExecutor("load_store", env,
		program.Loadw, program.Storew, program.Loadb, program.Storeb)}
}

// Execute implementation for the vm.Executor interface.
func (p *LoadStoreExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	a, b, _, d, e, f, err := wordOperands(insn)
	//
	if err != nil {
		return state, err
	}
	// Source and destination by opcode: loads read (e, b) into (d, a),
	// stores read (d, a) into (e, b).
	srcSpace, srcPtr, dstSpace, dstPtr := e, b, d, a
	//
	if insn.Opcode == program.Storew || insn.Opcode == program.Storeb {
		srcSpace, srcPtr, dstSpace, dstPtr = d, a, e, b
	}
	//
	switch insn.Opcode {
	case program.Loadw, program.Storew:
		value := p.env.Memory.ReadCell(srcSpace, srcPtr)
		p.env.Memory.WriteCell(dstSpace, dstPtr, value)
	case program.Loadb, program.Storeb:
		values := p.env.Memory.ReadBlock(srcSpace, srcPtr, f)
		p.env.Memory.WriteBlock(dstSpace, dstPtr, values)
	}
	//
	return p.finish(insn, state, nextPc(p.env, state.Pc)), nil
}
