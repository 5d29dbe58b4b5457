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

// SystemExecutor implements TERMINATE.  The instruction does nothing beyond
// its fetch tick; the controller loop observes the opcode and halts after this
// row closes the execution chain.
type SystemExecutor struct {
	baseExecutor
}

// NewSystem constructs the system executor.
func NewSystem(env *vm.Environment) *SystemExecutor {
	return &SystemExecutor{newBaseExecutor("system", env, program.Terminate)}
}

// Execute implementation for the vm.Executor interface.
func (p *SystemExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	if _, err := word(insn.C, "exit code"); err != nil {
		return state, err
	}
	//
	return p.finish(insn, state, nextPc(p.env, state.Pc)), nil
}
