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

	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// Phantom discriminants, carried in operand c.
const (
	// phantomNop does nothing.
	phantomNop = iota
	// phantomHintInput moves the next input vector onto the hint stream.
	phantomHintInput
)

// IoExecutor implements the hint/reveal channel: HINTW pops the hint stream
// into a cell, REVEAL publishes a cell to a public-value slot, and PHANTOM
// dispatches on its discriminant.
type IoExecutor struct {
	baseExecutor
}

// NewIo constructs the hint/reveal executor.
func NewIo(env *vm.Environment) *IoExecutor {
	return &IoExecutor{newBaseExecutor("io", env, program.Hintw, program.Reveal, program.Phantom)}
}

// Execute implementation for the vm.Executor interface.
func (p *IoExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	a, b, c, d, e, _, err := wordOperands(insn)
	//
	if err != nil {
		return state, err
	}
	//
	switch insn.Opcode {
	case program.Hintw:
		value, ok := p.env.Streams.PopHint()
		//
		if !ok {
			return state, &vm.ExecutionError{
				Kind:    vm.HintStarvation,
				Pc:      state.Pc,
				Message: "hint stream exhausted",
			}
		}
		//
		p.env.Memory.WriteCell(d, a, value)
	case program.Reveal:
		slotCell := p.env.Memory.ReadCell(d, a)
		value := p.env.Memory.ReadCell(e, b)
		//
		slot, err := machineWord(slotCell, state, "reveal slot [a]_d")
		//
		if err != nil {
			return state, err
		}
		//
		if err := p.env.PublicValues.Reveal(slot, value); err != nil {
			return state, err
		}
	case program.Phantom:
		switch c {
		case phantomNop:
			// nothing to do
		case phantomHintInput:
			if !p.env.Streams.HintInput() {
				return state, &vm.ExecutionError{
					Kind:    vm.HintStarvation,
					Pc:      state.Pc,
					Message: "input stream exhausted",
				}
			}
		default:
			return state, &vm.ExecutionError{
				Kind:    vm.ProgramError,
				Pc:      state.Pc,
				Message: fmt.Sprintf("unknown phantom discriminant %d", c),
			}
		}
	}
	//
	return p.finish(insn, state, nextPc(p.env, state.Pc)), nil
}
