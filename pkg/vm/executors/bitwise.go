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

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip/bitwise"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// wordBytes is the number of byte lookups per bitwise instruction: operands
// are machine words processed one byte at a time against the lookup table.
const wordBytes = 4

// byteRequest journals one lookup made against the bitwise table, so that the
// executor sends exactly the tuples the table receives.
type byteRequest struct {
	x, y, z uint8
	op      bitwise.Op
}

// BitwiseExecutor implements byte-level XOR and AND over machine words:
// [a]_d = [b]_e op [c]_f, one table lookup per byte.
type BitwiseExecutor struct {
	baseExecutor
	requests []byteRequest
}

// NewBitwise constructs the bitwise executor.
func NewBitwise(env *vm.Environment) *BitwiseExecutor {
	return &BitwiseExecutor{
		baseExecutor: newBaseExecutor("bitwise", env, program.Xor, program.And),
	}
}

// Execute implementation for the vm.Executor interface.
func (p *BitwiseExecutor) Execute(insn program.Instruction, state vm.ExecutionState) (vm.ExecutionState, error) {
	a, b, c, d, e, f, err := wordOperands(insn)
	//
	if err != nil {
		return state, err
	}
	//
	xCell := p.env.Memory.ReadCell(e, b)
	yCell := p.env.Memory.ReadCell(f, c)
	//
	x, err := machineWord(xCell, state, "bitwise operand [b]_e")
	//
	if err != nil {
		return state, err
	}
	//
	y, err := machineWord(yCell, state, "bitwise operand [c]_f")
	//
	if err != nil {
		return state, err
	}
	//
	var z uint32
	//
	for i := 0; i < wordBytes; i++ {
		xb, yb := uint8(x>>(8*i)), uint8(y>>(8*i))
		//
		var (
			zb uint8
			op bitwise.Op
		)
		//
		if insn.Opcode == program.Xor {
			zb, op = p.env.Bitwise.RequestXor(xb, yb), bitwise.Xor
		} else {
			zb, op = p.env.Bitwise.RequestAnd(xb, yb), bitwise.And
		}
		//
		z |= uint32(zb) << (8 * i)
		p.requests = append(p.requests, byteRequest{xb, yb, zb, op})
	}
	//
	var result fr.Element
	//
	result.SetUint64(uint64(z))
	p.env.Memory.WriteCell(d, a, result)
	//
	return p.finish(insn, state, nextPc(p.env, state.Pc)), nil
}

// EmitInteractions implementation for the chip.Interactor interface: the
// execution chain and fetches of the base executor, plus one lookup send per
// byte request.
func (p *BitwiseExecutor) EmitInteractions(acc *bus.Multiset) {
	p.baseExecutor.EmitInteractions(acc)
	//
	for _, request := range p.requests {
		acc.Send(p.env.Bitwise.BusIndex(),
			bus.BitwiseTuple(request.x, request.y, request.z, uint8(request.op)), 1)
	}
}

// machineWord narrows a memory cell expected to hold a machine word.
func machineWord(value fr.Element, state vm.ExecutionState, what string) (uint32, error) {
	if !value.IsUint64() || value.Uint64() > 0xffffffff {
		return 0, &vm.ExecutionError{
			Kind:    vm.ProgramError,
			Pc:      state.Pc,
			Message: fmt.Sprintf("%s holds %s, not a machine word", what, value.String()),
		}
	}
	//
	return uint32(value.Uint64()), nil
}
