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
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// jsonProgram is the on-disk form of a program image.
type jsonProgram struct {
	PcBase       uint32            `json:"pc_base"`
	PcStep       uint32            `json:"pc_step"`
	Instructions []jsonInstruction `json:"instructions"`
}

// jsonInstruction carries the opcode plus decimal-encoded operands.
type jsonInstruction struct {
	Opcode   uint32   `json:"opcode"`
	Operands []string `json:"operands"`
}

// FromJson parses a program image from its JSON encoding.
func FromJson(data []byte) (*Program, error) {
	var encoded jsonProgram
	//
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, err
	} else if encoded.PcStep == 0 {
		return nil, fmt.Errorf("program pc step cannot be zero")
	}
	//
	instructions := make([]Instruction, len(encoded.Instructions))
	//
	for i, insn := range encoded.Instructions {
		if len(insn.Operands) > 7 {
			return nil, fmt.Errorf("instruction %d has %d operands", i, len(insn.Operands))
		}
		//
		instructions[i].Opcode = Opcode(insn.Opcode)
		fields := []*fr.Element{
			&instructions[i].A, &instructions[i].B, &instructions[i].C, &instructions[i].D,
			&instructions[i].E, &instructions[i].F, &instructions[i].G,
		}
		//
		for j, operand := range insn.Operands {
			var value big.Int
			//
			if _, ok := value.SetString(operand, 10); !ok {
				return nil, fmt.Errorf("instruction %d: invalid operand %q", i, operand)
			}
			//
			fields[j].SetBigInt(&value)
		}
	}
	//
	return NewWithBase(encoded.PcBase, encoded.PcStep, instructions...), nil
}

// ToJson produces the JSON encoding of a program image.
func ToJson(prog *Program) ([]byte, error) {
	encoded := jsonProgram{
		PcBase:       prog.pcBase,
		PcStep:       prog.pcStep,
		Instructions: make([]jsonInstruction, len(prog.instructions)),
	}
	//
	for i, insn := range prog.instructions {
		operands := make([]string, 7)
		//
		for j, operand := range insn.Operands() {
			operands[j] = operand.String()
		}
		//
		encoded.Instructions[i] = jsonInstruction{uint32(insn.Opcode), operands}
	}
	//
	return json.MarshalIndent(encoded, "", "  ")
}
