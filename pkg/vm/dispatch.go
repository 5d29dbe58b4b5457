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
package vm

import (
	"github.com/consensys/go-zkvm/pkg/program"
)

// unowned marks opcodes without an executor.
const unowned int32 = -1

// dispatchTable is a dense opcode lookup built once per segment from the chip
// set, avoiding any per-instruction search in the hot loop.
type dispatchTable struct {
	executors []Executor
	// table[opcode] indexes executors, or is unowned.
	table []int32
}

// newDispatchTable indexes the executors by owned opcode.  Overlapping
// ownership is a configuration error.
func newDispatchTable(executors []Executor) (*dispatchTable, error) {
	var maxOpcode program.Opcode
	//
	for _, executor := range executors {
		for _, opcode := range executor.Opcodes() {
			maxOpcode = max(maxOpcode, opcode)
		}
	}
	//
	table := make([]int32, maxOpcode+1)
	//
	for i := range table {
		table[i] = unowned
	}
	//
	for i, executor := range executors {
		for _, opcode := range executor.Opcodes() {
			if owner := table[opcode]; owner != unowned {
				return nil, configurationError("opcode %#x owned by both %s and %s",
					uint32(opcode), executors[owner].Name(), executor.Name())
			}
			//
			table[opcode] = int32(i)
		}
	}
	//
	return &dispatchTable{executors, table}, nil
}

// find returns the executor owning the given opcode, or nil.
func (p *dispatchTable) find(opcode program.Opcode) Executor {
	if uint(opcode) >= uint(len(p.table)) || p.table[opcode] == unowned {
		return nil
	}
	//
	return p.executors[p.table[opcode]]
}
