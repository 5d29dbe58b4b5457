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
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/chip/bitwise"
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm/memory"
)

// Executor owns a closed set of opcodes.  Execute runs one instruction,
// advancing the clock by exactly its declared delta (memory operations plus
// one for the fetch itself) and recording whatever its trace rows will need.
// Executors are chips: after a segment completes, each generates its own
// trace and emits its execution, program and memory bus tuples.
type Executor interface {
	chip.TraceGenerator
	chip.Interactor
	// Opcodes returns the opcode set this executor owns.  Ownership is
	// fixed at configuration time; overlap is a configuration error.
	Opcodes() []program.Opcode
	// Execute runs one owned instruction from the given state, returning
	// the next state.
	Execute(insn program.Instruction, state ExecutionState) (ExecutionState, error)
}

// Environment is everything a chip set closes over when its executors are
// constructed: the shared periphery chips and the per-segment memory
// controller and streams.
type Environment struct {
	Config       *Config
	Program      *program.Chip
	Memory       *memory.Controller
	Streams      *Streams
	PublicValues *PublicValuesChip
	RangeChecker *rangecheck.Chip
	Bitwise      *bitwise.Chip
}

// ChipSetBuilder constructs the executor set for one segment against the
// given environment.  The builder is invoked afresh per segment, so executors
// may capture per-segment state freely.
type ChipSetBuilder func(env *Environment) []Executor
