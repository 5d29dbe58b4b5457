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
package executors_test

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/hasher"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
	"github.com/consensys/go-zkvm/pkg/vm/executors"
	"github.com/consensys/go-zkvm/pkg/vm/memory"
)

func elem(v uint64) fr.Element {
	var e fr.Element
	//
	e.SetUint64(v)
	//
	return e
}

// runProgram executes one single-segment volatile program under the standard
// chip set and returns the finalised segment.
func runProgram(t *testing.T, streams *vm.Streams, instructions ...program.Instruction) *vm.Segment {
	t.Helper()
	//
	cfg := vm.DefaultConfig()
	prog := program.New(instructions...)
	//
	seg, err := vm.NewSegment(&cfg, hasher.Blake2b{}, prog, nil, streams,
		executors.Standard(), vm.ExecutionState{Pc: prog.PcBase(), Timestamp: memory.InitialTimestamp + 1})
	require.NoError(t, err)
	require.NoError(t, seg.Run())
	//
	_, err = seg.Finalize()
	require.NoError(t, err)
	//
	return seg
}

// cell reads (space, pointer) from the finalised segment's store.
func cell(seg *vm.Segment, space, pointer uint32) fr.Element {
	return seg.Environment().Memory.PeekCell(space, pointer)
}

func TestAlu_Operations(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		// [1]_0 = 7 + 5, [1]_1 = 7 - 5, [1]_2 = 7 * 5
		program.NewInstruction(program.Add, 0, 7, 5, 1, 0, 0),
		program.NewInstruction(program.Sub, 1, 7, 5, 1, 0, 0),
		program.NewInstruction(program.Mul, 2, 7, 5, 1, 0, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, elem(12), cell(seg, 1, 0))
	assert.Equal(t, elem(2), cell(seg, 1, 1))
	assert.Equal(t, elem(35), cell(seg, 1, 2))
}

func TestAlu_FieldWraparound(t *testing.T) {
	// 0 - 1 wraps to the field modulus minus one.
	seg := runProgram(t, vm.NewStreams(),
		program.NewInstruction(program.Sub, 0, 0, 1, 1, 0, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	var expected fr.Element
	//
	expected.SetUint64(1)
	expected.Neg(&expected)
	assert.Equal(t, expected, cell(seg, 1, 0))
}

func TestLoadStore_CellMoves(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		// immediate 9 into (1, 4), then copy (1, 4) into (2, 0)
		program.NewInstruction(program.Storew, 9, 4, 0, 0, 1, 0),
		program.NewInstruction(program.Loadw, 0, 4, 0, 2, 1, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, elem(9), cell(seg, 1, 4))
	assert.Equal(t, elem(9), cell(seg, 2, 0))
}

func TestLoadStore_BlockMove(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		// populate (1, 8) and (1, 9), then move the 2-block to (1, 16)
		program.NewInstruction(program.Storew, 3, 8, 0, 0, 1, 0),
		program.NewInstruction(program.Storew, 4, 9, 0, 0, 1, 0),
		program.NewInstruction(program.Loadb, 16, 8, 0, 1, 1, 2),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, elem(3), cell(seg, 1, 16))
	assert.Equal(t, elem(4), cell(seg, 1, 17))
	// Moving a 2-block over two cell-sized writes exercises the adapters.
	acc := bus.NewMultiset()
	seg.EmitInteractions(acc)
	assert.True(t, acc.IsEmpty())
}

func TestBranch_JalLinksAndJumps(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		// link pc+step into (1, 50) and jump over the next instruction
		program.NewInstruction(program.Jal, 50, 8, 0, 1, 0, 0),
		program.NewInstruction(program.Storew, 1, 0, 0, 0, 1, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, uint64(2), seg.Instret())
	assert.Equal(t, elem(4), cell(seg, 1, 50))
	// the skipped store never ran
	skipped := cell(seg, 1, 0)
	assert.True(t, skipped.IsZero())
}

func TestBranch_ConditionalLoop(t *testing.T) {
	// Increment (1, 0) until it reaches 3.
	seg := runProgram(t, vm.NewStreams(),
		program.NewInstruction(program.Add, 0, 0, 1, 1, 1, 0),
		program.NewInstruction(program.Bne, 0, 3, 0, 1, 0, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, elem(3), cell(seg, 1, 0))
	// three iterations of (add, bne) plus the halt
	assert.Equal(t, uint64(7), seg.Instret())
}

func TestBranch_BeqTakenOnEqual(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		// 5 = 5, so the store is skipped
		program.NewInstruction(program.Beq, 5, 5, 8, 0, 0, 0),
		program.NewInstruction(program.Storew, 1, 0, 0, 0, 1, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, uint64(2), seg.Instret())
	//
	skipped := cell(seg, 1, 0)
	assert.True(t, skipped.IsZero())
}

func TestBitwise_XorAnd(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		program.NewInstruction(program.Xor, 0, 0xF0F0, 0x0FF0, 1, 0, 0),
		program.NewInstruction(program.And, 1, 0xF0F0, 0x0FF0, 1, 0, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	assert.Equal(t, elem(0xFF00), cell(seg, 1, 0))
	assert.Equal(t, elem(0x00F0), cell(seg, 1, 1))
	// every byte lookup the executor sent must be received by the table
	acc := bus.NewMultiset()
	seg.EmitInteractions(acc)
	//
	for _, failure := range acc.Failures() {
		t.Error(failure)
	}
}

func TestBitwise_RejectsNonWordOperand(t *testing.T) {
	cfg := vm.DefaultConfig()
	// (1, 0) holds a field element beyond 32 bits
	prog := program.New(
		program.NewInstruction(program.Mul, 0, 1<<20, 1<<20, 1, 0, 0),
		program.NewInstruction(program.Xor, 1, 0, 0, 1, 1, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	seg, err := vm.NewSegment(&cfg, hasher.Blake2b{}, prog, nil, vm.NewStreams(),
		executors.Standard(), vm.ExecutionState{Pc: 0, Timestamp: 1})
	require.NoError(t, err)
	//
	err = seg.Run()
	//
	var execErr *vm.ExecutionError
	//
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, vm.ProgramError, execErr.Kind)
}

func TestIo_PhantomUnknownDiscriminant(t *testing.T) {
	cfg := vm.DefaultConfig()
	prog := program.New(
		program.NewInstruction(program.Phantom, 0, 0, 99),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	seg, err := vm.NewSegment(&cfg, hasher.Blake2b{}, prog, nil, vm.NewStreams(),
		executors.Standard(), vm.ExecutionState{Pc: 0, Timestamp: 1})
	require.NoError(t, err)
	//
	err = seg.Run()
	//
	var execErr *vm.ExecutionError
	//
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, vm.ProgramError, execErr.Kind)
}

func TestExecutors_ClockAdvancesEveryInstruction(t *testing.T) {
	seg := runProgram(t, vm.NewStreams(),
		program.NewInstruction(program.Phantom),
		program.NewInstruction(program.Phantom),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	// no memory operations, so each instruction costs exactly its fetch tick
	assert.Equal(t, uint32(4), seg.Connector().EndState().Timestamp)
}

func TestExecutors_TraceShape(t *testing.T) {
	cfg := vm.DefaultConfig()
	prog := program.New(
		program.NewInstruction(program.Add, 0, 1, 2, 1, 0, 0),
		program.NewInstruction(program.Terminate, 0, 0, 0),
	)
	//
	seg, err := vm.NewSegment(&cfg, hasher.Blake2b{}, prog, nil, vm.NewStreams(),
		executors.Standard(), vm.ExecutionState{Pc: 0, Timestamp: 1})
	require.NoError(t, err)
	require.NoError(t, seg.Run())
	//
	proof, err := seg.Finalize()
	require.NoError(t, err)
	//
	var alu *vm.ChipTrace
	//
	for i := range proof.Traces {
		if proof.Traces[i].Name == "alu" {
			alu = &proof.Traces[i]
		}
	}
	// one valid row: (valid, pc, t, next pc, next t, opcode, operands...)
	require.NotNil(t, alu)
	require.Equal(t, uint(1), alu.Trace.Height())
	assert.Equal(t, elem(1), alu.Trace.Get(0, 0))
	assert.Equal(t, elem(0), alu.Trace.Get(0, 1))
	assert.Equal(t, elem(1), alu.Trace.Get(0, 2))
	assert.Equal(t, elem(4), alu.Trace.Get(0, 3))
	assert.Equal(t, elem(uint64(program.Add)), alu.Trace.Get(0, 5))
}
