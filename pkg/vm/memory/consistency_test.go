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
package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
	"github.com/consensys/go-zkvm/pkg/hasher"
)

const (
	testPointerBits   = 29
	testTimestampBits = 29
	testRangeBits     = 17
)

// newVolatileSetup wires a controller, adapter inventory, volatile boundary
// and range checker the way a volatile-mode chipset does.
func newVolatileSetup() (*Controller, *VolatileBoundary, *rangecheck.Chip) {
	checker := rangecheck.New(bus.RangeCheck, testRangeBits)
	controller := NewController(bus.Memory, Equipartition{}, 1,
		testPointerBits, testTimestampBits, checker)
	boundary := NewVolatileBoundary(bus.Memory, testPointerBits, testPointerBits, checker)
	//
	return controller, boundary, checker
}

// emitAll folds the interactions of every given chip into one multiset.
func emitAll(interactors ...chip.Interactor) *bus.Multiset {
	acc := bus.NewMultiset()
	//
	for _, interactor := range interactors {
		interactor.EmitInteractions(acc)
	}
	//
	return acc
}

func assertClosed(t *testing.T, acc *bus.Multiset) {
	t.Helper()
	//
	if !acc.IsEmpty() {
		for _, failure := range acc.Failures() {
			t.Error(failure)
		}
	}
}

func TestVolatile_BusClosure(t *testing.T) {
	controller, boundary, checker := newVolatileSetup()
	//
	controller.WriteBlock(1, 0, vals(1, 2, 3, 4))
	controller.ReadBlock(1, 0, 2)
	controller.WriteCell(1, 6, vals(42)[0])
	controller.ReadBlock(1, 4, 4)
	controller.ReadCell(0, 1234)
	//
	boundary.Finalize(controller.Finalize(1))
	//
	interactors := []chip.Interactor{controller, boundary, checker}
	//
	for _, adapter := range controller.Adapters().Chips() {
		interactors = append(interactors, adapter)
	}
	//
	assertClosed(t, emitAll(interactors...))
}

func TestVolatile_SortedBoundaryTrace(t *testing.T) {
	controller, boundary, _ := newVolatileSetup()
	// Touch (1,5) before (1,0); the boundary must still sort them.
	controller.WriteCell(1, 5, vals(99)[0])
	controller.WriteCell(1, 0, vals(10)[0])
	//
	boundary.Finalize(controller.Finalize(1))
	//
	trace := boundary.GenerateTrace()
	require.Equal(t, uint(2), boundary.CurrentTraceHeight())
	// Row 0 is (1,0)=10, row 1 is (1,5)=99.
	assert.Equal(t, vals(1)[0], trace.Get(0, 1))
	assert.Equal(t, vals(0)[0], trace.Get(0, 2))
	assert.Equal(t, vals(10)[0], trace.Get(0, 3))
	assert.Equal(t, vals(1)[0], trace.Get(1, 1))
	assert.Equal(t, vals(5)[0], trace.Get(1, 2))
	assert.Equal(t, vals(99)[0], trace.Get(1, 3))
}

func TestVolatile_ZeroRewriteStaysInBoundary(t *testing.T) {
	controller, boundary, _ := newVolatileSetup()
	// A cell written then re-written to zero is still touched.
	controller.WriteCell(1, 7, vals(13)[0])
	controller.WriteCell(1, 7, vals(0)[0])
	//
	final := controller.Finalize(1)
	require.Len(t, final, 1)
	assert.True(t, final[ChunkKey{1, 7}].Values[0].IsZero())
	//
	boundary.Finalize(final)
	assert.Equal(t, uint(1), boundary.CurrentTraceHeight())
}

func TestVolatile_ReplayConsistency(t *testing.T) {
	controller, _, _ := newVolatileSetup()
	//
	controller.WriteBlock(1, 0, vals(1, 2, 3, 4))
	controller.ReadBlock(1, 0, 4)
	controller.WriteBlock(1, 2, vals(7, 8))
	controller.ReadBlock(1, 0, 8)
	//
	final := controller.Finalize(1)
	//
	assert.NoError(t, ReplayCheck(Equipartition{}, 1, controller.AccessLog(), final))
}

func TestReplay_DetectsCorruptedRead(t *testing.T) {
	controller, _, _ := newVolatileSetup()
	//
	controller.WriteCell(1, 0, vals(5)[0])
	controller.ReadCell(1, 0)
	//
	final := controller.Finalize(1)
	// Corrupt the logged read in place.
	log := append([]LogEntry(nil), controller.AccessLog()...)
	log[1].Data = vals(6)
	//
	assert.Error(t, ReplayCheck(Equipartition{}, 1, log, final))
}

func TestPersistent_BusClosure(t *testing.T) {
	checker := rangecheck.New(bus.RangeCheck, testRangeBits)
	initial := Equipartition{{1, 0}: vals(1, 2, 3, 4, 5, 6, 7, 8)}
	controller := NewController(bus.Memory, initial, 8,
		testPointerBits, testTimestampBits, checker)
	merkle := NewMerkleChip(hasher.Blake2b{}, 3, 10, 8, initial)
	boundary := NewPersistentBoundary(bus.Memory, 8, initial, merkle)
	//
	controller.ReadBlock(1, 0, 4)
	controller.WriteBlock(1, 4, vals(40, 41))
	controller.WriteBlock(1, 32, vals(9, 9, 9, 9, 9, 9, 9, 9))
	controller.ReadBlock(1, 0, 8)
	//
	boundary.Finalize(controller.Finalize(8))
	//
	interactors := []chip.Interactor{controller, boundary, checker}
	//
	for _, adapter := range controller.Adapters().Chips() {
		interactors = append(interactors, adapter)
	}
	//
	assertClosed(t, emitAll(interactors...))
}

func TestPersistent_RootTransition(t *testing.T) {
	h := hasher.Blake2b{}
	initial := Equipartition{{1, 0}: vals(1, 2, 3, 4, 5, 6, 7, 8)}
	checker := rangecheck.New(bus.RangeCheck, testRangeBits)
	controller := NewController(bus.Memory, initial, 8,
		testPointerBits, testTimestampBits, checker)
	merkle := NewMerkleChip(h, 3, 10, 8, initial)
	boundary := NewPersistentBoundary(bus.Memory, 8, initial, merkle)
	//
	initialRoot := merkle.InitialRoot()
	//
	controller.WriteBlock(1, 0, vals(100, 100, 100, 100))
	final := controller.Finalize(8)
	boundary.Finalize(final)
	//
	assert.NotEqual(t, initialRoot, merkle.FinalRoot())
	// The final root must equal a tree built directly over the final image.
	image := Equipartition{}
	//
	for key, values := range initial {
		image[key] = values
	}
	//
	for key, chunk := range final {
		image[key] = chunk.Values
	}
	//
	rebuilt := NewMerkleTree(h, 3, 10, 8, image)
	assert.Equal(t, merkle.FinalRoot(), rebuilt.Root())
}

func TestPersistent_UntouchedRunKeepsRoot(t *testing.T) {
	h := hasher.Blake2b{}
	initial := Equipartition{{1, 1}: vals(9, 8, 7, 6, 5, 4, 3, 2)}
	merkle := NewMerkleChip(h, 3, 10, 8, initial)
	//
	merkle.Finalize(TimestampedEquipartition{})
	assert.Equal(t, merkle.InitialRoot(), merkle.FinalRoot())
}

func TestPersistent_OverriddenBoundaryHeight(t *testing.T) {
	checker := rangecheck.New(bus.RangeCheck, testRangeBits)
	initial := Equipartition{}
	controller := NewController(bus.Memory, initial, 8,
		testPointerBits, testTimestampBits, checker)
	merkle := NewMerkleChip(hasher.Blake2b{}, 3, 10, 8, initial)
	boundary := NewPersistentBoundary(bus.Memory, 8, initial, merkle)
	//
	controller.WriteBlock(1, 0, vals(1, 2, 3, 4, 5, 6, 7, 8))
	boundary.Finalize(controller.Finalize(8))
	//
	boundary.OverrideTraceHeight(4)
	assert.Equal(t, uint(4), boundary.CurrentTraceHeight())
	//
	trace := boundary.GenerateTrace()
	assert.Equal(t, uint(4), trace.Height())
	// The single real row keeps its valid flag; the rest is padding.
	assert.Equal(t, vals(1)[0], trace.Get(0, 0))
	//
	padding := trace.Get(1, 0)
	assert.True(t, padding.IsZero())
	// Shrinking below the touched-chunk count is a programming error.
	assert.Panics(t, func() { boundary.OverrideTraceHeight(0) })
}

func TestMerkle_ZeroSubtreesNeverMaterialised(t *testing.T) {
	h := hasher.Blake2b{}
	// One touched chunk materialises exactly one path of nodes.
	tree := NewMerkleTree(h, 3, 10, 8, Equipartition{{1, 0}: vals(1, 0, 0, 0, 0, 0, 0, 0)})
	assert.Equal(t, tree.Height()+1, tree.NodeCount())
	// An empty tree materialises nothing at all.
	empty := NewMerkleTree(h, 3, 10, 8, Equipartition{})
	assert.Equal(t, uint(0), empty.NodeCount())
	assert.False(t, empty.Root().IsZero())
}

func TestMerkle_OrderIndependentRoot(t *testing.T) {
	h := hasher.Blake2b{}
	a := NewMerkleTree(h, 3, 10, 8, Equipartition{})
	b := NewMerkleTree(h, 3, 10, 8, Equipartition{})
	//
	a.Update(ChunkKey{1, 0}, vals(1, 2, 3, 4, 5, 6, 7, 8))
	a.Update(ChunkKey{2, 5}, vals(9, 9, 9, 9, 9, 9, 9, 9))
	//
	b.Update(ChunkKey{2, 5}, vals(9, 9, 9, 9, 9, 9, 9, 9))
	b.Update(ChunkKey{1, 0}, vals(1, 2, 3, 4, 5, 6, 7, 8))
	//
	assert.Equal(t, a.Root(), b.Root())
	// Versions share untouched subtrees, so the arena stays sparse.
	assert.Less(t, a.NodeCount(), uint(4*(a.Height()+1)))
}

func TestController_IdentitySpaceRead(t *testing.T) {
	controller, _, _ := newVolatileSetup()
	//
	before := controller.Timestamp()
	value := controller.ReadCell(0, 1234)
	//
	assert.Equal(t, vals(1234)[0], value)
	// Identity reads touch neither the clock, the log nor the memory bus.
	assert.Equal(t, before, controller.Timestamp())
	require.Empty(t, controller.AccessLog())
	assert.True(t, emitAll(controller).IsEmpty())
	// Peeking follows the same convention, cell by cell.
	assert.Equal(t, vals(10, 11, 12, 13), controller.PeekBlock(0, 10, 4))
}

func TestController_RejectsMalformedAccesses(t *testing.T) {
	controller, _, _ := newVolatileSetup()
	//
	assert.Panics(t, func() { controller.WriteBlock(0, 0, vals(1)) })
	assert.Panics(t, func() { controller.ReadBlock(1, 0, 3) })
	assert.Panics(t, func() { controller.ReadBlock(1, 0, 64) })
	assert.Panics(t, func() { controller.ReadBlock(1, 2, 4) })
}
