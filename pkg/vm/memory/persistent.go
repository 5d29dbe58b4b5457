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
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/hasher"
)

// PersistentBoundary is the memory interface for runs with continuations.
// Memory is chunked; for every chunk touched in the segment, one row receives
// the chunk's initial state at timestamp zero and sends its final state.  The
// companion MerkleChip binds those same chunk values to the initial and final
// roots carried in the segment's public values.
type PersistentBoundary struct {
	memoryBus bus.Index
	chunkSize uint32
	initial   Equipartition
	merkle    *MerkleChip
	// final snapshot; nil until finalised.
	final      TimestampedEquipartition
	sortedKeys []ChunkKey
	// overriddenHeight, when non-zero, fixes the trace height.
	overriddenHeight uint
}

// NewPersistentBoundary constructs the boundary chip over the given initial
// image, alongside its Merkle companion.
func NewPersistentBoundary(memoryBus bus.Index, chunkSize uint32, initial Equipartition,
	merkle *MerkleChip) *PersistentBoundary {
	//
	return &PersistentBoundary{
		memoryBus: memoryBus,
		chunkSize: chunkSize,
		initial:   initial,
		merkle:    merkle,
	}
}

// Name implementation for the chip.Chip interface.
func (p *PersistentBoundary) Name() string {
	return "boundary"
}

// Finalize settles the final memory snapshot into this boundary and drives
// the Merkle companion to the final root.
func (p *PersistentBoundary) Finalize(final TimestampedEquipartition) {
	if p.final != nil {
		panic("boundary already finalised")
	}
	//
	p.final = final
	p.sortedKeys = final.SortedKeys()
	p.merkle.Finalize(final)
}

// InitialChunk returns the initial values of the given chunk, all zeros when
// the chunk is absent from the initial image.
func (p *PersistentBoundary) InitialChunk(key ChunkKey) []fr.Element {
	if values, ok := p.initial[key]; ok {
		return values
	}
	//
	return make([]fr.Element, p.chunkSize)
}

// OverrideTraceHeight fixes the trace height ahead of time, as required when
// heights are pinned across proving keys.  Panics if the boundary has already
// outgrown the requested height.
func (p *PersistentBoundary) OverrideTraceHeight(height uint) {
	if p.final != nil && uint(len(p.final)) > height {
		panic(fmt.Sprintf("boundary height %d exceeds override %d", len(p.final), height))
	}
	//
	p.overriddenHeight = height
}

// CurrentTraceHeight implementation for the chip.Chip interface.
func (p *PersistentBoundary) CurrentTraceHeight() uint {
	if p.overriddenHeight != 0 {
		return p.overriddenHeight
	}
	//
	return uint(len(p.final))
}

// TraceWidth implementation for the chip.Chip interface: (valid, space,
// label, final timestamp) followed by the initial and final chunk values.
func (p *PersistentBoundary) TraceWidth() uint {
	return 4 + 2*uint(p.chunkSize)
}

// GenerateTrace produces one row per touched chunk in (space, label) order.
func (p *PersistentBoundary) GenerateTrace() *chip.Matrix {
	if p.final == nil {
		panic("boundary not finalised")
	}
	//
	trace := chip.NewMatrix(p.CurrentTraceHeight(), p.TraceWidth())
	//
	for i, key := range p.sortedKeys {
		chunk := p.final[key]
		row := uint(i)
		//
		trace.SetUint64(row, 0, 1)
		trace.SetUint64(row, 1, uint64(key.Space))
		trace.SetUint64(row, 2, uint64(key.Label))
		trace.SetUint64(row, 3, uint64(chunk.Timestamp))
		//
		for j, value := range p.InitialChunk(key) {
			trace.Set(row, 4+uint(j), value)
		}
		//
		for j, value := range chunk.Values {
			trace.Set(row, 4+uint(p.chunkSize)+uint(j), value)
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.
func (p *PersistentBoundary) EmitInteractions(acc *bus.Multiset) {
	if p.final == nil {
		panic("boundary not finalised")
	}
	//
	for _, key := range p.sortedKeys {
		chunk := p.final[key]
		pointer := key.Label * p.chunkSize
		//
		acc.Receive(p.memoryBus, bus.MemoryTuple(key.Space, pointer, InitialTimestamp, p.InitialChunk(key)), 1)
		acc.Send(p.memoryBus, bus.MemoryTuple(key.Space, pointer, chunk.Timestamp, chunk.Values), 1)
	}
}

// merkle trace columns: valid, index, left, right, digest limbs 0..3.  Child
// columns hold arena index plus one, with zero standing for a uniform-zero
// subtree.
const merkleTraceWidth = 8

// MerkleChip proves the transition from the initial memory root to the final
// one.  Its trace walks the materialised tree nodes bottom-up; untouched
// subtrees are shared between the two versions and appear once.
type MerkleChip struct {
	tree *MerkleTree
	// initialNodes is the arena size once the initial image is in place.
	initialNodes uint
	initialRoot  hasher.Digest
	finalRoot    hasher.Digest
	finalized    bool
}

// NewMerkleChip builds the initial tree over the given image.
func NewMerkleChip(h hasher.Hasher, spaceHeight, labelHeight uint, chunkSize uint32,
	initial Equipartition) *MerkleChip {
	//
	tree := NewMerkleTree(h, spaceHeight, labelHeight, chunkSize, initial)
	//
	return &MerkleChip{
		tree:         tree,
		initialNodes: tree.NodeCount(),
		initialRoot:  tree.Root(),
	}
}

// Name implementation for the chip.Chip interface.
func (p *MerkleChip) Name() string {
	return "memory_merkle"
}

// InitialRoot returns the commitment to the segment's initial memory.
func (p *MerkleChip) InitialRoot() hasher.Digest {
	return p.initialRoot
}

// FinalRoot returns the commitment to the segment's final memory.  Panics
// before finalisation.
func (p *MerkleChip) FinalRoot() hasher.Digest {
	if !p.finalized {
		panic("merkle chip not finalised")
	}
	//
	return p.finalRoot
}

// Finalize folds the final chunk values into the tree, producing the final
// root.
func (p *MerkleChip) Finalize(final TimestampedEquipartition) {
	if p.finalized {
		panic("merkle chip already finalised")
	}
	//
	for _, key := range final.SortedKeys() {
		p.tree.Update(key, final[key].Values)
	}
	//
	p.finalRoot = p.tree.Root()
	p.finalized = true
}

// CurrentTraceHeight implementation for the chip.Chip interface: one row per
// materialised node across both tree versions.
func (p *MerkleChip) CurrentTraceHeight() uint {
	return p.tree.NodeCount()
}

// TraceWidth implementation for the chip.Chip interface.
func (p *MerkleChip) TraceWidth() uint {
	return merkleTraceWidth
}

// GenerateTrace produces one row per materialised node: (valid, index, left,
// right, digest limbs).
func (p *MerkleChip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(p.tree.NodeCount(), merkleTraceWidth)
	//
	for i, node := range p.tree.nodes {
		row := uint(i)
		//
		trace.SetUint64(row, 0, 1)
		trace.SetUint64(row, 1, uint64(i))
		trace.SetUint64(row, 2, uint64(node.left+1))
		trace.SetUint64(row, 3, uint64(node.right+1))
		//
		for j, limb := range node.digest.Limbs() {
			trace.Set(row, 4+uint(j), limb)
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.  The
// Merkle argument is internal to the chip (digests chain through the arena),
// so nothing crosses the global buses.
func (p *MerkleChip) EmitInteractions(acc *bus.Multiset) {
	_ = acc
}

// String summarises the chip state for logging.
func (p *MerkleChip) String() string {
	return fmt.Sprintf("merkle{nodes=%d, initial=%s}", p.tree.NodeCount(), p.initialRoot)
}
