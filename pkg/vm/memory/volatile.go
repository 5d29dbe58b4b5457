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
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
)

// volatile boundary trace columns: valid, space, pointer, final value, final
// timestamp.
const volatileTraceWidth = 5

// VolatileBoundary is the memory interface for runs without continuations.
// Initial memory is all zeros; final memory is settled into a single list
// sorted by (space, pointer), one row per touched cell.  Each row receives
// the cell's initial state at timestamp zero and sends its final state, and
// strict address ordering is proven by range-checking consecutive
// differences.
type VolatileBoundary struct {
	memoryBus bus.Index
	// address widths bounding the sortedness checks.
	spaceMaxBits   uint
	pointerMaxBits uint
	rangeChecker   *rangecheck.Chip
	rangeRequests  []rangeRequest
	// final snapshot, one cell per chunk; nil until finalised.
	final TimestampedEquipartition
	// sortedKeys caches the address order of the final snapshot.
	sortedKeys []ChunkKey
	// overriddenHeight, when non-zero, fixes the trace height.
	overriddenHeight uint
}

// NewVolatileBoundary constructs the boundary chip for volatile mode.
func NewVolatileBoundary(memoryBus bus.Index, spaceMaxBits, pointerMaxBits uint,
	rangeChecker *rangecheck.Chip) *VolatileBoundary {
	//
	return &VolatileBoundary{
		memoryBus:      memoryBus,
		spaceMaxBits:   spaceMaxBits,
		pointerMaxBits: pointerMaxBits,
		rangeChecker:   rangeChecker,
	}
}

// Name implementation for the chip.Chip interface.
func (p *VolatileBoundary) Name() string {
	return "boundary"
}

// Finalize settles the final memory snapshot into this boundary.  The
// partition must have unit chunks.  Called exactly once per run.
func (p *VolatileBoundary) Finalize(final TimestampedEquipartition) {
	if p.final != nil {
		panic("boundary already finalised")
	}
	//
	for key, chunk := range final {
		if len(chunk.Values) != 1 {
			panic(fmt.Sprintf("volatile chunk (%d,%d) has %d cells", key.Space, key.Label, len(chunk.Values)))
		}
	}
	//
	p.final = final
	p.sortedKeys = final.SortedKeys()
	// Prove strict (space, pointer) ordering of consecutive rows.
	for i := 1; i < len(p.sortedKeys); i++ {
		prev, cur := p.sortedKeys[i-1], p.sortedKeys[i]
		//
		if cur.Space != prev.Space {
			p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests,
				cur.Space-prev.Space-1, p.spaceMaxBits)
		} else {
			p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests,
				cur.Label-prev.Label-1, p.pointerMaxBits)
		}
	}
}

// OverrideTraceHeight fixes the trace height ahead of time, as required when
// heights are pinned across proving keys.  Panics if the boundary has already
// outgrown the requested height.
func (p *VolatileBoundary) OverrideTraceHeight(height uint) {
	if p.final != nil && uint(len(p.final)) > height {
		panic(fmt.Sprintf("boundary height %d exceeds override %d", len(p.final), height))
	}
	//
	p.overriddenHeight = height
}

// CurrentTraceHeight implementation for the chip.Chip interface.
func (p *VolatileBoundary) CurrentTraceHeight() uint {
	if p.overriddenHeight != 0 {
		return p.overriddenHeight
	}
	//
	return uint(len(p.final))
}

// TraceWidth implementation for the chip.Chip interface.
func (p *VolatileBoundary) TraceWidth() uint {
	return volatileTraceWidth
}

// GenerateTrace produces the sorted final-memory list, one row per touched
// cell: (valid, space, pointer, value, timestamp).
func (p *VolatileBoundary) GenerateTrace() *chip.Matrix {
	if p.final == nil {
		panic("boundary not finalised")
	}
	//
	trace := chip.NewMatrix(p.CurrentTraceHeight(), volatileTraceWidth)
	//
	for i, key := range p.sortedKeys {
		chunk := p.final[key]
		row := uint(i)
		//
		trace.SetUint64(row, 0, 1)
		trace.SetUint64(row, 1, uint64(key.Space))
		trace.SetUint64(row, 2, uint64(key.Label))
		trace.Set(row, 3, chunk.Values[0])
		trace.SetUint64(row, 4, uint64(chunk.Timestamp))
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface: each
// touched cell receives its zero initial state at timestamp zero and sends
// its final state.
func (p *VolatileBoundary) EmitInteractions(acc *bus.Multiset) {
	if p.final == nil {
		panic("boundary not finalised")
	}
	//
	for _, key := range p.sortedKeys {
		chunk := p.final[key]
		initial := make([]fr.Element, 1)
		//
		acc.Receive(p.memoryBus, bus.MemoryTuple(key.Space, key.Label, InitialTimestamp, initial), 1)
		acc.Send(p.memoryBus, bus.MemoryTuple(key.Space, key.Label, chunk.Timestamp, chunk.Values), 1)
	}
	//
	for _, request := range p.rangeRequests {
		acc.Send(p.rangeChecker.BusIndex(), bus.RangeCheckTuple(request.value, request.bits), 1)
	}
}
