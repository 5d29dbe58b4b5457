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

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
)

// adapter trace columns besides the parent values: valid, is_split, space,
// start, left_timestamp, right_timestamp.
const adapterFixedColumns = 6

// AdapterChip proves split and merge steps for parent blocks of one fixed
// size.  A split row sends its parent block and receives the two halves at
// the parent's timestamp; a merge row sends the two halves at their own
// timestamps and receives the parent at the larger of the two.
type AdapterChip struct {
	memoryBus bus.Index
	// size of the parent block this chip handles.
	size    uint32
	records []AdapterRecord
	// timestampMaxBits bounds the clock differences proving the merge
	// timestamp is the maximum of its children's.
	timestampMaxBits uint
	rangeChecker     *rangecheck.Chip
	rangeRequests    []rangeRequest
}

// NewAdapterChip constructs an adapter chip for parent blocks of the given
// size, which must be an even power of two.
func NewAdapterChip(memoryBus bus.Index, size uint32, timestampMaxBits uint,
	rangeChecker *rangecheck.Chip) *AdapterChip {
	//
	return &AdapterChip{
		memoryBus:        memoryBus,
		size:             size,
		timestampMaxBits: timestampMaxBits,
		rangeChecker:     rangeChecker,
	}
}

// Name implementation for the chip.Chip interface.
func (p *AdapterChip) Name() string {
	return fmt.Sprintf("access_adapter<%d>", p.size)
}

// Size returns the parent block size this chip handles.
func (p *AdapterChip) Size() uint32 {
	return p.size
}

// Records returns the split and merge events recorded so far.
func (p *AdapterChip) Records() []AdapterRecord {
	return p.records
}

// Add records one split or merge event.  The merge timestamp must dominate
// both children, which is proven by two clock range checks.
func (p *AdapterChip) Add(record AdapterRecord) {
	if uint32(len(record.Data)) != p.size {
		panic(fmt.Sprintf("adapter<%d> given a block of %d cells", p.size, len(record.Data)))
	}
	//
	if record.Kind == Merge {
		p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests,
			record.Timestamp-record.LeftTimestamp, p.timestampMaxBits)
		p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests,
			record.Timestamp-record.RightTimestamp, p.timestampMaxBits)
	}
	//
	p.records = append(p.records, record)
}

// CurrentTraceHeight implementation for the chip.Chip interface.
func (p *AdapterChip) CurrentTraceHeight() uint {
	return uint(len(p.records))
}

// TraceWidth implementation for the chip.Chip interface.
func (p *AdapterChip) TraceWidth() uint {
	return adapterFixedColumns + uint(p.size)
}

// GenerateTrace produces one row per recorded event: (valid, is_split, space,
// start, left_timestamp, right_timestamp, values...).  Split rows carry the
// parent timestamp in both timestamp columns.
func (p *AdapterChip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(uint(len(p.records)), p.TraceWidth())
	//
	for i, record := range p.records {
		row := uint(i)
		leftTimestamp, rightTimestamp := record.LeftTimestamp, record.RightTimestamp
		//
		trace.SetUint64(row, 0, 1)
		//
		if record.Kind == Split {
			trace.SetUint64(row, 1, 1)
			leftTimestamp, rightTimestamp = record.Timestamp, record.Timestamp
		}
		//
		trace.SetUint64(row, 2, uint64(record.Space))
		trace.SetUint64(row, 3, uint64(record.Start))
		trace.SetUint64(row, 4, uint64(leftTimestamp))
		trace.SetUint64(row, 5, uint64(rightTimestamp))
		//
		for j, value := range record.Data {
			trace.Set(row, adapterFixedColumns+uint(j), value)
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.
func (p *AdapterChip) EmitInteractions(acc *bus.Multiset) {
	half := p.size / 2
	//
	for _, record := range p.records {
		left, right := record.Data[:half], record.Data[half:]
		//
		switch record.Kind {
		case Split:
			acc.Send(p.memoryBus, bus.MemoryTuple(record.Space, record.Start, record.Timestamp, record.Data), 1)
			acc.Receive(p.memoryBus, bus.MemoryTuple(record.Space, record.Start, record.Timestamp, left), 1)
			acc.Receive(p.memoryBus, bus.MemoryTuple(record.Space, record.Start+half, record.Timestamp, right), 1)
		case Merge:
			acc.Send(p.memoryBus, bus.MemoryTuple(record.Space, record.Start, record.LeftTimestamp, left), 1)
			acc.Send(p.memoryBus, bus.MemoryTuple(record.Space, record.Start+half, record.RightTimestamp, right), 1)
			acc.Receive(p.memoryBus, bus.MemoryTuple(record.Space, record.Start, record.Timestamp, record.Data), 1)
		}
	}
	//
	for _, request := range p.rangeRequests {
		acc.Send(p.rangeChecker.BusIndex(), bus.RangeCheckTuple(request.value, request.bits), 1)
	}
}

// AdapterInventory owns one adapter chip per parent block size from 2 up to
// MaxAccessSize, the largest block the store ever creates.
type AdapterInventory struct {
	chips map[uint32]*AdapterChip
	// sizes in ascending order, for deterministic iteration.
	sizes []uint32
}

// NewAdapterInventory constructs the full complement of adapter chips.
func NewAdapterInventory(memoryBus bus.Index, timestampMaxBits uint,
	rangeChecker *rangecheck.Chip) *AdapterInventory {
	//
	p := &AdapterInventory{chips: make(map[uint32]*AdapterChip)}
	//
	for size := uint32(2); size <= MaxAccessSize; size *= 2 {
		p.chips[size] = NewAdapterChip(memoryBus, size, timestampMaxBits, rangeChecker)
		p.sizes = append(p.sizes, size)
	}
	//
	return p
}

// Add routes one adapter record to the chip handling its parent size.
func (p *AdapterInventory) Add(record AdapterRecord) {
	adapter, ok := p.chips[uint32(len(record.Data))]
	//
	if !ok {
		panic(fmt.Sprintf("no adapter for blocks of %d cells", len(record.Data)))
	}
	//
	adapter.Add(record)
}

// Chip returns the adapter handling the given parent size, or nil.
func (p *AdapterInventory) Chip(size uint32) *AdapterChip {
	return p.chips[size]
}

// Chips returns all adapters in ascending size order.
func (p *AdapterInventory) Chips() []*AdapterChip {
	chips := make([]*AdapterChip, len(p.sizes))
	//
	for i, size := range p.sizes {
		chips[i] = p.chips[size]
	}
	//
	return chips
}

// TotalHeight sums the current trace heights of all adapters, as consumed by
// the segmentation policy.
func (p *AdapterInventory) TotalHeight() uint {
	var height uint
	//
	for _, size := range p.sizes {
		height += p.chips[size].CurrentTraceHeight()
	}
	//
	return height
}
