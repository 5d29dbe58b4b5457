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
	"math/bits"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// blockData identifies the block currently covering a cell: the block spans
// pointers [pointer, pointer+size) and was last accessed at timestamp.
type blockData struct {
	pointer   uint32
	size      uint32
	timestamp uint32
}

// Memory maintains a partition of each address space into power-of-two sized
// blocks, every block stamped with its last access time.  Reads and writes of
// a block not currently in the partition first reshape the partition via
// split and merge steps, each of which is journalled as an AdapterRecord for
// the access-adapter chips to prove.
type Memory struct {
	// blockData maps every touched cell to its covering block.
	blockData map[Address]blockData
	// data holds cell values; absent cells read as zero.
	data map[Address]fr.Element
	// initialBlockSize is the granularity of untouched memory (1 in
	// volatile mode, the chunk size in persistent mode).
	initialBlockSize uint32
	timestamp        uint32
}

// NewMemory constructs a store over the given initial image, with untouched
// memory partitioned into blocks of the given size.  Panics if the block size
// is not a power of two, or if the image chunks disagree with it.
func NewMemory(initial Equipartition, initialBlockSize uint32) *Memory {
	if bits.OnesCount32(initialBlockSize) != 1 {
		panic(fmt.Sprintf("initial block size %d not a power of two", initialBlockSize))
	}
	//
	p := &Memory{
		blockData:        make(map[Address]blockData),
		data:             make(map[Address]fr.Element),
		initialBlockSize: initialBlockSize,
		timestamp:        InitialTimestamp + 1,
	}
	//
	for key, values := range initial {
		if uint32(len(values)) != initialBlockSize {
			panic(fmt.Sprintf("initial chunk (%d,%d) has %d cells (expected %d)",
				key.Space, key.Label, len(values), initialBlockSize))
		}
		//
		pointer := key.Label * initialBlockSize
		block := blockData{pointer, initialBlockSize, InitialTimestamp}
		//
		for i, value := range values {
			addr := Address{key.Space, pointer + uint32(i)}
			p.data[addr] = value
			p.blockData[addr] = block
		}
	}
	//
	return p
}

// Timestamp returns the current timestamp.
func (p *Memory) Timestamp() uint32 {
	return p.timestamp
}

// IncrementTimestamp advances the clock by one.
func (p *Memory) IncrementTimestamp() {
	p.timestamp++
}

// IncrementTimestampBy advances the clock by the given delta.
func (p *Memory) IncrementTimestampBy(delta uint32) {
	p.timestamp += delta
}

// SetTimestamp positions the clock.  Used when a store picks up the global
// clock mid-run; the new value must not precede the current one.
func (p *Memory) SetTimestamp(timestamp uint32) {
	if timestamp < p.timestamp {
		panic(fmt.Sprintf("clock cannot move backwards (%d < %d)", timestamp, p.timestamp))
	}
	//
	p.timestamp = timestamp
}

// Write stores a power-of-two sized block of values at the given location,
// returning the write record along with any adapter records generated whilst
// reshaping the partition.  The clock advances by one.
func (p *Memory) Write(space, pointer uint32, values []fr.Element) (WriteRecord, []AdapterRecord) {
	size := uint32(len(values))
	//
	if bits.OnesCount32(size) != 1 {
		panic(fmt.Sprintf("write of %d cells (must be a power of two)", size))
	}
	//
	var adapterRecords []AdapterRecord
	//
	prevTimestamp := p.accessUpdatingTimestamp(space, pointer, size, &adapterRecords)
	prevData := make([]fr.Element, size)
	//
	for i := uint32(0); i < size; i++ {
		addr := Address{space, pointer + i}
		prevData[i] = p.data[addr]
		p.data[addr] = values[i]
	}
	//
	record := WriteRecord{
		Space:         space,
		Pointer:       pointer,
		Timestamp:     p.timestamp,
		PrevTimestamp: prevTimestamp,
		Data:          append([]fr.Element(nil), values...),
		PrevData:      prevData,
	}
	//
	p.IncrementTimestamp()
	//
	return record, adapterRecords
}

// Read fetches a power-of-two sized block of values at the given location,
// returning the read record along with any adapter records generated whilst
// reshaping the partition.  The clock advances by one.
func (p *Memory) Read(space, pointer, size uint32) (ReadRecord, []AdapterRecord) {
	if bits.OnesCount32(size) != 1 {
		panic(fmt.Sprintf("read of %d cells (must be a power of two)", size))
	}
	//
	var adapterRecords []AdapterRecord
	//
	prevTimestamp := p.accessUpdatingTimestamp(space, pointer, size, &adapterRecords)
	//
	record := ReadRecord{
		Space:         space,
		Pointer:       pointer,
		Timestamp:     p.timestamp,
		PrevTimestamp: prevTimestamp,
		Data:          p.rangeSlice(space, pointer, size),
	}
	//
	p.IncrementTimestamp()
	//
	return record, adapterRecords
}

// Finalize reshapes the partition into an equipartition of the given chunk
// size, returning each touched chunk with its final timestamp along with the
// adapter records generated by the reshaping.
func (p *Memory) Finalize(chunkSize uint32) (TimestampedEquipartition, []AdapterRecord) {
	var adapterRecords []AdapterRecord
	// Determine aligned chunk starts covering every touched cell.
	seen := make(map[Address]bool)
	//
	var toAccess []Address
	//
	for addr := range p.blockData {
		chunk := Address{addr.Space, (addr.Pointer / chunkSize) * chunkSize}
		//
		if !seen[chunk] {
			seen[chunk] = true
			toAccess = append(toAccess, chunk)
		}
	}
	// Reshape in address order, so identical runs journal identical adapter
	// records.
	sort.Slice(toAccess, func(i, j int) bool { return toAccess[i].Less(toAccess[j]) })
	//
	for _, addr := range toAccess {
		block := p.blockData[addr]
		//
		if block.pointer != addr.Pointer || block.size != chunkSize {
			p.access(addr.Space, addr.Pointer, chunkSize, &adapterRecords)
		}
	}
	//
	equipartition := make(TimestampedEquipartition, len(toAccess))
	//
	for _, addr := range toAccess {
		block := p.blockData[addr]
		//
		equipartition[ChunkKey{addr.Space, addr.Pointer / chunkSize}] = TimestampedValues{
			Timestamp: block.timestamp,
			Values:    p.rangeSlice(addr.Space, addr.Pointer, chunkSize),
		}
	}
	//
	return equipartition, adapterRecords
}

// splitToMakeBoundary reshapes the partition so that some block starts at
// (space, query), splitting whichever block currently straddles it.
func (p *Memory) splitToMakeBoundary(space, query uint32, records *[]AdapterRecord) {
	originalBlock := p.blockContaining(space, query)
	//
	if originalBlock.pointer == query {
		return
	}
	//
	data := p.rangeSlice(space, originalBlock.pointer, originalBlock.size)
	timestamp := originalBlock.timestamp
	curPtr := originalBlock.pointer
	curSize := originalBlock.size
	//
	for curSize > 0 {
		offset := curPtr - originalBlock.pointer
		//
		*records = append(*records, AdapterRecord{
			Kind:      Split,
			Space:     space,
			Start:     curPtr,
			Timestamp: timestamp,
			Data:      append([]fr.Element(nil), data[offset:offset+curSize]...),
		})
		//
		halfSize := curSize / 2
		//
		if query <= curPtr+halfSize {
			// Right half is final; enter it into the partition.
			block := blockData{curPtr + halfSize, halfSize, timestamp}
			//
			for i := uint32(0); i < halfSize; i++ {
				p.blockData[Address{space, curPtr + halfSize + i}] = block
			}
		}
		//
		if query >= curPtr+halfSize {
			// Left half is final; enter it into the partition.
			block := blockData{curPtr, halfSize, timestamp}
			//
			for i := uint32(0); i < halfSize; i++ {
				p.blockData[Address{space, curPtr + i}] = block
			}
		}
		//
		if curPtr+halfSize <= query {
			curPtr += halfSize
		}
		//
		if curPtr == query {
			break
		}
		//
		curSize = halfSize
	}
}

// accessUpdatingTimestamp brings the block [pointer, pointer+size) into the
// partition, stamps it with the current clock and returns its previous
// timestamp.
func (p *Memory) accessUpdatingTimestamp(space, pointer, size uint32, records *[]AdapterRecord) uint32 {
	p.access(space, pointer, size, records)
	//
	var prevTimestamp uint32
	//
	for i := uint32(0); i < size; i++ {
		addr := Address{space, pointer + i}
		block := p.blockData[addr]
		prevTimestamp = block.timestamp
		block.timestamp = p.timestamp
		p.blockData[addr] = block
	}
	//
	return prevTimestamp
}

// access reshapes the partition so that [pointer, pointer+size) is one of its
// blocks, journalling every split and merge performed.
func (p *Memory) access(space, pointer, size uint32, records *[]AdapterRecord) {
	p.splitToMakeBoundary(space, pointer, records)
	p.splitToMakeBoundary(space, pointer+size, records)
	//
	block, ok := p.blockData[Address{space, pointer}]
	//
	if !ok {
		// Untouched aligned region; materialise its initial blocks.
		for i := uint32(0); i < size; i++ {
			p.blockData[Address{space, pointer + i}] = p.initialBlockData(pointer + i)
		}
		//
		block = p.initialBlockData(pointer)
	}
	//
	if block.pointer == pointer && block.size == size {
		return
	} else if size <= 1 {
		panic("cannot reshape around a unit block")
	}
	// Recursively access both halves, then merge them.
	halfSize := size / 2
	p.access(space, pointer, halfSize, records)
	p.access(space, pointer+halfSize, halfSize, records)
	p.mergeBlockWithNext(space, pointer, records)
}

// mergeBlockWithNext merges the block starting at (space, pointer) with its
// equally-sized right neighbour, stamping the result with the larger of the
// two timestamps.
func (p *Memory) mergeBlockWithNext(space, pointer uint32, records *[]AdapterRecord) {
	leftBlock, ok := p.blockData[Address{space, pointer}]
	//
	if !ok {
		panic(fmt.Sprintf("no block starts at (%d,%d)", space, pointer))
	}
	//
	leftTimestamp := leftBlock.timestamp
	size := leftBlock.size
	rightTimestamp := InitialTimestamp
	//
	if rightBlock, ok := p.blockData[Address{space, pointer + size}]; ok {
		rightTimestamp = rightBlock.timestamp
	}
	//
	timestamp := max(leftTimestamp, rightTimestamp)
	merged := blockData{pointer, 2 * size, timestamp}
	//
	for i := uint32(0); i < 2*size; i++ {
		p.blockData[Address{space, pointer + i}] = merged
	}
	//
	*records = append(*records, AdapterRecord{
		Kind:           Merge,
		Space:          space,
		Start:          pointer,
		Timestamp:      timestamp,
		LeftTimestamp:  leftTimestamp,
		RightTimestamp: rightTimestamp,
		Data:           p.rangeSlice(space, pointer, 2*size),
	})
}

// blockContaining returns the block currently covering (space, pointer).
func (p *Memory) blockContaining(space, pointer uint32) blockData {
	if block, ok := p.blockData[Address{space, pointer}]; ok {
		return block
	}
	//
	return p.initialBlockData(pointer)
}

// initialBlockData returns the untouched block covering the given pointer.
func (p *Memory) initialBlockData(pointer uint32) blockData {
	alignedPointer := (pointer / p.initialBlockSize) * p.initialBlockSize
	//
	return blockData{alignedPointer, p.initialBlockSize, InitialTimestamp}
}

// Get returns the value of a single cell without touching the clock or the
// partition.  Absent cells read as zero.
func (p *Memory) Get(space, pointer uint32) fr.Element {
	return p.data[Address{space, pointer}]
}

// rangeSlice returns the values of [pointer, pointer+n).
func (p *Memory) rangeSlice(space, pointer, n uint32) []fr.Element {
	values := make([]fr.Element, n)
	//
	for i := uint32(0); i < n; i++ {
		values[i] = p.data[Address{space, pointer + i}]
	}
	//
	return values
}
