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

// Package memory implements the offline memory-consistency subsystem: a
// block-partitioned store journalling every split and merge, access-adapter
// chips proving those reshapes, and a boundary argument (sorted-list in
// volatile mode, Merkle-committed in persistent mode) tying the access log to
// the initial and final memory images over the global memory bus.
package memory

import (
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
)

// MaxAccessSize is the largest block an executor may touch in one access.
const MaxAccessSize uint32 = 32

// LogEntry is the normalised view of one access, as retained in the access
// log.  For reads, PrevData aliases Data.  Identity-space reads never appear:
// they touch neither the clock nor memory.
type LogEntry struct {
	IsWrite       bool
	Space         uint32
	Pointer       uint32
	Timestamp     uint32
	PrevTimestamp uint32
	Data          []fr.Element
	PrevData      []fr.Element
}

// Controller fronts the memory store for executors.  It validates access
// shapes, maintains the chronological access log used for replay and bus
// emission, routes adapter records to the access-adapter chips, and registers
// the range checks which accompany every access.
type Controller struct {
	memoryBus bus.Index
	memory    *Memory
	// initial image, retained for the boundary argument.
	initial Equipartition
	// log of every access in issue order.
	log      []LogEntry
	adapters *AdapterInventory
	// pointerMaxBits bounds pointers; timestampMaxBits bounds the clock.
	pointerMaxBits   uint
	timestampMaxBits uint
	rangeChecker     *rangecheck.Chip
	// rangeRequests journals (value, bits) pairs counted against the range
	// checker, so matching sends can be emitted.
	rangeRequests []rangeRequest
}

type rangeRequest struct {
	value uint32
	bits  uint
}

// addRangeRequests splits value into limbs of at most the checker's bit
// width, counts each against the table and journals them so the requesting
// chip can emit matching sends.
func addRangeRequests(checker *rangecheck.Chip, requests []rangeRequest, value uint32,
	requiredBits uint) []rangeRequest {
	//
	maxBits := checker.RangeMaxBits()
	remaining := requiredBits
	//
	for _, limb := range checker.Decompose(value, requiredBits) {
		limbBits := min(remaining, maxBits)
		requests = append(requests, rangeRequest{limb, limbBits})
		remaining -= limbBits
	}
	//
	return requests
}

// NewController constructs a memory controller over the given initial image.
// The initial block size is 1 in volatile mode and the chunk size in
// persistent mode.
func NewController(memoryBus bus.Index, initial Equipartition, initialBlockSize uint32,
	pointerMaxBits, timestampMaxBits uint, rangeChecker *rangecheck.Chip) *Controller {
	//
	return &Controller{
		memoryBus:        memoryBus,
		memory:           NewMemory(initial, initialBlockSize),
		initial:          initial,
		adapters:         NewAdapterInventory(memoryBus, timestampMaxBits, rangeChecker),
		pointerMaxBits:   pointerMaxBits,
		timestampMaxBits: timestampMaxBits,
		rangeChecker:     rangeChecker,
	}
}

// Name implementation for the chip.Chip interface.
func (p *Controller) Name() string {
	return "offline_checker"
}

// CurrentTraceHeight implementation for the chip.Chip interface: one row per
// logged access.
func (p *Controller) CurrentTraceHeight() uint {
	return uint(len(p.log))
}

// TraceWidth implementation for the chip.Chip interface: the access columns
// (valid, write, space, pointer, timestamps) plus previous and current values
// at the maximum block width.
func (p *Controller) TraceWidth() uint {
	return 6 + 2*uint(MaxAccessSize)
}

// Timestamp returns the current clock value.
func (p *Controller) Timestamp() uint32 {
	return p.memory.Timestamp()
}

// IncrementTimestamp advances the clock by one without an access, as required
// for instructions whose executors touch memory fewer times than their fixed
// access budget.
func (p *Controller) IncrementTimestamp() {
	p.memory.IncrementTimestamp()
}

// SetTimestamp positions the clock at a segment's start time, so that
// timestamps chain across segment boundaries.
func (p *Controller) SetTimestamp(timestamp uint32) {
	p.memory.SetTimestamp(timestamp)
}

// Adapters returns the access-adapter inventory fed by this controller.
func (p *Controller) Adapters() *AdapterInventory {
	return p.adapters
}

// AccessLog returns the chronological log of every access issued so far.
func (p *Controller) AccessLog() []LogEntry {
	return p.log
}

// ReadCell reads the single cell at (space, pointer).  Address space 0 is the
// identity space: the pointer itself is returned as the value, without any
// clock tick, log entry or bus traffic.
func (p *Controller) ReadCell(space, pointer uint32) fr.Element {
	if space == 0 {
		var value fr.Element
		//
		value.SetUint64(uint64(pointer))
		//
		return value
	}
	//
	return p.ReadBlock(space, pointer, 1)[0]
}

// WriteCell writes the single cell at (space, pointer), returning the
// overwritten value.
func (p *Controller) WriteCell(space, pointer uint32, value fr.Element) fr.Element {
	return p.WriteBlock(space, pointer, []fr.Element{value})[0]
}

// ReadBlock reads an aligned block of cells.  The block length must be a
// power of two of at most MaxAccessSize, and the pointer a multiple of it.
func (p *Controller) ReadBlock(space, pointer, length uint32) []fr.Element {
	p.validateAccess(space, pointer, length)
	//
	record, adapterRecords := p.memory.Read(space, pointer, length)
	//
	p.log = append(p.log, LogEntry{
		IsWrite:       false,
		Space:         space,
		Pointer:       pointer,
		Timestamp:     record.Timestamp,
		PrevTimestamp: record.PrevTimestamp,
		Data:          record.Data,
		PrevData:      record.Data,
	})
	p.recordAccessChecks(pointer, record.Timestamp, record.PrevTimestamp, adapterRecords)
	//
	return record.Data
}

// WriteBlock writes an aligned block of cells, returning the overwritten
// values.  The same shape restrictions as ReadBlock apply.
func (p *Controller) WriteBlock(space, pointer uint32, values []fr.Element) []fr.Element {
	p.validateAccess(space, pointer, uint32(len(values)))
	//
	record, adapterRecords := p.memory.Write(space, pointer, values)
	//
	p.log = append(p.log, LogEntry{
		IsWrite:       true,
		Space:         space,
		Pointer:       pointer,
		Timestamp:     record.Timestamp,
		PrevTimestamp: record.PrevTimestamp,
		Data:          record.Data,
		PrevData:      record.PrevData,
	})
	p.recordAccessChecks(pointer, record.Timestamp, record.PrevTimestamp, adapterRecords)
	//
	return record.PrevData
}

// PeekCell inspects a cell without advancing the clock, logging or touching
// the partition.
func (p *Controller) PeekCell(space, pointer uint32) fr.Element {
	if space == 0 {
		var value fr.Element
		//
		value.SetUint64(uint64(pointer))
		//
		return value
	}
	//
	return p.memory.Get(space, pointer)
}

// PeekBlock inspects a block of cells without advancing the clock, logging or
// touching the partition.  Identity-space cells read as their own pointers.
func (p *Controller) PeekBlock(space, pointer, length uint32) []fr.Element {
	if space == 0 {
		values := make([]fr.Element, length)
		//
		for i := range values {
			values[i].SetUint64(uint64(pointer) + uint64(i))
		}
		//
		return values
	}
	//
	return p.memory.rangeSlice(space, pointer, length)
}

// Finalize reshapes memory into an equipartition of the given chunk size,
// routing the induced adapter records, and returns the final snapshot for the
// boundary argument.
func (p *Controller) Finalize(chunkSize uint32) TimestampedEquipartition {
	final, adapterRecords := p.memory.Finalize(chunkSize)
	//
	for _, record := range adapterRecords {
		p.adapters.Add(record)
	}
	//
	return final
}

// InitialMemory returns the image this controller was constructed over.
func (p *Controller) InitialMemory() Equipartition {
	return p.initial
}

// EmitInteractions implementation for the chip.Interactor interface: every
// logged access sends its previous block state and receives its new one, and
// every registered range check sends its tuple.
func (p *Controller) EmitInteractions(acc *bus.Multiset) {
	for _, entry := range p.log {
		acc.Send(p.memoryBus, bus.MemoryTuple(entry.Space, entry.Pointer, entry.PrevTimestamp, entry.PrevData), 1)
		acc.Receive(p.memoryBus, bus.MemoryTuple(entry.Space, entry.Pointer, entry.Timestamp, entry.Data), 1)
	}
	//
	for _, request := range p.rangeRequests {
		acc.Send(p.rangeChecker.BusIndex(), bus.RangeCheckTuple(request.value, request.bits), 1)
	}
}

// validateAccess panics on malformed accesses, since executors constructing
// them is a programming error rather than a guest error.
func (p *Controller) validateAccess(space, pointer, length uint32) {
	if space == 0 {
		panic("block access to address space 0")
	} else if length == 0 || length > MaxAccessSize || bits.OnesCount32(length) != 1 {
		panic(fmt.Sprintf("block length %d not a power of two in [1,%d]", length, MaxAccessSize))
	} else if pointer%length != 0 {
		panic(fmt.Sprintf("pointer %#x misaligned for block length %d", pointer, length))
	} else if uint64(pointer)+uint64(length) > 1<<p.pointerMaxBits {
		panic(fmt.Sprintf("pointer %#x exceeds %d bits", pointer, p.pointerMaxBits))
	}
}

// recordAccessChecks registers the range checks accompanying one access: the
// pointer fits the address width, and the clock strictly advanced past the
// block's previous timestamp.
func (p *Controller) recordAccessChecks(pointer, timestamp, prevTimestamp uint32, adapterRecords []AdapterRecord) {
	p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests, pointer, p.pointerMaxBits)
	// prevTimestamp < timestamp iff their difference less one is a valid
	// clock value.
	p.rangeRequests = addRangeRequests(p.rangeChecker, p.rangeRequests,
		timestamp-prevTimestamp-1, p.timestampMaxBits)
	//
	for _, record := range adapterRecords {
		p.adapters.Add(record)
	}
}
