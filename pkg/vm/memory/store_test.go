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

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/stretchr/testify/assert"
)

// vals constructs a slice of field elements from machine words.
func vals(xs ...uint64) []fr.Element {
	values := make([]fr.Element, len(xs))
	//
	for i, x := range xs {
		values[i].SetUint64(x)
	}
	//
	return values
}

func TestStore_BlockContaining(t *testing.T) {
	store := NewMemory(Equipartition{}, 8)
	//
	assert.Equal(t, blockData{8, 8, 0}, store.blockContaining(0, 13))
	assert.Equal(t, blockData{8, 8, 0}, store.blockContaining(0, 8))
	assert.Equal(t, blockData{8, 8, 0}, store.blockContaining(0, 15))
	assert.Equal(t, blockData{16, 8, 0}, store.blockContaining(0, 16))
}

func TestStore_WriteReadInitialBlockLen1(t *testing.T) {
	store := NewMemory(Equipartition{}, 1)
	//
	store.Write(1, 0, vals(1, 2, 3, 4))
	//
	record, _ := store.Read(1, 0, 2)
	assert.Equal(t, vals(1, 2), record.Data)
	//
	store.Write(1, 2, vals(100))
	//
	record, _ = store.Read(1, 0, 4)
	assert.Equal(t, vals(1, 2, 100, 4), record.Data)
}

func TestStore_WriteReadInitialBlockLen8(t *testing.T) {
	store := NewMemory(Equipartition{}, 8)
	//
	store.Write(1, 0, vals(1, 2, 3, 4))
	//
	record, _ := store.Read(1, 0, 2)
	assert.Equal(t, vals(1, 2), record.Data)
	//
	store.Write(1, 2, vals(100))
	//
	record, _ = store.Read(1, 0, 4)
	assert.Equal(t, vals(1, 2, 100, 4), record.Data)
}

func TestStore_RecordsInitialBlockLen1(t *testing.T) {
	store := NewMemory(Equipartition{}, 1)
	//
	writeRecord, adapterRecords := store.Write(1, 0, vals(1, 2, 3, 4))
	// The write first merges [0:1)+[1:2) into [0:2) ...
	assert.Equal(t, AdapterRecord{
		Kind: Merge, Space: 1, Start: 0, Timestamp: 0, Data: vals(0, 0),
	}, adapterRecords[0])
	// ... then [2:3)+[3:4) into [2:4) ...
	assert.Equal(t, AdapterRecord{
		Kind: Merge, Space: 1, Start: 2, Timestamp: 0, Data: vals(0, 0),
	}, adapterRecords[1])
	// ... then [0:2)+[2:4) into [0:4).
	assert.Equal(t, AdapterRecord{
		Kind: Merge, Space: 1, Start: 0, Timestamp: 0, Data: vals(0, 0, 0, 0),
	}, adapterRecords[2])
	// At time 1 we write [0:4).
	assert.Equal(t, WriteRecord{
		Space: 1, Pointer: 0, Timestamp: 1, PrevTimestamp: 0,
		Data: vals(1, 2, 3, 4), PrevData: vals(0, 0, 0, 0),
	}, writeRecord)
	assert.Equal(t, uint32(2), store.Timestamp())
	//
	readRecord, adapterRecords := store.Read(1, 0, 4)
	// At time 2 we read [0:4) in place.
	assert.Empty(t, adapterRecords)
	assert.Equal(t, ReadRecord{
		Space: 1, Pointer: 0, Timestamp: 2, PrevTimestamp: 1,
		Data: vals(1, 2, 3, 4),
	}, readRecord)
	assert.Equal(t, uint32(3), store.Timestamp())
	//
	writeRecord, adapterRecords = store.Write(1, 0, vals(10, 11))
	// The write splits [0:4) into [0:2) and [2:4).
	assert.Len(t, adapterRecords, 1)
	assert.Equal(t, AdapterRecord{
		Kind: Split, Space: 1, Start: 0, Timestamp: 2, Data: vals(1, 2, 3, 4),
	}, adapterRecords[0])
	// At time 3 we write [10, 11] into [0:2).
	assert.Equal(t, WriteRecord{
		Space: 1, Pointer: 0, Timestamp: 3, PrevTimestamp: 2,
		Data: vals(10, 11), PrevData: vals(1, 2),
	}, writeRecord)
	//
	readRecord, adapterRecords = store.Read(1, 0, 4)
	// The read merges [0:2) at time 3 with [2:4) at time 2.
	assert.Len(t, adapterRecords, 1)
	assert.Equal(t, AdapterRecord{
		Kind: Merge, Space: 1, Start: 0, Timestamp: 3,
		LeftTimestamp: 3, RightTimestamp: 2, Data: vals(10, 11, 3, 4),
	}, adapterRecords[0])
	assert.Equal(t, ReadRecord{
		Space: 1, Pointer: 0, Timestamp: 4, PrevTimestamp: 3,
		Data: vals(10, 11, 3, 4),
	}, readRecord)
}

func TestStore_RecordsInitialBlockLen8(t *testing.T) {
	store := NewMemory(Equipartition{}, 8)
	//
	writeRecord, adapterRecords := store.Write(1, 0, vals(1, 2, 3, 4))
	// The write splits the initial [0:8) into [0:4) and [4:8).
	assert.Len(t, adapterRecords, 1)
	assert.Equal(t, AdapterRecord{
		Kind: Split, Space: 1, Start: 0, Timestamp: 0,
		Data: vals(0, 0, 0, 0, 0, 0, 0, 0),
	}, adapterRecords[0])
	// At time 1 we write [0:4).
	assert.Equal(t, WriteRecord{
		Space: 1, Pointer: 0, Timestamp: 1, PrevTimestamp: 0,
		Data: vals(1, 2, 3, 4), PrevData: vals(0, 0, 0, 0),
	}, writeRecord)
	assert.Equal(t, uint32(2), store.Timestamp())
	//
	readRecord, adapterRecords := store.Read(1, 0, 4)
	assert.Empty(t, adapterRecords)
	assert.Equal(t, ReadRecord{
		Space: 1, Pointer: 0, Timestamp: 2, PrevTimestamp: 1,
		Data: vals(1, 2, 3, 4),
	}, readRecord)
	//
	writeRecord, adapterRecords = store.Write(1, 0, vals(10, 11))
	assert.Len(t, adapterRecords, 1)
	assert.Equal(t, AdapterRecord{
		Kind: Split, Space: 1, Start: 0, Timestamp: 2, Data: vals(1, 2, 3, 4),
	}, adapterRecords[0])
	assert.Equal(t, WriteRecord{
		Space: 1, Pointer: 0, Timestamp: 3, PrevTimestamp: 2,
		Data: vals(10, 11), PrevData: vals(1, 2),
	}, writeRecord)
	//
	readRecord, adapterRecords = store.Read(1, 0, 4)
	assert.Len(t, adapterRecords, 1)
	assert.Equal(t, AdapterRecord{
		Kind: Merge, Space: 1, Start: 0, Timestamp: 3,
		LeftTimestamp: 3, RightTimestamp: 2, Data: vals(10, 11, 3, 4),
	}, adapterRecords[0])
	assert.Equal(t, ReadRecord{
		Space: 1, Pointer: 0, Timestamp: 4, PrevTimestamp: 3,
		Data: vals(10, 11, 3, 4),
	}, readRecord)
}

func TestStore_SplitChainOnCellRead(t *testing.T) {
	store := NewMemory(Equipartition{}, 8)
	// A single aligned 8-block write needs no reshaping.
	writeRecord, adapterRecords := store.Write(1, 0, vals(1, 2, 3, 4, 5, 6, 7, 8))
	assert.Empty(t, adapterRecords)
	assert.Equal(t, WriteRecord{
		Space: 1, Pointer: 0, Timestamp: 1, PrevTimestamp: 0,
		Data: vals(1, 2, 3, 4, 5, 6, 7, 8), PrevData: vals(0, 0, 0, 0, 0, 0, 0, 0),
	}, writeRecord)
	// Peeling the cell at pointer 5 splits 8 -> 4 -> 2 -> 1 along the spine.
	readRecord, adapterRecords := store.Read(1, 5, 1)
	assert.Equal(t, []AdapterRecord{
		{Kind: Split, Space: 1, Start: 0, Timestamp: 1, Data: vals(1, 2, 3, 4, 5, 6, 7, 8)},
		{Kind: Split, Space: 1, Start: 4, Timestamp: 1, Data: vals(5, 6, 7, 8)},
		{Kind: Split, Space: 1, Start: 4, Timestamp: 1, Data: vals(5, 6)},
	}, adapterRecords)
	assert.Equal(t, ReadRecord{
		Space: 1, Pointer: 5, Timestamp: 2, PrevTimestamp: 1, Data: vals(6),
	}, readRecord)
}

func TestStore_GetInitialBlockLen1(t *testing.T) {
	store := NewMemory(Equipartition{}, 1)
	//
	store.Write(1, 0, vals(4, 3, 2, 1))
	//
	assert.Equal(t, vals(4)[0], store.Get(1, 0))
	assert.Equal(t, vals(3)[0], store.Get(1, 1))
	assert.Equal(t, vals(2)[0], store.Get(1, 2))
	assert.Equal(t, vals(1)[0], store.Get(1, 3))
	//
	untouched := store.Get(1, 5)
	assert.True(t, untouched.IsZero())
	//
	identity := store.Get(0, 0)
	assert.True(t, identity.IsZero())
}

func TestStore_FinalizeDeterministicOrder(t *testing.T) {
	build := func() []AdapterRecord {
		store := NewMemory(Equipartition{}, 1)
		//
		for chunk := uint32(0); chunk < 16; chunk++ {
			store.Write(1, chunk*8, vals(uint64(chunk)+1))
		}
		//
		_, records := store.Finalize(8)
		//
		return records
	}
	// Identical runs must journal identical record sequences.
	first := build()
	assert.Equal(t, first, build())
	// The reshaping walks chunks in (space, start) order, so the closing
	// size-8 merges appear in ascending start order.
	var starts []uint32
	//
	for _, record := range first {
		if len(record.Data) == 8 {
			starts = append(starts, record.Start)
		}
	}
	//
	expected := make([]uint32, 16)
	//
	for chunk := range expected {
		expected[chunk] = uint32(chunk) * 8
	}
	//
	assert.Equal(t, expected, starts)
}

func TestStore_FinalizeEmpty(t *testing.T) {
	store := NewMemory(Equipartition{}, 4)
	//
	final, records := store.Finalize(4)
	assert.Empty(t, final)
	assert.Empty(t, records)
}

func TestStore_FinalizeBlockLen8(t *testing.T) {
	store := NewMemory(Equipartition{}, 8)
	// Touch [0:4) in space 1.
	store.Write(1, 0, vals(1, 2, 3, 4))
	// Touch [16:32) in space 1.
	store.Write(1, 16, vals(1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1))
	// Touch [64:72) in space 2.
	store.Write(2, 64, vals(8, 7, 6, 5, 4, 3, 2, 1))
	//
	final, records := store.Finalize(8)
	assert.Len(t, final, 4)
	assert.Equal(t, TimestampedValues{
		Timestamp: 1, Values: vals(1, 2, 3, 4, 0, 0, 0, 0),
	}, final[ChunkKey{1, 0}])
	assert.Equal(t, TimestampedValues{
		Timestamp: 2, Values: vals(1, 1, 1, 1, 1, 1, 1, 1),
	}, final[ChunkKey{1, 2}])
	assert.Equal(t, TimestampedValues{
		Timestamp: 2, Values: vals(1, 1, 1, 1, 1, 1, 1, 1),
	}, final[ChunkKey{1, 3}])
	assert.Equal(t, TimestampedValues{
		Timestamp: 3, Values: vals(8, 7, 6, 5, 4, 3, 2, 1),
	}, final[ChunkKey{2, 8}])
	// One merge of [0:4)+[4:8) and one split of [16:32); space 2 is
	// already chunk-shaped.
	assert.Len(t, records, 2)
}

func TestStore_WriteReadWithInitialImage(t *testing.T) {
	initial := Equipartition{
		{1, 0}: vals(1, 2, 3, 4, 5, 6, 7, 8),
		{1, 2}: vals(1, 2, 3, 4, 5, 6, 7, 8),
	}
	store := NewMemory(initial, 8)
	//
	record, _ := store.Read(1, 0, 8)
	assert.Equal(t, vals(1, 2, 3, 4, 5, 6, 7, 8), record.Data)
	//
	record, _ = store.Read(1, 16, 8)
	assert.Equal(t, vals(1, 2, 3, 4, 5, 6, 7, 8), record.Data)
	// Partial overwrite of the first chunk.
	store.Write(1, 0, vals(9, 9, 9, 9))
	record, _ = store.Read(1, 0, 2)
	assert.Equal(t, vals(9, 9), record.Data)
	//
	record, _ = store.Read(1, 0, 8)
	assert.Equal(t, vals(9, 9, 9, 9, 5, 6, 7, 8), record.Data)
	// Single-cell write, then unaligned reads around it.
	store.Write(1, 2, vals(100))
	record, _ = store.Read(1, 1, 4)
	assert.Equal(t, vals(9, 100, 9, 5), record.Data)
	//
	record, _ = store.Read(1, 2, 8)
	assert.Equal(t, vals(100, 9, 5, 6, 7, 8, 0, 0), record.Data)
	// Last cell of the second image chunk.
	store.Write(1, 23, vals(77))
	record, _ = store.Read(1, 23, 2)
	assert.Equal(t, vals(77, 0), record.Data)
	// Untouched regions default to zero.
	record, _ = store.Read(1, 100, 4)
	assert.Equal(t, vals(0, 0, 0, 0), record.Data)
	// Whole-chunk overwrite.
	store.Write(1, 16, vals(50, 50, 50, 50, 50, 50, 50, 50))
	record, _ = store.Read(1, 16, 8)
	assert.Equal(t, vals(50, 50, 50, 50, 50, 50, 50, 50), record.Data)
}
