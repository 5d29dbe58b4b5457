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
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// InitialTimestamp is the timestamp carried by all initial-memory state.
// Execution timestamps are strictly greater.
const InitialTimestamp uint32 = 0

// Address identifies a single cell as an (address space, pointer) pair.
// Address space 0 is the identity space: it is never backed by the store.
type Address struct {
	Space   uint32
	Pointer uint32
}

// Less orders addresses lexicographically by (space, pointer).
func (p Address) Less(other Address) bool {
	if p.Space != other.Space {
		return p.Space < other.Space
	}
	//
	return p.Pointer < other.Pointer
}

// ChunkKey identifies one block of an equipartition: the chunk covers
// pointers [Label*N, (Label+1)*N) of the given address space.
type ChunkKey struct {
	Space uint32
	Label uint32
}

// Equipartition is a partition of memory into equally-sized, aligned chunks.
// It is the at-rest form of a memory state: initial memory images and
// finalised snapshots are both equipartitions.
type Equipartition map[ChunkKey][]fr.Element

// TimestampedValues couples a chunk's values with the timestamp of its last
// access.
type TimestampedValues struct {
	Timestamp uint32
	Values    []fr.Element
}

// TimestampedEquipartition is the finalised form of memory: every touched
// chunk annotated with its final timestamp.
type TimestampedEquipartition map[ChunkKey]TimestampedValues

// SortedKeys returns the chunk keys in (space, label) order, which is the
// order boundary traces are laid out in.
func (p TimestampedEquipartition) SortedKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(p))
	//
	for key := range p {
		keys = append(keys, key)
	}
	//
	sortChunkKeys(keys)
	//
	return keys
}

// SortedKeys returns the chunk keys in (space, label) order.
func (p Equipartition) SortedKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(p))
	//
	for key := range p {
		keys = append(keys, key)
	}
	//
	sortChunkKeys(keys)
	//
	return keys
}

func sortChunkKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Space != keys[j].Space {
			return keys[i].Space < keys[j].Space
		}
		//
		return keys[i].Label < keys[j].Label
	})
}

// ReadRecord is one timestamped block read.  PrevTimestamp is the timestamp
// the block carried before this access; the offline argument hinges on
// PrevTimestamp < Timestamp.
type ReadRecord struct {
	Space   uint32
	Pointer uint32
	// Timestamp of this access; PrevTimestamp is the block's timestamp
	// beforehand.
	Timestamp     uint32
	PrevTimestamp uint32
	Data          []fr.Element
}

// Value returns the single cell read; panics unless the record covers exactly
// one cell.
func (p *ReadRecord) Value() fr.Element {
	if len(p.Data) != 1 {
		panic("not a unit read")
	}
	//
	return p.Data[0]
}

// WriteRecord is one timestamped block write, retaining the overwritten
// values so the access can be replayed and the bus tuples reconstructed.
type WriteRecord struct {
	Space   uint32
	Pointer uint32
	// Timestamp of this access; PrevTimestamp is the block's timestamp
	// beforehand.
	Timestamp     uint32
	PrevTimestamp uint32
	Data          []fr.Element
	PrevData      []fr.Element
}

// AdapterKind distinguishes the two access-adapter row shapes.
type AdapterKind uint8

const (
	// Split divides a block into two halves, both inheriting the parent's
	// timestamp.
	Split AdapterKind = iota
	// Merge combines two adjacent equal-length blocks; the result adopts
	// the larger of the two timestamps.
	Merge
)

// AdapterRecord is one split or merge event.  Data always holds the parent
// (larger) block's values; for a merge, LeftTimestamp and RightTimestamp are
// the child timestamps and Timestamp is their maximum.
type AdapterRecord struct {
	Kind      AdapterKind
	Space     uint32
	Start     uint32
	Timestamp uint32
	// Child timestamps; only meaningful under Merge.
	LeftTimestamp  uint32
	RightTimestamp uint32
	Data           []fr.Element
}
