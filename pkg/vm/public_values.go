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
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/hasher"
)

// public-value trace columns: slot, value, written.
const publicValuesTraceWidth = 3

// PublicValuesChip is the write-once indexed buffer the guest reveals values
// into.  A slot may be revealed at most once; revealing the same value twice
// is tolerated as a no-op, revealing a different value is a hard error.  At
// segment end the buffer is committed via a Merkle root exposed in the
// segment public values.
type PublicValuesChip struct {
	hasher hasher.Hasher
	slots  []fr.Element
	// written[i] marks slot i as revealed.
	written []bool
}

// NewPublicValuesChip constructs an empty buffer of the given capacity.
func NewPublicValuesChip(h hasher.Hasher, capacity uint) *PublicValuesChip {
	return &PublicValuesChip{
		hasher:  h,
		slots:   make([]fr.Element, capacity),
		written: make([]bool, capacity),
	}
}

// Name implementation for the chip.Chip interface.
func (p *PublicValuesChip) Name() string {
	return "public_values"
}

// Capacity returns the number of slots in the buffer.
func (p *PublicValuesChip) Capacity() uint {
	return uint(len(p.slots))
}

// Reveal writes value into the given slot.  Re-revealing an identical value
// is a no-op; a conflicting value or an out-of-range slot is an error.
func (p *PublicValuesChip) Reveal(slot uint32, value fr.Element) error {
	if uint(slot) >= uint(len(p.slots)) {
		return &ExecutionError{
			Kind:    ProgramError,
			Message: fmt.Sprintf("public-value slot %d outside buffer of %d", slot, len(p.slots)),
		}
	}
	//
	if p.written[slot] {
		if p.slots[slot].Equal(&value) {
			return nil
		}
		//
		return &ExecutionError{
			Kind: ProgramError,
			Message: fmt.Sprintf("public-value slot %d already holds %s, cannot reveal %s",
				slot, p.slots[slot].String(), value.String()),
		}
	}
	//
	p.slots[slot] = value
	p.written[slot] = true
	//
	return nil
}

// Slots returns the buffer contents, zero for unrevealed slots.
func (p *PublicValuesChip) Slots() []fr.Element {
	return p.slots
}

// Commit computes the Merkle root over the (zero-padded) buffer.
func (p *PublicValuesChip) Commit() hasher.Digest {
	return hasher.MerkleRoot(p.hasher, p.slots, 1)
}

// ProveSlot produces the Merkle path from one slot to the buffer root: the
// sibling digests from leaf to root, low level first.
func (p *PublicValuesChip) ProveSlot(slot uint32) []hasher.Digest {
	leaves := p.leafDigests()
	var path []hasher.Digest
	//
	index := uint(slot)
	//
	for len(leaves) > 1 {
		path = append(path, leaves[index^1])
		next := make([]hasher.Digest, len(leaves)/2)
		//
		for i := range next {
			next[i] = p.hasher.Compress(leaves[2*i], leaves[2*i+1])
		}
		//
		leaves = next
		index /= 2
	}
	//
	return path
}

// VerifySlot recomposes a Merkle path for (slot, value) and checks it against
// the given root.
func VerifySlot(h hasher.Hasher, root hasher.Digest, slot uint32, value fr.Element,
	path []hasher.Digest) bool {
	//
	digest := h.Hash([]fr.Element{value})
	index := uint(slot)
	//
	for _, sibling := range path {
		if index%2 == 0 {
			digest = h.Compress(digest, sibling)
		} else {
			digest = h.Compress(sibling, digest)
		}
		//
		index /= 2
	}
	//
	return digest == root
}

// CurrentTraceHeight implementation for the chip.Chip interface: one row per
// slot regardless of usage.
func (p *PublicValuesChip) CurrentTraceHeight() uint {
	return uint(len(p.slots))
}

// TraceWidth implementation for the chip.Chip interface.
func (p *PublicValuesChip) TraceWidth() uint {
	return publicValuesTraceWidth
}

// GenerateTrace produces one row per slot: (slot, value, written).
func (p *PublicValuesChip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(uint(len(p.slots)), publicValuesTraceWidth)
	//
	for i := range p.slots {
		trace.SetUint64(uint(i), 0, uint64(i))
		trace.Set(uint(i), 1, p.slots[i])
		//
		if p.written[i] {
			trace.SetUint64(uint(i), 2, 1)
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.  The
// buffer is exposed through its committed root, not through a bus.
func (p *PublicValuesChip) EmitInteractions(acc *bus.Multiset) {
	_ = acc
}

// leafDigests hashes each slot into a leaf, padded to a power of two.
func (p *PublicValuesChip) leafDigests() []hasher.Digest {
	n := chip.NextPowerOfTwo(uint(len(p.slots)))
	leaves := make([]hasher.Digest, n)
	var zero fr.Element
	//
	for i := range leaves {
		if i < len(p.slots) {
			leaves[i] = p.hasher.Hash([]fr.Element{p.slots[i]})
		} else {
			leaves[i] = p.hasher.Hash([]fr.Element{zero})
		}
	}
	//
	return leaves
}
