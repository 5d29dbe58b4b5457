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

// Package hasher abstracts the hash function behind Merkle commitments of
// memory and public values.  The machine core only ever needs two pure,
// deterministic operations: two-to-one digest compression and hashing of a
// field-element payload.  The concrete function is a collaborator chosen at
// configuration time; in-circuit it would be an algebraic hash, here the
// default is blake2b.
package hasher

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the byte width of a digest.
const DigestSize = 32

// Digest is an opaque hash output.
type Digest [DigestSize]byte

// String returns the hex encoding of this digest.
func (p Digest) String() string {
	return hex.EncodeToString(p[:])
}

// IsZero reports whether this is the all-zero digest.
func (p Digest) IsZero() bool {
	return p == Digest{}
}

// Limbs splits this digest into four 64-bit big-endian limbs, each embedded
// as a field element.  This is the form digests take in traces and public
// values.
func (p Digest) Limbs() []fr.Element {
	limbs := make([]fr.Element, 4)
	//
	for i := range limbs {
		limbs[i].SetBytes(p[i*8 : (i+1)*8])
	}
	//
	return limbs
}

// Hasher is the pure, deterministic hash collaborator used for Merkle
// commitments.
type Hasher interface {
	// Compress two child digests into their parent digest.
	Compress(left Digest, right Digest) Digest
	// Hash a field-element payload into a leaf digest.
	Hash(payload []fr.Element) Digest
}

// Blake2b is the default Hasher, built on blake2b-256.
type Blake2b struct{}

// Compress implementation for the Hasher interface.
func (p Blake2b) Compress(left Digest, right Digest) Digest {
	var buf [2 * DigestSize]byte
	//
	copy(buf[:DigestSize], left[:])
	copy(buf[DigestSize:], right[:])
	//
	return blake2b.Sum256(buf[:])
}

// Hash implementation for the Hasher interface.  Elements are hashed in their
// canonical big-endian form.
func (p Blake2b) Hash(payload []fr.Element) Digest {
	buf := make([]byte, 0, len(payload)*fr.Bytes)
	//
	for i := range payload {
		bytes := payload[i].Bytes()
		buf = append(buf, bytes[:]...)
	}
	//
	return blake2b.Sum256(buf)
}

// MerkleRoot computes the root of a full binary Merkle tree over the given
// payload, split into leaves of chunkSize elements each.  The payload length
// is padded with zero elements up to a power-of-two number of chunks.
func MerkleRoot(h Hasher, payload []fr.Element, chunkSize uint) Digest {
	nchunks := max(1, (uint(len(payload))+chunkSize-1)/chunkSize)
	// round up to a full tree
	for nchunks&(nchunks-1) != 0 {
		nchunks++
	}
	//
	leaves := make([]Digest, nchunks)
	//
	for i := uint(0); i < nchunks; i++ {
		chunk := make([]fr.Element, chunkSize)
		//
		for j := uint(0); j < chunkSize; j++ {
			if k := i*chunkSize + j; k < uint(len(payload)) {
				chunk[j] = payload[k]
			}
		}
		//
		leaves[i] = h.Hash(chunk)
	}
	// fold pairwise up to the root
	for len(leaves) > 1 {
		next := make([]Digest, len(leaves)/2)
		//
		for i := range next {
			next[i] = h.Compress(leaves[2*i], leaves[2*i+1])
		}
		//
		leaves = next
	}
	//
	return leaves[0]
}
