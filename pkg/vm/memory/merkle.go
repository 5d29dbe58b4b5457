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

	"github.com/consensys/go-zkvm/pkg/hasher"
)

// noChild marks an arena child slot whose subtree is uniformly zero; such
// subtrees share precomputed digests and are never materialised.
const noChild int32 = -1

// merkleNode is one materialised tree node.  Children are arena indices, with
// noChild standing for a uniform-zero subtree of the appropriate height.
type merkleNode struct {
	left   int32
	right  int32
	digest hasher.Digest
}

// MerkleTree is a sparse binary tree over every (space, chunk label) pair,
// committing to the full memory image.  Nodes live in an append-only arena,
// so updating a leaf preserves every earlier version of the tree; in
// particular the initial and final trees of a segment share all untouched
// subtrees.
type MerkleTree struct {
	hasher hasher.Hasher
	// spaceHeight levels select the address space, then labelHeight levels
	// select the chunk label.
	spaceHeight uint
	labelHeight uint
	chunkSize   uint32
	// zeroDigests[h] is the digest of a uniform-zero subtree of height h.
	zeroDigests []hasher.Digest
	nodes       []merkleNode
	root        int32
}

// NewMerkleTree constructs an empty (all-zero) tree and then inserts the
// given initial image.
func NewMerkleTree(h hasher.Hasher, spaceHeight, labelHeight uint, chunkSize uint32,
	initial Equipartition) *MerkleTree {
	//
	height := spaceHeight + labelHeight
	zeroDigests := make([]hasher.Digest, height+1)
	zeroDigests[0] = h.Hash(make([]fr.Element, chunkSize))
	//
	for i := uint(1); i <= height; i++ {
		zeroDigests[i] = h.Compress(zeroDigests[i-1], zeroDigests[i-1])
	}
	//
	p := &MerkleTree{
		hasher:      h,
		spaceHeight: spaceHeight,
		labelHeight: labelHeight,
		chunkSize:   chunkSize,
		zeroDigests: zeroDigests,
		root:        noChild,
	}
	// Deterministic construction order.
	for _, key := range initial.SortedKeys() {
		p.Update(key, initial[key])
	}
	//
	return p
}

// Height returns the number of levels above the leaves.
func (p *MerkleTree) Height() uint {
	return p.spaceHeight + p.labelHeight
}

// NodeCount returns the number of materialised nodes across all versions.
func (p *MerkleTree) NodeCount() uint {
	return uint(len(p.nodes))
}

// Root returns the digest of the current tree version.
func (p *MerkleTree) Root() hasher.Digest {
	return p.digestOf(p.root, p.Height())
}

// Update replaces the chunk at the given key, rehashing its path to the root.
// Earlier versions of the tree remain intact.
func (p *MerkleTree) Update(key ChunkKey, values []fr.Element) {
	if uint32(len(values)) != p.chunkSize {
		panic(fmt.Sprintf("chunk (%d,%d) has %d cells (expected %d)",
			key.Space, key.Label, len(values), p.chunkSize))
	}
	//
	p.root = p.update(p.root, p.Height(), p.leafIndex(key), p.hasher.Hash(values))
}

// leafIndex maps a chunk key to its leaf position.  Address spaces are
// numbered from 1, so space 1 owns the first subtree.
func (p *MerkleTree) leafIndex(key ChunkKey) uint64 {
	if key.Space == 0 || uint64(key.Space) > 1<<p.spaceHeight {
		panic(fmt.Sprintf("address space %d outside tree of height %d", key.Space, p.spaceHeight))
	} else if uint64(key.Label) >= 1<<p.labelHeight {
		panic(fmt.Sprintf("chunk label %d outside tree of height %d", key.Label, p.labelHeight))
	}
	//
	return uint64(key.Space-1)<<p.labelHeight | uint64(key.Label)
}

func (p *MerkleTree) update(node int32, height uint, index uint64, leaf hasher.Digest) int32 {
	if height == 0 {
		return p.alloc(merkleNode{noChild, noChild, leaf})
	}
	//
	left, right := noChild, noChild
	//
	if node != noChild {
		left, right = p.nodes[node].left, p.nodes[node].right
	}
	//
	if half := uint64(1) << (height - 1); index < half {
		left = p.update(left, height-1, index, leaf)
	} else {
		right = p.update(right, height-1, index-half, leaf)
	}
	//
	digest := p.hasher.Compress(p.digestOf(left, height-1), p.digestOf(right, height-1))
	//
	return p.alloc(merkleNode{left, right, digest})
}

func (p *MerkleTree) alloc(node merkleNode) int32 {
	p.nodes = append(p.nodes, node)
	//
	return int32(len(p.nodes) - 1)
}

func (p *MerkleTree) digestOf(node int32, height uint) hasher.Digest {
	if node == noChild {
		return p.zeroDigests[height]
	}
	//
	return p.nodes[node].digest
}
