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
package bus

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Index identifies a bus within the machine.  Buses are fixed at configuration
// time and shared by every chip participating in the corresponding interaction
// argument.
type Index uint

// The standard bus catalogue.  Indices are stable: they are baked into the
// verifying key, so reordering them is a breaking change.
const (
	// Execution chains (pc, timestamp) pairs between executed instructions,
	// seeded and closed by the connector.
	Execution Index = iota
	// Program serves (pc, opcode, operands...) fetch tuples.
	Program
	// Memory carries all cell and block state transitions, including the
	// boundary and access adapter messages.
	Memory
	// RangeCheck proves 0 ≤ x < 2^k for requested (x, k) pairs.
	RangeCheck
	// BitwiseLookup proves byte-level (x, y, x⊕y) and (x, y, x&y) triples.
	BitwiseLookup
	// firstFree is the lowest index available for extension buses.
	firstFree //nolint
)

// Interaction is a signed tuple emitted onto a bus.  A positive count is a
// send, a negative count a receive.  The interaction argument for a bus holds
// exactly when the signed multiset of all tuples emitted by all participating
// chips sums to the empty multiset.
type Interaction struct {
	// Bus on which this tuple travels.
	Bus Index
	// Tuple of field elements being sent or received.
	Tuple []fr.Element
	// Count is the signed multiplicity.
	Count int64
}

// Tuple constructs a tuple of field elements from machine words.  Convenient
// for the many buses whose fields are all small unsigned values.
func Tuple(values ...uint64) []fr.Element {
	tuple := make([]fr.Element, len(values))
	//
	for i, v := range values {
		tuple[i].SetUint64(v)
	}
	//
	return tuple
}
