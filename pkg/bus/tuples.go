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

// ExecutionTuple constructs the (pc, timestamp) tuple chained over the
// execution bus.
func ExecutionTuple(pc uint32, timestamp uint32) []fr.Element {
	return Tuple(uint64(pc), uint64(timestamp))
}

// MemoryTuple constructs the (address_space, block_start, block_len,
// timestamp, values...) tuple carried by the memory bus.
func MemoryTuple(space uint32, start uint32, timestamp uint32, values []fr.Element) []fr.Element {
	tuple := make([]fr.Element, 4+len(values))
	//
	tuple[0].SetUint64(uint64(space))
	tuple[1].SetUint64(uint64(start))
	tuple[2].SetUint64(uint64(len(values)))
	tuple[3].SetUint64(uint64(timestamp))
	copy(tuple[4:], values)
	//
	return tuple
}

// RangeCheckTuple constructs the (value, max_bits) tuple of the range-check
// bus.
func RangeCheckTuple(value uint32, bits uint) []fr.Element {
	return Tuple(uint64(value), uint64(bits))
}

// BitwiseTuple constructs the (x, y, z, op) tuple of the bitwise-lookup bus.
func BitwiseTuple(x, y, z uint8, op uint8) []fr.Element {
	return Tuple(uint64(x), uint64(y), uint64(z), uint64(op))
}
