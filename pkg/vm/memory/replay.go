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
)

// ReplayCheck replays an access log against the initial image and verifies
// replay consistency: every read observes exactly the last value written (or
// the initial value), timestamps strictly increase along the log, and the
// final snapshot agrees with the replayed state.  This is the semantic ground
// truth which the offline bus argument proves in-circuit.
func ReplayCheck(initial Equipartition, initialBlockSize uint32, log []LogEntry,
	final TimestampedEquipartition) error {
	//
	shadow := make(map[Address]fr.Element)
	//
	for key, values := range initial {
		for i, value := range values {
			shadow[Address{key.Space, key.Label*initialBlockSize + uint32(i)}] = value
		}
	}
	//
	lastTimestamp := InitialTimestamp
	//
	for i, entry := range log {
		if entry.Timestamp <= lastTimestamp {
			return fmt.Errorf("access %d: timestamp %d does not advance past %d",
				i, entry.Timestamp, lastTimestamp)
		}
		//
		lastTimestamp = entry.Timestamp
		//
		if entry.Space == 0 {
			return fmt.Errorf("access %d: identity-space access in the log", i)
		}
		//
		for j := range entry.Data {
			addr := Address{entry.Space, entry.Pointer + uint32(j)}
			//
			if entry.IsWrite {
				shadow[addr] = entry.Data[j]
			} else if current := shadow[addr]; !entry.Data[j].Equal(&current) {
				return fmt.Errorf("access %d: read of (%d,%d) returned %s (expected %s)",
					i, entry.Space, addr.Pointer, entry.Data[j].String(), current.String())
			}
		}
	}
	// The final snapshot must agree with the replayed state, and its
	// timestamps must not outrun the log.
	for key, chunk := range final {
		for j, value := range chunk.Values {
			addr := Address{key.Space, key.Label*uint32(len(chunk.Values)) + uint32(j)}
			//
			if current := shadow[addr]; !value.Equal(&current) {
				return fmt.Errorf("final chunk (%d,%d): cell %d holds %s (expected %s)",
					key.Space, key.Label, addr.Pointer, value.String(), current.String())
			}
		}
		//
		if chunk.Timestamp > lastTimestamp {
			return fmt.Errorf("final chunk (%d,%d): timestamp %d outruns the log (last %d)",
				key.Space, key.Label, chunk.Timestamp, lastTimestamp)
		}
	}
	//
	return nil
}
