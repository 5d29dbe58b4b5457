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
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Multiset accumulates the signed interactions of every chip across all buses.
// It is the runtime realisation of the logup-style interaction argument: the
// prover's emission order is irrelevant, only the final signed sum per tuple
// matters.  An execution is bus-consistent iff the accumulator is empty once
// every participating chip has emitted its interactions.
type Multiset struct {
	counts map[string]int64
	// retained keys for error reporting, since map keys are opaque encodings.
	tuples map[string]Interaction
}

// NewMultiset constructs an empty interaction accumulator.
func NewMultiset() *Multiset {
	return &Multiset{
		counts: make(map[string]int64),
		tuples: make(map[string]Interaction),
	}
}

// Send emits a tuple onto the given bus with multiplicity count.
func (p *Multiset) Send(bus Index, tuple []fr.Element, count uint64) {
	p.add(Interaction{bus, tuple, int64(count)})
}

// Receive consumes a tuple from the given bus with multiplicity count.
func (p *Multiset) Receive(bus Index, tuple []fr.Element, count uint64) {
	p.add(Interaction{bus, tuple, -int64(count)})
}

// Add applies a signed interaction to this accumulator.
func (p *Multiset) Add(interaction Interaction) {
	p.add(interaction)
}

// IsEmpty reports whether every bus closes, that is whether all signed
// multiplicities have cancelled out.
func (p *Multiset) IsEmpty() bool {
	return len(p.counts) == 0
}

// Failures returns a human-readable description of every tuple whose signed
// multiplicity did not cancel, sorted for deterministic output.  An empty
// result means all buses close.
func (p *Multiset) Failures() []string {
	var failures []string
	//
	for key, count := range p.counts {
		interaction := p.tuples[key]
		failures = append(failures,
			fmt.Sprintf("bus %d: tuple %s has residual multiplicity %d",
				interaction.Bus, tupleString(interaction.Tuple), count))
	}
	//
	sort.Strings(failures)
	//
	return failures
}

func (p *Multiset) add(interaction Interaction) {
	if interaction.Count == 0 {
		return
	}
	//
	key := encode(interaction.Bus, interaction.Tuple)
	total := p.counts[key] + interaction.Count
	//
	if total == 0 {
		delete(p.counts, key)
		delete(p.tuples, key)
	} else {
		p.counts[key] = total
		p.tuples[key] = interaction
	}
}

// encode flattens a bus index and tuple into a map key.  Field elements are
// encoded via their canonical big-endian form, hence two tuples collide iff
// they are equal.
func encode(bus Index, tuple []fr.Element) string {
	var builder strings.Builder
	//
	var prefix [4]byte
	//
	binary.BigEndian.PutUint32(prefix[:], uint32(bus))
	builder.Write(prefix[:])
	//
	for i := range tuple {
		bytes := tuple[i].Bytes()
		builder.Write(bytes[:])
	}
	//
	return builder.String()
}

func tupleString(tuple []fr.Element) string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	//
	for i := range tuple {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(tuple[i].String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}
