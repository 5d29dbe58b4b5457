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

// Package rangecheck provides a lookup chip proving that a value x fits in b
// bits, where b can be any integer in [0, range_max_bits].  The same chip
// serves every bit size; its table enumerates all (value, bits) pairs.  The
// multiplicity counters are the only shared mutable state across parallel
// trace generation, hence they are atomic.
package rangecheck

import (
	"fmt"
	"sync/atomic"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
)

// width of the multiplicity trace; the (value, bits) columns are preprocessed.
const traceWidth = 1

// Chip is a variable range-check lookup table.  Executors request a check by
// calling AddCount; the table row for that (value, bits) pair receives with
// the accumulated multiplicity.
type Chip struct {
	busIndex bus.Index
	// maximum number of bits this table can check.
	rangeMaxBits uint
	// count[2^bits + value] holds the multiplicity for (value, bits).
	count []atomic.Uint32
}

// New constructs a range-check chip covering bit sizes 0 up to rangeMaxBits.
func New(busIndex bus.Index, rangeMaxBits uint) *Chip {
	return &Chip{
		busIndex:     busIndex,
		rangeMaxBits: rangeMaxBits,
		count:        make([]atomic.Uint32, 1<<(rangeMaxBits+1)),
	}
}

// Name implementation for the chip.Chip interface.
func (p *Chip) Name() string {
	return "range_checker"
}

// BusIndex returns the bus this table serves.
func (p *Chip) BusIndex() bus.Index {
	return p.busIndex
}

// RangeMaxBits returns the maximum bit size this chip can check.
func (p *Chip) RangeMaxBits() uint {
	return p.rangeMaxBits
}

// AddCount registers one range check of value against the given bit size.
// Panics if the request lies outside the table, since that is a programming
// error in the requesting chip.
func (p *Chip) AddCount(value uint32, bits uint) {
	if bits > p.rangeMaxBits || uint64(value) >= 1<<bits {
		panic(fmt.Sprintf("range check (%d, %d bits) exceeds table (max %d bits)",
			value, bits, p.rangeMaxBits))
	}
	// index layout mirrors the preprocessed table: 2^bits + value.
	idx := (uint64(1) << bits) + uint64(value)
	p.count[idx].Add(1)
}

// Decompose range checks that value fits in bits by splitting it into limbs
// of at most rangeMaxBits bits each, registering one check per limb.  The
// limbs are returned little-endian.
func (p *Chip) Decompose(value uint32, bits uint) []uint32 {
	var limbs []uint32
	//
	mask := uint32(1<<p.rangeMaxBits) - 1
	remaining := bits
	//
	for remaining > 0 {
		limb := value & mask
		limbBits := min(remaining, p.rangeMaxBits)
		p.AddCount(limb, limbBits)
		limbs = append(limbs, limb)
		//
		value = value >> p.rangeMaxBits
		remaining -= limbBits
	}
	//
	if value != 0 {
		panic(fmt.Sprintf("value does not fit in %d bits", bits))
	}
	//
	return limbs
}

// CurrentTraceHeight implementation for the chip.Chip interface.  The table
// height is fixed by the bit range, independent of usage.
func (p *Chip) CurrentTraceHeight() uint {
	return uint(len(p.count))
}

// TraceWidth implementation for the chip.Chip interface.
func (p *Chip) TraceWidth() uint {
	return traceWidth
}

// GenerateTrace produces the multiplicity column over the preprocessed
// (value, bits) table.
func (p *Chip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(uint(len(p.count)), traceWidth)
	//
	for i := range p.count {
		trace.SetUint64(uint(i), 0, uint64(p.count[i].Load()))
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface: each
// table row receives its (value, bits) tuple with the accumulated
// multiplicity.
func (p *Chip) EmitInteractions(acc *bus.Multiset) {
	for bits := uint(0); bits <= p.rangeMaxBits; bits++ {
		for value := uint64(0); value < 1<<bits; value++ {
			idx := (uint64(1) << bits) + value
			//
			if count := p.count[idx].Load(); count != 0 {
				acc.Receive(p.busIndex, bus.RangeCheckTuple(uint32(value), bits), uint64(count))
			}
		}
	}
}
