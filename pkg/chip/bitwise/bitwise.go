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

// Package bitwise provides a byte-level lookup chip for XOR and AND.  The
// table enumerates all (x, y, op) triples over bytes; arithmetic chips
// consult it instead of constraining bit decompositions themselves.
package bitwise

import (
	"sync/atomic"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
)

// Op selects which bitwise operation a lookup proves.
type Op uint8

const (
	// Xor proves (x, y, x⊕y) triples.
	Xor Op = iota
	// And proves (x, y, x&y) triples.
	And
	nops
)

// trace columns: x, y, z, op, multiplicity.
const traceWidth = 5

// Chip is the bitwise lookup table.  As with the range checker, its
// multiplicity counters are incremented concurrently during trace generation
// and must therefore be atomic.
type Chip struct {
	busIndex bus.Index
	// count[op][x<<8|y] holds the multiplicity for (x, y, op).
	count [nops][1 << 16]atomic.Uint32
}

// New constructs an empty bitwise lookup chip.
func New(busIndex bus.Index) *Chip {
	return &Chip{busIndex: busIndex}
}

// Name implementation for the chip.Chip interface.
func (p *Chip) Name() string {
	return "bitwise_lookup"
}

// BusIndex returns the bus this table receives its lookups on.
func (p *Chip) BusIndex() bus.Index {
	return p.busIndex
}

// RequestXor registers one (x, y, x⊕y) lookup and returns the result.
func (p *Chip) RequestXor(x, y uint8) uint8 {
	p.count[Xor][uint(x)<<8|uint(y)].Add(1)
	return x ^ y
}

// RequestAnd registers one (x, y, x&y) lookup and returns the result.
func (p *Chip) RequestAnd(x, y uint8) uint8 {
	p.count[And][uint(x)<<8|uint(y)].Add(1)
	return x & y
}

// CurrentTraceHeight implementation for the chip.Chip interface.  Only pairs
// actually requested occupy rows.
func (p *Chip) CurrentTraceHeight() uint {
	var height uint
	//
	for op := range p.count {
		for i := range p.count[op] {
			if p.count[op][i].Load() != 0 {
				height++
			}
		}
	}
	//
	return height
}

// TraceWidth implementation for the chip.Chip interface.
func (p *Chip) TraceWidth() uint {
	return traceWidth
}

// GenerateTrace produces one row per requested (x, y, op) triple carrying its
// multiplicity.
func (p *Chip) GenerateTrace() *chip.Matrix {
	trace := chip.NewMatrix(p.CurrentTraceHeight(), traceWidth)
	row := uint(0)
	//
	for op := range p.count {
		for i := range p.count[op] {
			count := p.count[op][i].Load()
			if count == 0 {
				continue
			}
			//
			x, y := uint8(i>>8), uint8(i)
			//
			trace.SetUint64(row, 0, uint64(x))
			trace.SetUint64(row, 1, uint64(y))
			trace.SetUint64(row, 2, uint64(apply(Op(op), x, y)))
			trace.SetUint64(row, 3, uint64(op))
			trace.SetUint64(row, 4, uint64(count))
			//
			row++
		}
	}
	//
	return trace
}

// EmitInteractions implementation for the chip.Interactor interface.
func (p *Chip) EmitInteractions(acc *bus.Multiset) {
	for op := range p.count {
		for i := range p.count[op] {
			if count := p.count[op][i].Load(); count != 0 {
				x, y := uint8(i>>8), uint8(i)
				tuple := bus.BitwiseTuple(x, y, apply(Op(op), x, y), uint8(op))
				acc.Receive(p.busIndex, tuple, uint64(count))
			}
		}
	}
}

func apply(op Op, x, y uint8) uint8 {
	if op == Xor {
		return x ^ y
	}
	//
	return x & y
}
