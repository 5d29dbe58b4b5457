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
	"math/bits"
)

// ContinuationMode selects the memory-interface variant.
type ContinuationMode uint8

const (
	// Volatile runs have no continuations: a single segment, empty initial
	// memory and a sorted-list final-memory commitment.
	Volatile ContinuationMode = iota
	// Persistent runs thread Merkle-committed memory state across an
	// unbounded chain of segments.
	Persistent
)

func (m ContinuationMode) String() string {
	if m == Persistent {
		return "persistent"
	}
	//
	return "volatile"
}

// segmentCheckInterval amortises the per-chip height scan of the segmentation
// policy: the instruction cap is checked every instruction, the expensive
// scans only this often.
const segmentCheckInterval uint64 = 100

// Config carries every knob of the machine core.  The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// Mode selects volatile or persistent memory.
	Mode ContinuationMode
	// MaxSegmentLen is the hard cap on instructions per segment.
	MaxSegmentLen uint64
	// MaxTraceHeight caps any single chip's trace height.  The policy
	// fires at half this, leaving headroom for the in-flight instruction.
	MaxTraceHeight uint
	// MaxCellsPerChip caps height times width per chip.
	MaxCellsPerChip uint
	// PublicValuesCapacity is the size of the public-value buffer.
	PublicValuesCapacity uint
	// PcMaxBits bounds the program counter.
	PcMaxBits uint
	// PointerMaxBits bounds memory pointers.
	PointerMaxBits uint
	// TimestampMaxBits bounds the memory clock.
	TimestampMaxBits uint
	// RangeMaxBits is the largest limb the range-check table handles
	// directly; wider checks decompose.
	RangeMaxBits uint
	// ChunkSize is the Merkle leaf width in persistent mode.
	ChunkSize uint32
	// SpaceHeight and LabelHeight are the Merkle tree levels devoted to
	// the address space and the chunk label respectively.
	SpaceHeight uint
	LabelHeight uint
}

// DefaultConfig returns the defaults: volatile mode sized for development.
func DefaultConfig() Config {
	return Config{
		Mode:                 Volatile,
		MaxSegmentLen:        (1 << 22) - 100,
		MaxTraceHeight:       1 << 23,
		MaxCellsPerChip:      1 << 29,
		PublicValuesCapacity: 32,
		PcMaxBits:            30,
		PointerMaxBits:       29,
		TimestampMaxBits:     29,
		RangeMaxBits:         17,
		ChunkSize:            8,
		SpaceHeight:          3,
		LabelHeight:          26,
	}
}

// Validate raises a configuration error for inconsistent settings.
func (p *Config) Validate() error {
	if p.ChunkSize == 0 || bits.OnesCount32(p.ChunkSize) != 1 {
		return configurationError("chunk size %d not a power of two", p.ChunkSize)
	} else if p.MaxSegmentLen == 0 {
		return configurationError("max segment length cannot be zero")
	} else if p.MaxTraceHeight == 0 || p.MaxCellsPerChip == 0 {
		return configurationError("trace caps cannot be zero")
	} else if p.RangeMaxBits == 0 || p.RangeMaxBits > p.TimestampMaxBits {
		return configurationError("range table of %d bits unusable for %d bit clocks",
			p.RangeMaxBits, p.TimestampMaxBits)
	} else if p.PcMaxBits > 32 || p.PointerMaxBits > 32 || p.TimestampMaxBits > 32 {
		return configurationError("register widths beyond 32 bits unsupported")
	}
	//
	if p.Mode == Persistent {
		chunkBits := uint(bits.TrailingZeros32(p.ChunkSize))
		//
		if p.LabelHeight+chunkBits < p.PointerMaxBits {
			return configurationError("merkle label height %d too small for %d bit pointers",
				p.LabelHeight, p.PointerMaxBits)
		}
	}
	//
	return nil
}

// InitialBlockSize returns the granularity of untouched memory: single cells
// in volatile mode, whole chunks in persistent mode.
func (p *Config) InitialBlockSize() uint32 {
	if p.Mode == Persistent {
		return p.ChunkSize
	}
	//
	return 1
}
