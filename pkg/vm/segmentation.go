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

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-zkvm/pkg/chip"
)

// segmentationPolicy decides when a segment must stop so its traces still fit
// the proving-key shape.  The instruction cap is checked every instruction;
// the per-chip scans are amortised over segmentCheckInterval instructions.
// Heights are compared against half the cap, leaving headroom for the rows
// one instruction can add before the next check.
type segmentationPolicy struct {
	maxSegmentLen   uint64
	maxTraceHeight  uint
	maxCellsPerChip uint
}

func newSegmentationPolicy(cfg *Config) *segmentationPolicy {
	return &segmentationPolicy{
		maxSegmentLen:   cfg.MaxSegmentLen,
		maxTraceHeight:  cfg.MaxTraceHeight,
		maxCellsPerChip: cfg.MaxCellsPerChip,
	}
}

// shouldSegment reports whether the segment must stop at this instruction
// boundary, along with a diagnostic reason.
func (p *segmentationPolicy) shouldSegment(instret uint64, chips []chip.Chip) (bool, string) {
	if instret >= p.maxSegmentLen {
		return true, fmt.Sprintf("instruction cap reached (%d)", p.maxSegmentLen)
	}
	// Amortise the per-chip scan.
	if instret%segmentCheckInterval != 0 {
		return false, ""
	}
	//
	for _, c := range chips {
		if height := c.CurrentTraceHeight(); height > p.maxTraceHeight/2 {
			return true, fmt.Sprintf("chip %s height %d exceeds %d", c.Name(), height, p.maxTraceHeight/2)
		} else if cells := chip.Cells(c); cells > p.maxCellsPerChip {
			return true, fmt.Sprintf("chip %s occupies %d cells (cap %d)", c.Name(), cells, p.maxCellsPerChip)
		}
	}
	//
	return false, ""
}

// logDecision records a firing policy at debug level.
func (p *segmentationPolicy) logDecision(instret uint64, reason string) {
	log.Debugf("segmenting after %d instructions: %s", instret, reason)
}
