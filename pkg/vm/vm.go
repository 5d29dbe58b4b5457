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
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-zkvm/pkg/hasher"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm/memory"
)

// VirtualMachine drives a program to termination as a chain of segments,
// threading memory state, hint streams and the architectural state across
// segment boundaries.
type VirtualMachine struct {
	cfg     Config
	hasher  hasher.Hasher
	program *program.Program
	builder ChipSetBuilder
}

// SegmentResult pairs an executed segment with its proof input.
type SegmentResult struct {
	Segment *Segment
	Proof   *ProofInput
}

// New constructs a machine over the given committed program and chip set.
func New(cfg Config, h hasher.Hasher, prog *program.Program, builder ChipSetBuilder) *VirtualMachine {
	return &VirtualMachine{cfg: cfg, hasher: h, program: prog, builder: builder}
}

// ExitCode extracts the guest's exit code from the last segment of a
// completed run.
func ExitCode(results []*SegmentResult) uint32 {
	if len(results) == 0 {
		return 0
	}
	//
	return results[len(results)-1].Segment.Connector().ExitCode()
}

// Execute runs the program to termination from the given initial memory
// image, producing one proof input per segment.  In volatile mode the image
// must be empty and the run must fit a single segment.
func (p *VirtualMachine) Execute(image memory.Equipartition, streams *Streams) ([]*SegmentResult, error) {
	state := ExecutionState{Pc: p.program.PcBase(), Timestamp: memory.InitialTimestamp + 1}
	//
	var results []*SegmentResult
	//
	for {
		segment, err := NewSegment(&p.cfg, p.hasher, p.program, image, streams, p.builder, state)
		//
		if err != nil {
			return results, err
		}
		//
		if err := segment.Run(); err != nil {
			return results, err
		}
		//
		proof, err := segment.Finalize()
		//
		if err != nil {
			return results, err
		}
		//
		results = append(results, &SegmentResult{segment, proof})
		log.Infof("segment %d: %d instructions, %s -> %s", len(results)-1,
			segment.Instret(), segment.Connector().Start().String(), segment.Connector().EndState().String())
		//
		if segment.IsTerminated() {
			return results, nil
		}
		//
		if segment.Instret() == 0 {
			return results, executionError(ResourceExhaustion, state.Pc, 0,
				"segment cannot make progress within trace caps")
		} else if p.cfg.Mode == Volatile {
			return results, executionError(ResourceExhaustion, state.Pc, segment.Instret(),
				"volatile run does not fit a single segment")
		}
		// Thread the final snapshot into the next segment's image.
		next := make(memory.Equipartition, len(image)+len(segment.FinalMemory()))
		//
		for key, values := range image {
			next[key] = values
		}
		//
		for key, chunk := range segment.FinalMemory() {
			next[key] = chunk.Values
		}
		//
		image = next
		state = segment.Connector().EndState()
	}
}

// VerifyLinkage checks the continuation invariants over a completed run: each
// segment starts where its predecessor ended, memory roots chain, and only
// the last segment terminates.
func VerifyLinkage(results []*SegmentResult) error {
	for i, result := range results {
		connector := result.Segment.Connector()
		//
		if connector.IsTerminated() != (i == len(results)-1) {
			return configurationError("segment %d termination out of place", i)
		}
		//
		if i == 0 {
			continue
		}
		//
		prev := results[i-1].Segment
		//
		if prev.Connector().EndState() != connector.Start() {
			return configurationError("segment %d starts at %s, not %s", i,
				connector.Start().String(), prev.Connector().EndState().String())
		} else if prev.FinalRoot() != result.Segment.InitialRoot() {
			return configurationError("segment %d initial root does not chain", i)
		}
	}
	//
	return nil
}
