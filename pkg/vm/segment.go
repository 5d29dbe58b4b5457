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

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"

	"github.com/consensys/go-zkvm/pkg/bus"
	"github.com/consensys/go-zkvm/pkg/chip"
	"github.com/consensys/go-zkvm/pkg/chip/bitwise"
	"github.com/consensys/go-zkvm/pkg/chip/rangecheck"
	"github.com/consensys/go-zkvm/pkg/hasher"
	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm/memory"
)

// boundaryChip abstracts over the volatile and persistent memory interfaces.
type boundaryChip interface {
	chip.TraceGenerator
	chip.Interactor
	// Finalize settles the final memory snapshot into the boundary.
	Finalize(final memory.TimestampedEquipartition)
}

// ChipTrace pairs a chip name with its generated trace matrix.
type ChipTrace struct {
	Name  string
	Trace *chip.Matrix
}

// ProofInput is everything a segment hands to the prover: the ordered public
// values and one trace per chip.
type ProofInput struct {
	PublicValues []fr.Element
	Traces       []ChipTrace
}

// Segment drives one contiguous slice of execution: fetch, dispatch, execute,
// segment-check.  It owns a fresh set of chips; memory state enters via the
// image and leaves via the finalised snapshot.
type Segment struct {
	cfg       *Config
	env       *Environment
	hasher    hasher.Hasher
	dispatch  *dispatchTable
	connector *ConnectorChip
	boundary  boundaryChip
	// merkle is nil in volatile mode.
	merkle    *memory.MerkleChip
	executors []Executor
	policy    *segmentationPolicy
	//
	state      ExecutionState
	instret    uint64
	terminated bool
	exitCode   uint32
	ran        bool
	// final snapshot, set by Finalize.
	final memory.TimestampedEquipartition
}

// NewSegment constructs a segment starting from the given state over the
// given memory image.  The chip-set builder is invoked against a fresh
// environment; in volatile mode the image must be empty.
func NewSegment(cfg *Config, h hasher.Hasher, prog *program.Program, image memory.Equipartition,
	streams *Streams, builder ChipSetBuilder, start ExecutionState) (*Segment, error) {
	//
	if err := cfg.Validate(); err != nil {
		return nil, err
	} else if cfg.Mode == Volatile && len(image) != 0 {
		return nil, configurationError("volatile mode cannot start from a memory image")
	}
	//
	if start.Timestamp <= memory.InitialTimestamp {
		return nil, configurationError("segment cannot start at timestamp %d", start.Timestamp)
	}
	//
	rangeChecker := rangecheck.New(bus.RangeCheck, cfg.RangeMaxBits)
	controller := memory.NewController(bus.Memory, image, cfg.InitialBlockSize(),
		cfg.PointerMaxBits, cfg.TimestampMaxBits, rangeChecker)
	// The clock is global across segments; pick it up where the previous
	// segment left off.
	controller.SetTimestamp(start.Timestamp)
	//
	env := &Environment{
		Config:       cfg,
		Program:      program.NewChip(bus.Program, prog),
		Memory:       controller,
		Streams:      streams,
		PublicValues: NewPublicValuesChip(h, cfg.PublicValuesCapacity),
		RangeChecker: rangeChecker,
		Bitwise:      bitwise.New(bus.BitwiseLookup),
	}
	//
	p := &Segment{
		cfg:       cfg,
		env:       env,
		hasher:    h,
		connector: NewConnectorChip(bus.Execution),
		policy:    newSegmentationPolicy(cfg),
		state:     start,
	}
	//
	if cfg.Mode == Persistent {
		p.merkle = memory.NewMerkleChip(h, cfg.SpaceHeight, cfg.LabelHeight, cfg.ChunkSize, image)
		p.boundary = memory.NewPersistentBoundary(bus.Memory, cfg.ChunkSize, image, p.merkle)
	} else {
		p.boundary = memory.NewVolatileBoundary(bus.Memory, cfg.SpaceHeight+1,
			cfg.PointerMaxBits, rangeChecker)
	}
	//
	p.executors = builder(env)
	//
	dispatch, err := newDispatchTable(p.executors)
	//
	if err != nil {
		return nil, err
	}
	//
	p.dispatch = dispatch
	p.connector.Begin(start)
	//
	return p, nil
}

// Environment returns the environment the chip set was built against.
func (p *Segment) Environment() *Environment {
	return p.env
}

// Connector returns the segment's connector chip.
func (p *Segment) Connector() *ConnectorChip {
	return p.connector
}

// Instret returns the number of instructions executed so far.
func (p *Segment) Instret() uint64 {
	return p.instret
}

// IsTerminated reports whether the segment ended on a halt rather than a
// segmentation split.
func (p *Segment) IsTerminated() bool {
	return p.terminated
}

// Chips returns every chip participating in this segment, executors first.
func (p *Segment) Chips() []chip.Chip {
	chips := make([]chip.Chip, 0, len(p.executors)+8)
	//
	for _, executor := range p.executors {
		chips = append(chips, executor)
	}
	//
	chips = append(chips, p.env.Program, p.env.Memory, p.connector,
		p.env.PublicValues, p.env.RangeChecker, p.env.Bitwise, p.boundary)
	//
	for _, adapter := range p.env.Memory.Adapters().Chips() {
		chips = append(chips, adapter)
	}
	//
	if p.merkle != nil {
		chips = append(chips, p.merkle)
	}
	//
	return chips
}

// Run executes instructions until the guest halts or the segmentation policy
// fires, then settles the connector.  The end state becomes the next
// segment's start state.
func (p *Segment) Run() error {
	if p.ran {
		panic("segment already run")
	}
	//
	p.ran = true
	image := p.env.Program.Program()
	//
	for {
		if uint64(p.state.Pc) >= 1<<p.cfg.PcMaxBits {
			return executionError(ProgramError, p.state.Pc, p.instret,
				"pc exceeds %d bits", p.cfg.PcMaxBits)
		}
		//
		insn, err := image.InstructionAt(p.state.Pc)
		//
		if err != nil {
			return executionError(ProgramError, p.state.Pc, p.instret, "%s", err.Error())
		}
		//
		if insn.Opcode == program.Terminate {
			if !insn.C.IsUint64() || insn.C.Uint64() > 0xffffffff {
				return executionError(ProgramError, p.state.Pc, p.instret,
					"exit code %s not a machine word", insn.C.String())
			}
			//
			p.terminated = true
			p.exitCode = uint32(insn.C.Uint64())
		}
		//
		executor := p.dispatch.find(insn.Opcode)
		//
		if executor == nil {
			return executionError(ProgramError, p.state.Pc, p.instret,
				"no executor owns opcode %#x", uint32(insn.Opcode))
		}
		// The fetch is part of the proof: count it against the program bus.
		if _, err := p.env.Program.Fetch(p.state.Pc); err != nil {
			return executionError(ProgramError, p.state.Pc, p.instret, "%s", err.Error())
		}
		//
		next, err := executor.Execute(insn, p.state)
		//
		if err != nil {
			return p.annotate(err)
		} else if next.Timestamp <= p.state.Timestamp {
			return executionError(ConsistencyViolation, p.state.Pc, p.instret,
				"%s did not advance the clock", executor.Name())
		}
		//
		p.state = next
		p.instret++
		//
		if p.terminated {
			break
		}
		//
		if stop, reason := p.policy.shouldSegment(p.instret, p.Chips()); stop {
			p.policy.logDecision(p.instret, reason)
			//
			break
		}
	}
	//
	p.connector.End(p.state, p.terminated, p.exitCode)
	log.Debugf("segment ran %d instructions, ending at %s (terminated=%v)",
		p.instret, p.state.String(), p.terminated)
	//
	return nil
}

// Finalize settles memory into the boundary argument, replays the access log
// as a self-check, and assembles the proof input: public values first, then
// one generated trace per chip.
func (p *Segment) Finalize() (*ProofInput, error) {
	if p.final != nil {
		panic("segment already finalised")
	}
	//
	chunkSize := p.cfg.InitialBlockSize()
	p.final = p.env.Memory.Finalize(chunkSize)
	p.boundary.Finalize(p.final)
	//
	if err := memory.ReplayCheck(p.env.Memory.InitialMemory(), chunkSize,
		p.env.Memory.AccessLog(), p.final); err != nil {
		//
		return nil, executionError(ConsistencyViolation, p.state.Pc, p.instret, "%s", err.Error())
	}
	//
	input := &ProofInput{PublicValues: p.PublicValues()}
	//
	for _, c := range p.Chips() {
		if generator, ok := c.(chip.TraceGenerator); ok {
			input.Traces = append(input.Traces, ChipTrace{c.Name(), generator.GenerateTrace()})
		}
	}
	//
	return input, nil
}

// FinalMemory returns the finalised snapshot; panics before Finalize.
func (p *Segment) FinalMemory() memory.TimestampedEquipartition {
	if p.final == nil {
		panic("segment not finalised")
	}
	//
	return p.final
}

// InitialRoot returns the Merkle commitment of the segment's initial memory,
// or the zero digest in volatile mode.
func (p *Segment) InitialRoot() hasher.Digest {
	if p.merkle == nil {
		return hasher.Digest{}
	}
	//
	return p.merkle.InitialRoot()
}

// FinalRoot returns the Merkle commitment of the segment's final memory, or
// the zero digest in volatile mode.  Panics before Finalize.
func (p *Segment) FinalRoot() hasher.Digest {
	if p.merkle == nil {
		return hasher.Digest{}
	}
	//
	return p.merkle.FinalRoot()
}

// PublicValues assembles the segment's ordered public values: the connector
// state, the memory roots, the public-value root and the user slots.
func (p *Segment) PublicValues() []fr.Element {
	values := p.connector.PublicValues()
	values = append(values, p.InitialRoot().Limbs()...)
	values = append(values, p.FinalRoot().Limbs()...)
	values = append(values, p.env.PublicValues.Commit().Limbs()...)
	values = append(values, p.env.PublicValues.Slots()...)
	//
	return values
}

// EmitInteractions folds every chip's bus tuples into one accumulator; the
// multiset is empty iff every bus argument closes.
func (p *Segment) EmitInteractions(acc *bus.Multiset) {
	for _, c := range p.Chips() {
		if interactor, ok := c.(chip.Interactor); ok {
			interactor.EmitInteractions(acc)
		}
	}
}

// annotate stamps an executor error with the current execution point.
func (p *Segment) annotate(err error) error {
	if execErr, ok := err.(*ExecutionError); ok {
		execErr.Pc = p.state.Pc
		execErr.Instret = p.instret
		//
		return execErr
	}
	//
	return executionError(ProgramError, p.state.Pc, p.instret, "%s", err.Error())
}
