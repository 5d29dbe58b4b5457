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
)

// ErrorKind classifies fatal execution failures.  Nothing is retried:
// execution is deterministic, so a rerun of the same inputs reproduces the
// same error.
type ErrorKind uint8

const (
	// ConfigurationError covers failures raised at setup, such as
	// overlapping opcode ownership or an invalid chunk size.
	ConfigurationError ErrorKind = iota
	// ProgramError covers guest failures raised during execution: illegal
	// opcode, pc overflow, misuse of the public-value buffer.
	ProgramError
	// ResourceExhaustion indicates a segment cannot make progress because
	// a single instruction alone exceeds the trace caps.
	ResourceExhaustion
	// HintStarvation indicates an executor demanded a hint from an empty
	// stream.
	HintStarvation
	// ConsistencyViolation indicates the final state diverges from a
	// replay of the access log, which is a bug in an executor or adapter.
	ConsistencyViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case ProgramError:
		return "program error"
	case ResourceExhaustion:
		return "resource exhaustion"
	case HintStarvation:
		return "hint starvation"
	case ConsistencyViolation:
		return "consistency violation"
	}
	//
	return "unknown error"
}

// ExecutionError is a fatal failure, carrying the kind together with the pc
// and instruction index at which it arose (both zero for setup failures).
type ExecutionError struct {
	Kind    ErrorKind
	Pc      uint32
	Instret uint64
	Message string
}

// Error implementation for the error interface.
func (p *ExecutionError) Error() string {
	if p.Kind == ConfigurationError {
		return fmt.Sprintf("%s: %s", p.Kind, p.Message)
	}
	//
	return fmt.Sprintf("%s at pc %#x (instruction %d): %s", p.Kind, p.Pc, p.Instret, p.Message)
}

// configurationError constructs a setup failure.
func configurationError(format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: ConfigurationError, Message: fmt.Sprintf(format, args...)}
}

// executionError constructs a runtime failure of the given kind at the given
// execution point.
func executionError(kind ErrorKind, pc uint32, instret uint64, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: kind, Pc: pc, Instret: instret, Message: fmt.Sprintf(format, args...)}
}
