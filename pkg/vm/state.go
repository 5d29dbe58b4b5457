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

// Package vm implements the architectural core of the machine: the segment
// execution loop driving opcode dispatch over a committed program, the
// connector and public-value chips, the segmentation policy, and the
// multi-segment driver threading memory state and hint streams across
// segment boundaries.
package vm

import (
	"fmt"
)

// ExecutionState is the architectural state threaded between instructions: the
// program counter and the memory clock.  Everything else lives in memory.
type ExecutionState struct {
	Pc        uint32
	Timestamp uint32
}

func (p ExecutionState) String() string {
	return fmt.Sprintf("(pc=%#x, t=%d)", p.Pc, p.Timestamp)
}
