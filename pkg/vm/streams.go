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
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Streams is the deterministic input oracle threaded through an execution.
// The input stream holds whole vectors supplied by the host; a hint-input
// phantom moves the next vector onto the hint stream (prefixed with its
// length), from which the hint opcode pops single values.  Values are
// consumed exactly once in execution order, so proof generation replays
// identically.
type Streams struct {
	input [][]fr.Element
	hint  []fr.Element
}

// NewStreams constructs an oracle over the given host-supplied input vectors.
func NewStreams(input ...[]fr.Element) *Streams {
	return &Streams{input: input}
}

// HintInput moves the next input vector onto the hint stream, preceded by its
// length.  Reports false when the input stream is exhausted.
func (p *Streams) HintInput() bool {
	if len(p.input) == 0 {
		return false
	}
	//
	next := p.input[0]
	p.input = p.input[1:]
	//
	var length fr.Element
	//
	length.SetUint64(uint64(len(next)))
	p.hint = append(p.hint, length)
	p.hint = append(p.hint, next...)
	//
	return true
}

// PopHint pops one value off the hint stream.  Reports false when the stream
// is empty.
func (p *Streams) PopHint() (fr.Element, bool) {
	if len(p.hint) == 0 {
		return fr.Element{}, false
	}
	//
	value := p.hint[0]
	p.hint = p.hint[1:]
	//
	return value, true
}

// HintRemaining returns the number of values left on the hint stream.
func (p *Streams) HintRemaining() uint {
	return uint(len(p.hint))
}
