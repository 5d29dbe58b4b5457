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
package rangecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/consensys/go-zkvm/pkg/bus"
)

func TestDecompose_SingleLimb(t *testing.T) {
	checker := New(bus.RangeCheck, 17)
	//
	assert.Equal(t, []uint32{42}, checker.Decompose(42, 17))
	assert.Equal(t, uint32(1), checker.count[(1<<17)+42].Load())
}

func TestDecompose_WideValue(t *testing.T) {
	checker := New(bus.RangeCheck, 17)
	// A 29-bit value splits into a 17-bit low limb and a 12-bit high limb.
	assert.Equal(t, []uint32{3, 5}, checker.Decompose((5<<17)|3, 29))
	assert.Equal(t, uint32(1), checker.count[(1<<17)+3].Load())
	assert.Equal(t, uint32(1), checker.count[(1<<12)+5].Load())
}

func TestDecompose_RejectsOverflow(t *testing.T) {
	checker := New(bus.RangeCheck, 17)
	// The value survives the masked limb walk but does not fit in 17 bits.
	assert.Panics(t, func() { checker.Decompose(1<<20, 17) })
}
