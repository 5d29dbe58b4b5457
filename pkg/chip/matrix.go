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
package chip

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Matrix is a row-major trace matrix of field elements.  Rows beyond those
// explicitly assigned are padding (all zero), which every AIR in this machine
// accepts via its is_valid column.
type Matrix struct {
	data   []fr.Element
	width  uint
	height uint
}

// NewMatrix constructs a zeroed trace matrix of the given dimensions.  The
// height is rounded up to the next power of two, as required by the proving
// backend.
func NewMatrix(height uint, width uint) *Matrix {
	height = NextPowerOfTwo(height)
	//
	return &Matrix{
		data:   make([]fr.Element, height*width),
		width:  width,
		height: height,
	}
}

// Height returns the (padded) number of rows in this matrix.
func (p *Matrix) Height() uint {
	return p.height
}

// Width returns the number of columns in this matrix.
func (p *Matrix) Width() uint {
	return p.width
}

// Get returns the element at the given row and column.
func (p *Matrix) Get(row uint, col uint) fr.Element {
	return p.data[row*p.width+col]
}

// Set assigns the element at the given row and column.
func (p *Matrix) Set(row uint, col uint, val fr.Element) {
	p.data[row*p.width+col] = val
}

// SetUint64 assigns the element at the given row and column from a machine
// word.
func (p *Matrix) SetUint64(row uint, col uint, val uint64) {
	p.data[row*p.width+col].SetUint64(val)
}

// Row returns a mutable view of the given row.
func (p *Matrix) Row(row uint) []fr.Element {
	if row >= p.height {
		panic(fmt.Sprintf("row %d out of bounds (height %d)", row, p.height))
	}
	//
	return p.data[row*p.width : (row+1)*p.width]
}

// NextPowerOfTwo rounds n up to the next power of two, mapping 0 to 1.
func NextPowerOfTwo(n uint) uint {
	k := uint(1)
	for k < n {
		k = k << 1
	}
	//
	return k
}
