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
package executors

import (
	"github.com/consensys/go-zkvm/pkg/vm"
)

// Standard returns the baseline chip set builder covering the full opcode
// catalogue.
func Standard() vm.ChipSetBuilder {
	return func(env *vm.Environment) []vm.Executor {
		return []vm.Executor{
			NewSystem(env),
			NewAlu(env),
			NewLoadStore(env),
			NewBranch(env),
			NewIo(env),
			NewBitwise(env),
		}
	}
}
