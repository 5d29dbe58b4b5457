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
package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/spf13/cobra"

	"github.com/consensys/go-zkvm/pkg/program"
	"github.com/consensys/go-zkvm/pkg/vm"
)

// GetFlag gets an expected flag, or panics if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected uint flag, or panics if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint64 gets an expected uint64 flag, or panics if an error arises.
func GetUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or panics if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// readProgramFile parses a program image from its JSON encoding.
func readProgramFile(filename string) *program.Program {
	bytes, err := os.ReadFile(filename)
	//
	if err == nil {
		var prog *program.Program
		//
		if prog, err = program.FromJson(bytes); err == nil {
			return prog
		}
	}
	// Handle error
	fmt.Println(err)
	os.Exit(2)
	// unreachable
	return nil
}

// readInputFile parses the host-supplied input streams: a JSON array of
// vectors of decimal-encoded field elements.
func readInputFile(filename string) *vm.Streams {
	if filename == "" {
		return vm.NewStreams()
	}
	//
	bytes, err := os.ReadFile(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	var encoded [][]string
	//
	if err := json.Unmarshal(bytes, &encoded); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	vectors := make([][]fr.Element, len(encoded))
	//
	for i, vector := range encoded {
		vectors[i] = make([]fr.Element, len(vector))
		//
		for j, value := range vector {
			var parsed big.Int
			//
			if _, ok := parsed.SetString(value, 10); !ok {
				fmt.Printf("input %d.%d: invalid field element %q\n", i, j, value)
				os.Exit(2)
			}
			//
			vectors[i][j].SetBigInt(&parsed)
		}
	}
	//
	return vm.NewStreams(vectors...)
}

// machineConfig assembles the machine configuration from the shared run
// flags.
func machineConfig(cmd *cobra.Command) vm.Config {
	cfg := vm.DefaultConfig()
	//
	if GetFlag(cmd, "persistent") {
		cfg.Mode = vm.Persistent
	}
	//
	if n := GetUint64(cmd, "max-segment-len"); n != 0 {
		cfg.MaxSegmentLen = n
	}
	//
	return cfg
}
