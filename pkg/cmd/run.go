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
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/go-zkvm/pkg/hasher"
	"github.com/consensys/go-zkvm/pkg/vm"
	"github.com/consensys/go-zkvm/pkg/vm/executors"
	"github.com/consensys/go-zkvm/pkg/vm/memory"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] program_file",
	Short: "run a program to termination.",
	Long: `Run a given program image to termination under the standard chip set,
	 reporting the segment chain and the guest's exit code.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		cfg := machineConfig(cmd)
		//
		if n := GetUint(cmd, "public-values"); n != 0 {
			cfg.PublicValuesCapacity = n
		}
		//
		prog := readProgramFile(args[0])
		streams := readInputFile(GetString(cmd, "input"))
		//
		var image memory.Equipartition
		//
		if cfg.Mode == vm.Persistent {
			image = memory.Equipartition{}
		}
		//
		machine := vm.New(cfg, hasher.Blake2b{}, prog, executors.Standard())
		results, err := machine.Execute(image, streams)
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		if err := vm.VerifyLinkage(results); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		for i, result := range results {
			connector := result.Segment.Connector()
			fmt.Printf("segment %d: %d instructions, %s -> %s\n", i,
				result.Segment.Instret(), connector.Start().String(), connector.EndState().String())
		}
		//
		fmt.Printf("exit code %d\n", vm.ExitCode(results))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("persistent", false, "enable persistent memory continuations")
	runCmd.Flags().Uint64("max-segment-len", 0, "override instructions per segment")
	runCmd.Flags().Uint("public-values", 0, "override public-value buffer capacity")
	runCmd.Flags().StringP("input", "i", "", "input streams file (JSON)")
}
