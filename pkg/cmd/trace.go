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

var traceCmd = &cobra.Command{
	Use:   "trace [flags] program_file",
	Short: "report the proof-input shapes of a run.",
	Long: `Run a given program image to termination and report, per segment, the
	 dimensions of every generated trace together with the segment public values.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		cfg := machineConfig(cmd)
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
		for i, result := range results {
			fmt.Printf("segment %d:\n", i)
			//
			for _, trace := range result.Proof.Traces {
				fmt.Printf("  %-16s %8d x %d\n", trace.Name, trace.Trace.Height(), trace.Trace.Width())
			}
			//
			if GetFlag(cmd, "public-values") {
				for j, value := range result.Proof.PublicValues {
					fmt.Printf("  public[%d] = %s\n", j, value.String())
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().Bool("persistent", false, "enable persistent memory continuations")
	traceCmd.Flags().Uint64("max-segment-len", 0, "override instructions per segment")
	traceCmd.Flags().Bool("public-values", false, "print segment public values")
	traceCmd.Flags().StringP("input", "i", "", "input streams file (JSON)")
}
