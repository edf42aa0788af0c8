/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var profileMode string
var stopProfile func()

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "m2c-go",
	Short: "A parallel, multi-material, moving-boundary compressible flow solver",
	Long: `m2c-go solves multi-material compressible flow on a structured
Cartesian mesh with level-set interface tracking and embedded-boundary
fluid-structure coupling.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch profileMode {
		case "cpu":
			stopProfile = profile.Start(profile.CPUProfile).Stop
		case "mem":
			stopProfile = profile.Start(profile.MemProfile).Stop
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile()
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "enable profiling: \"cpu\" or \"mem\"")
}
