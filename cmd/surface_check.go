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

	"github.com/notargets/m2c-go/embedded"
	"github.com/spf13/cobra"
)

// SurfaceCheckCmd validates an embedded surface file: it parses the
// triangulation and reports its node and triangle counts and its connected
// solid bodies. Triangle areas are not checked, so degenerate (zero-area)
// triangles are not flagged. Matching
// EmbeddedBoundaryOperator::FindSolidBodies (original_source) as a
// standalone diagnostic, the way a production CLI surfaces a mesh sanity
// check ahead of a full run.
var SurfaceCheckCmd = &cobra.Command{
	Use:   "surface-check",
	Short: "Validate an embedded surface file and report its solid bodies",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := cmd.Flags().GetString("surface")
		if err != nil || path == "" {
			fmt.Println("error: must supply a surface file (-s, --surface)")
			os.Exit(1)
		}
		f, err := os.Open(path)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		defer f.Close()

		surf, err := embedded.ReadSurfaceFile(f)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		bodies := embedded.FindSolidBodies(surf)
		fmt.Printf("%d nodes, %d triangles, %d connected bodies\n", len(surf.Nodes), len(surf.Triangles), len(bodies))
		for i, b := range bodies {
			fmt.Printf("  body %d: %d triangles\n", i, len(b))
		}
	},
}

func init() {
	rootCmd.AddCommand(SurfaceCheckCmd)
	SurfaceCheckCmd.Flags().StringP("surface", "s", "", "surface file to validate")
}
