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

	"github.com/notargets/m2c-go/config"
	"github.com/notargets/m2c-go/fvm"
	"github.com/notargets/m2c-go/levelset"
	"github.com/notargets/m2c-go/multiphase"
	"github.com/notargets/m2c-go/solver"
	"github.com/notargets/m2c-go/state"
	"github.com/spf13/cobra"
)

// RunCmd represents the run command: loads a YAML configuration and
// executes the flow solver to completion, matching the load-then-run
// shape of TwoDCmd (gocfd/cmd/2D.go).
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the flow solver on a configuration file",
	Long:  `Run the flow solver on a configuration file describing mesh, materials, boundary conditions, and numerics.`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil || configFile == "" {
			fmt.Println("error: must supply a configuration file (-c, --config)")
			os.Exit(1)
		}
		graph, _ := cmd.Flags().GetBool("graph")

		ip, err := config.Load(configFile)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ip.Print()

		if err := runSolver(ip, graph); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("config", "c", "", "YAML configuration file")
	RunCmd.Flags().BoolP("graph", "g", false, "accepted but unused: run draws no chart")
}

func runSolver(ip *config.InputParameters, graph bool) error {
	nx, ny, nz := ip.Mesh.NX, ip.Mesh.NY, ip.Mesh.NZ
	if nx == 0 {
		nx = 1
	}
	if ny == 0 {
		ny = 1
	}
	if nz == 0 {
		nz = 1
	}

	materials := make([]state.EOS, len(ip.Materials))
	for i, m := range ip.Materials {
		materials[i] = state.NewStiffenedGasEOS(i, m.Gamma, m.PInf)
	}
	if len(materials) == 0 {
		materials = []state.EOS{state.NewIdealGasEOS(0, 1.4)}
	}

	n := nx * ny * nz
	v := make([]state.Primitive, n)
	id := make([]multiphase.MaterialID, n)
	for i := range v {
		v[i] = state.Primitive{1.0, 0, 0, 0, 1.0}
	}

	h := [3]float64{1, 1, 1}
	cfg := solver.Config{
		NX: nx, NY: ny, NZ: nz,
		H:          h,
		CFL:        orDefault(ip.Numerics.CFL, 0.5),
		FinalTime:  ip.Numerics.FinalTime,
		MaxSteps:   orDefaultInt(ip.Numerics.MaxSteps, 10000),
		FluxScheme: fluxSchemeFromName(ip.Numerics.FluxType),
		Materials:  materials,
		Reinit:     levelset.NewReinitializer(nx, ny, nz, 1),
	}

	it := solver.NewIntegrator(cfg, 0, v, id, [][]float64{})
	_ = graph
	return it.Solve()
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func fluxSchemeFromName(name string) fvm.FluxScheme {
	switch name {
	case "Roe":
		return fvm.FluxRoe
	case "HLLC":
		return fvm.FluxHLLC
	default:
		return fvm.FluxLLF
	}
}
