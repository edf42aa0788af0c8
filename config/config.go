// Package config implements the layered configuration surface described in
// §6: mesh geometry, material list, boundary conditions, and numerics
// parameters. Grounded on cmd/2D.go's InputParameters+ghodss/yaml pattern
// (gocfd/cmd/2D.go), extended with spf13/viper and mitchellh/go-homedir so
// a run can also pick up a user-level config file, the way a production
// CLI in this corpus's style would. Environment variables are not read.
package config

import (
	"fmt"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/notargets/m2c-go/utils"
)

// MaterialConfig describes one material's equation of state, matching the
// §6 "materials" configuration block.
type MaterialConfig struct {
	Name  string  `yaml:"Name"`
	Gamma float64 `yaml:"Gamma"`
	PInf  float64 `yaml:"PInf"`
}

// MeshConfig describes the rectilinear mesh extent and resolution.
type MeshConfig struct {
	NX, NY, NZ int       `yaml:"NX,NY,NZ"`
	XRange     []float64 `yaml:"XRange"`
	YRange     []float64 `yaml:"YRange"`
	ZRange     []float64 `yaml:"ZRange"`
}

// BCConfig names the boundary condition applied to each of the six faces
// of the domain, keyed by face name ("xmin", "xmax", "ymin", ...).
type BCConfig map[string]string

// NumericsConfig collects the solver's numerical parameters.
type NumericsConfig struct {
	CFL        float64 `yaml:"CFL"`
	FinalTime  float64 `yaml:"FinalTime"`
	MaxSteps   int     `yaml:"MaxSteps"`
	FluxType   string  `yaml:"FluxType"`
	ReinitMode string  `yaml:"ReinitMode"`
	NarrowBand int     `yaml:"NarrowBand"`

	// Upwind selects the upwind admission test in the multi-material state
	// repair (§4.3): a cached Riemann/extrapolation donor is admitted only
	// if its normal velocity points into the repaired cell.
	Upwind bool `yaml:"Upwind"`
	// FailSafeDensity is the density FixUnresolvedNodes assigns a cell that
	// exhausts every fallback in the unresolved-node chain.
	FailSafeDensity float64 `yaml:"FailSafeDensity"`
	// ResolveIsolatedCellsFrequency is the step interval on which
	// ResolveIsolatedBackgroundCells runs; zero disables the sweep.
	ResolveIsolatedCellsFrequency int `yaml:"ResolveIsolatedCellsFrequency"`
}

// InputParameters is the top-level run configuration, matching
// cmd/2D.go's InputParameters widened to the spec's mesh/material/BC
// surface.
type InputParameters struct {
	Title     string           `yaml:"Title"`
	Mesh      MeshConfig       `yaml:"Mesh"`
	Materials []MaterialConfig `yaml:"Materials"`
	BCs       BCConfig         `yaml:"BCs"`
	Numerics  NumericsConfig   `yaml:"Numerics"`
	Surfaces  []string         `yaml:"Surfaces"` // paths to embedded surface files
}

// Parse unmarshals YAML bytes into ip, matching InputParameters.Parse in
// cmd/2D.go.
func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Print writes a human-readable summary of ip, matching
// InputParameters.Print in cmd/2D.go.
func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%dx%dx%d\t\t= Mesh resolution\n", ip.Mesh.NX, ip.Mesh.NY, ip.Mesh.NZ)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.Numerics.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.Numerics.FinalTime)
	fmt.Printf("[%s]\t\t\t= Flux Type\n", ip.Numerics.FluxType)
	for _, m := range ip.Materials {
		fmt.Printf("Material[%s] gamma=%.3f pInf=%.3g\n", m.Name, m.Gamma, m.PInf)
	}
	for face, bc := range ip.BCs {
		fmt.Printf("BCs[%s] = %s\n", face, bc)
	}
}

// ResolvedBCs parses every configured face name into a utils.BCType,
// matching the §6 boundary-condition vocabulary. A face absent from BCs is
// omitted, not defaulted, so the caller can tell a configured wall from an
// unconfigured face.
func (ip *InputParameters) ResolvedBCs() map[string]utils.BCType {
	resolved := make(map[string]utils.BCType, len(ip.BCs))
	for face, name := range ip.BCs {
		resolved[face] = utils.ParseBCName(name)
	}
	return resolved
}

// Load reads the run configuration file at path, then layers in any
// matching keys found in a user-level config file under
// ~/.m2c-go/config.yaml via viper, matching Design Note-era practice in
// this corpus of letting a home-directory config override defaults
// without requiring every flag on the command line.
func Load(path string) (*InputParameters, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	home, err := homedir.Dir()
	if err == nil {
		v.SetConfigFile(home + "/.m2c-go/config.yaml")
		_ = v.MergeInConfig() // a missing user override file is not an error
	}

	raw, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("config: failed to re-serialize merged settings: %w", err)
	}

	ip := &InputParameters{}
	if err := ip.Parse(raw); err != nil {
		return nil, fmt.Errorf("config: failed to parse merged settings: %w", err)
	}
	return ip, nil
}
