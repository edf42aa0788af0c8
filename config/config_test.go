package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYAML(t *testing.T) {
	data := []byte(`
Title: "Sod shock tube"
Mesh:
  NX: 100
  NY: 1
  NZ: 1
Materials:
  - Name: air
    Gamma: 1.4
    PInf: 0
Numerics:
  CFL: 0.5
  FinalTime: 0.2
  MaxSteps: 1000
  FluxType: HLLC
`)
	ip := &InputParameters{}
	err := ip.Parse(data)
	assert.NoError(t, err)
	assert.Equal(t, "Sod shock tube", ip.Title)
	assert.Equal(t, 100, ip.Mesh.NX)
	assert.Len(t, ip.Materials, 1)
	assert.Equal(t, 1.4, ip.Materials[0].Gamma)
	assert.Equal(t, "HLLC", ip.Numerics.FluxType)
}
