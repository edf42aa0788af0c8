package levelset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sphereDistance(nx, ny, nz int, h, radius float64, center [3]float64) []float64 {
	phi := make([]float64, nx*ny*nz)
	idx := func(i, j, k int) int { return (i*ny+j)*nz + k }
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				x := float64(i)*h - center[0]
				y := float64(j)*h - center[1]
				z := float64(k)*h - center[2]
				r := x*x + y*y + z*z
				phi[idx(i, j, k)] = r - radius*radius // not a true distance field on purpose
			}
		}
	}
	return phi
}

func TestTagFirstLayerFindsSignChange(t *testing.T) {
	r := NewReinitializer(10, 10, 10, 0.1)
	phi := sphereDistance(10, 10, 10, 0.1, 0.3, [3]float64{0.5, 0.5, 0.5})
	tagged := r.TagFirstLayer(phi)
	assert.NotEmpty(t, tagged)
}

func TestSignFunctionMatchesSignAtLargePhi(t *testing.T) {
	assert.InDelta(t, 1.0, SignFunction(1000, 0.1), 1e-6)
	assert.InDelta(t, -1.0, SignFunction(-1000, 0.1), 1e-6)
	assert.InDelta(t, 0.0, SignFunction(0, 0.1), 1e-9)
}

func TestReinitializeTerminatesWithFiniteField(t *testing.T) {
	r := NewReinitializer(12, 12, 12, 0.1)
	r.MaxIters = 100
	phi := sphereDistance(12, 12, 12, 0.1, 0.3, [3]float64{0.6, 0.6, 0.6})
	_, converged := r.Reinitialize(phi)
	// Not asserting convergence strictly (nonlinear fixed point over a
	// coarse grid); the loop must at least terminate without panicking
	// and produce a finite field.
	for _, p := range phi {
		assert.False(t, p != p) // not NaN
	}
	_ = converged
}

func TestNarrowBandPropagation(t *testing.T) {
	r := NewReinitializer(8, 8, 8, 0.1)
	phi := sphereDistance(8, 8, 8, 0.1, 0.25, [3]float64{0.4, 0.4, 0.4})
	tagged := r.TagFirstLayer(phi)
	nb := NewNarrowBand(8, 8, 8, 3)
	nb.ConstructNarrowBand(tagged)
	nb.PropagateNarrowBand()

	foundDeeper := false
	for _, level := range nb.Level {
		if level > 0 {
			foundDeeper = true
		}
	}
	assert.True(t, foundDeeper)
}

func TestCutOffOutsideBand(t *testing.T) {
	nb := NewNarrowBand(4, 4, 4, 1)
	phi := make([]float64, 64)
	for i := range phi {
		phi[i] = 0.01
	}
	nb.Level[0] = 0
	nb.CutOffOutsideBand(phi, 999)
	assert.Equal(t, 0.01, phi[0])
	assert.Equal(t, 999.0, phi[1])
}
