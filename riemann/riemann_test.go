package riemann

import (
	"testing"

	"github.com/notargets/m2c-go/state"
	"github.com/stretchr/testify/assert"
)

func TestSolveSodShockTube(t *testing.T) {
	eos := state.NewIdealGasEOS(0, 1.4)
	vl := state.Primitive{1.0, 0, 0, 0, 1.0}
	vr := state.Primitive{0.125, 0, 0, 0, 0.1}
	sol := Solve(vl, vr, eos, eos, [3]float64{1, 0, 0})
	assert.True(t, sol.Converged)
	assert.Greater(t, sol.Left.Pressure, vr[4])
	assert.Less(t, sol.Left.Pressure, vl[4])
	assert.Greater(t, sol.ContactSpeed, 0.0)
}

func TestSolveEqualStatesGivesZeroContactSpeed(t *testing.T) {
	eos := state.NewIdealGasEOS(0, 1.4)
	v := state.Primitive{1.0, 0, 0, 0, 1.0}
	sol := Solve(v, v, eos, eos, [3]float64{1, 0, 0})
	assert.True(t, sol.Converged)
	assert.InDelta(t, 0, sol.ContactSpeed, 1e-6)
	assert.InDelta(t, v[4], sol.Left.Pressure, 1e-6)
}

func TestGodunovFluxPicksUpwindSide(t *testing.T) {
	sol := Solution{
		Left:         HalfState{Density: 1, NormalVelocity: 1, Pressure: 1},
		Right:        HalfState{Density: 2, NormalVelocity: 1, Pressure: 1},
		ContactSpeed: 1,
	}
	flux := GodunovFlux(sol, [3]float64{1, 0, 0})
	assert.InDelta(t, 1.0, flux[0], 1e-12)
}
