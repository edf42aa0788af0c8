package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	eos := NewIdealGasEOS(0, 1.4)
	v := Primitive{1.0, 0.5, -0.2, 0.1, 1.0}
	u := PrimitiveToConservative(v, eos)
	v2 := ConservativeToPrimitive(u, eos)
	for i := range v {
		assert.InDelta(t, v[i], v2[i], 1e-12)
	}
}

func TestStiffenedGasPressure(t *testing.T) {
	eos := NewStiffenedGasEOS(1, 4.4, 6e8)
	rho, p := 1000.0, 1e5
	e := eos.InternalEnergy(rho, p)
	p2 := eos.Pressure(rho, e)
	assert.InDelta(t, p, p2, 1e-3)
}

func TestEvaluateMach(t *testing.T) {
	eos := NewIdealGasEOS(0, 1.4)
	v := Primitive{1.0, 1.0, 0, 0, 1.0}
	c := Evaluate(SoundSpeed, v, eos)
	assert.InDelta(t, math.Sqrt(1.4), c, 1e-9)
	m := Evaluate(Mach, v, eos)
	assert.InDelta(t, 1.0/math.Sqrt(1.4), m, 1e-9)
}
