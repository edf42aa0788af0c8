// Package state implements the primitive/conservative state vectors and
// the equation-of-state collaborator contract from §1 and §4.1. Grounded
// on Euler2D/fluids.go (FreeStream, FlowFunction), generalized from the
// teacher's 2D 4-component state to the spec's 3D 5-component state:
// density, three velocity components, pressure.
package state

import "math"

// Primitive is [rho, u, v, w, p].
type Primitive [5]float64

// Conservative is [rho, rho*u, rho*v, rho*w, rho*E].
type Conservative [5]float64

func (p Primitive) Density() float64  { return p[0] }
func (p Primitive) Velocity() [3]float64 { return [3]float64{p[1], p[2], p[3]} }
func (p Primitive) Pressure() float64 { return p[4] }

// EOS is the equation-of-state collaborator contract described in §1: the
// multi-material operator and the Riemann solver both ask an EOS for
// pressure, sound speed, and internal energy rather than embedding a
// closure themselves.
type EOS interface {
	Pressure(rho, e float64) float64             // e is specific internal energy
	SoundSpeedSquared(rho, p float64) float64
	InternalEnergy(rho, p float64) float64
	MaterialID() int
}

// StiffenedGasEOS implements p = (gamma-1)*rho*e - gamma*pInf, the default
// concrete EOS exercised by the seed tests (Sod shock tube uses gamma=1.4,
// pInf=0; the bubble-collapse scenario uses a stiffened-gas liquid).
type StiffenedGasEOS struct {
	Gamma float64
	PInf  float64
	ID    int
}

func NewIdealGasEOS(id int, gamma float64) *StiffenedGasEOS {
	return &StiffenedGasEOS{Gamma: gamma, PInf: 0, ID: id}
}

func NewStiffenedGasEOS(id int, gamma, pInf float64) *StiffenedGasEOS {
	return &StiffenedGasEOS{Gamma: gamma, PInf: pInf, ID: id}
}

func (eos *StiffenedGasEOS) Pressure(rho, e float64) float64 {
	return (eos.Gamma-1)*rho*e - eos.Gamma*eos.PInf
}

func (eos *StiffenedGasEOS) SoundSpeedSquared(rho, p float64) float64 {
	return eos.Gamma * (p + eos.PInf) / rho
}

func (eos *StiffenedGasEOS) InternalEnergy(rho, p float64) float64 {
	return (p + eos.Gamma*eos.PInf) / ((eos.Gamma - 1) * rho)
}

func (eos *StiffenedGasEOS) MaterialID() int { return eos.ID }

// PrimitiveToConservative converts V to U under the given EOS. Must
// round-trip with ConservativeToPrimitive per §8.
func PrimitiveToConservative(v Primitive, eos EOS) Conservative {
	rho := v[0]
	u, vv, w := v[1], v[2], v[3]
	p := v[4]
	e := eos.InternalEnergy(rho, p)
	kinetic := 0.5 * (u*u + vv*vv + w*w)
	return Conservative{rho, rho * u, rho * vv, rho * w, rho * (e + kinetic)}
}

// ConservativeToPrimitive converts U to V under the given EOS.
func ConservativeToPrimitive(u Conservative, eos EOS) Primitive {
	rho := u[0]
	vx, vy, vz := u[1]/rho, u[2]/rho, u[3]/rho
	kinetic := 0.5 * (vx*vx + vy*vy + vz*vz)
	e := u[4]/rho - kinetic
	p := eos.Pressure(rho, e)
	return Primitive{rho, vx, vy, vz, p}
}

// FlowFunction names a scalar derived quantity that Evaluate can compute
// from a Primitive state, matching Euler2D/fluids.go's FlowFunction enum
// generalized to 3D.
type FlowFunction int

const (
	Density FlowFunction = iota
	XVelocity
	YVelocity
	ZVelocity
	VelocityMagnitude
	Pressure
	SoundSpeed
	Mach
)

// Evaluate computes f for primitive state v under eos.
func Evaluate(f FlowFunction, v Primitive, eos EOS) float64 {
	switch f {
	case Density:
		return v[0]
	case XVelocity:
		return v[1]
	case YVelocity:
		return v[2]
	case ZVelocity:
		return v[3]
	case VelocityMagnitude:
		return math.Sqrt(v[1]*v[1] + v[2]*v[2] + v[3]*v[3])
	case Pressure:
		return v[4]
	case SoundSpeed:
		return math.Sqrt(eos.SoundSpeedSquared(v[0], v[4]))
	case Mach:
		c := math.Sqrt(eos.SoundSpeedSquared(v[0], v[4]))
		speed := math.Sqrt(v[1]*v[1] + v[2]*v[2] + v[3]*v[3])
		return speed / c
	default:
		return math.NaN()
	}
}
