// Package fvm implements the finite-volume residual assembly described in
// §4.1: MUSCL reconstruction, same-material numerical fluxes (Roe/HLLC/
// LLF), material-interface Godunov fluxes via riemann.Solve, residual
// accumulation, CFL time-step selection, and extrema reduction. Grounded
// on Euler2D/fluxes.go, dissipation.go, edges.go, parallelism.go for the
// reconstruct/flux/reduce/CFL pattern, generalized from DG face quadrature
// to finite-volume face-center evaluation on a structured 3D grid, and on
// SpaceOperator.cpp (original_source) for MUSCL clipping and
// material-interface semantics.
package fvm

import (
	"math"

	"github.com/notargets/m2c-go/riemann"
	"github.com/notargets/m2c-go/state"
)

// FluxScheme selects the same-material numerical flux used at a face.
type FluxScheme int

const (
	FluxRoe FluxScheme = iota
	FluxHLLC
	FluxLLF
)

// ClipStats accumulates the positivity-clip counters of one caller (no
// cross-rank reduction is done), matching the original's "number of nodes clipped" diagnostic.
type ClipStats struct {
	DensityClips  int
	PressureClips int
}

// ClipToPositivity enforces rho>0 and p>0 on v in place, incrementing
// stats and returning the (possibly modified) state. A clip is always
// recoverable; a state that remains non-hyperbolic after clipping is the
// caller's responsibility to treat as fatal per §4.1.
func ClipToPositivity(v state.Primitive, floor float64, stats *ClipStats) state.Primitive {
	if v[0] < floor {
		v[0] = floor
		stats.DensityClips++
	}
	if v[4] < floor {
		v[4] = floor
		stats.PressureClips++
	}
	return v
}

// Reconstructor produces slope-limited face-biased states from cell-center
// values, the MUSCL analogue of Euler2D's DG face-interpolation step.
type Reconstructor struct {
	Limiter func(a, b float64) float64
}

// NewReconstructor returns a Reconstructor using the minmod limiter, the
// teacher's default choice for stability-first runs (Euler2D/filter.go
// applies a similarly conservative slope limiter ahead of flux evaluation).
func NewReconstructor() *Reconstructor {
	return &Reconstructor{Limiter: minmod}
}

func minmod(a, b float64) float64 {
	if a*b <= 0 {
		return 0
	}
	if math.Abs(a) < math.Abs(b) {
		return a
	}
	return b
}

// Reconstruct produces the left/right face-biased primitive states at the
// interface between cell vm (minus side) and vp (plus side), given the
// neighbor-of-neighbor values vmm, vpp needed for the slope stencil.
func (r *Reconstructor) Reconstruct(vmm, vm, vp, vpp state.Primitive) (left, right state.Primitive) {
	for c := 0; c < 5; c++ {
		slopeL := r.Limiter(vm[c]-vmm[c], vp[c]-vm[c])
		slopeR := r.Limiter(vp[c]-vm[c], vpp[c]-vp[c])
		left[c] = vm[c] + 0.5*slopeL
		right[c] = vp[c] - 0.5*slopeR
	}
	return
}

// NumericalFlux dispatches to the selected same-material flux scheme at a
// face with outward unit normal n.
func NumericalFlux(scheme FluxScheme, vl, vr state.Primitive, eos state.EOS, n [3]float64) [5]float64 {
	switch scheme {
	case FluxRoe:
		return roeFlux(vl, vr, eos, n)
	case FluxHLLC:
		return hllcFlux(vl, vr, eos, n)
	default:
		return llfFlux(vl, vr, eos, n)
	}
}

func physicalFlux(v state.Primitive, eos state.EOS, n [3]float64) [5]float64 {
	rho := v[0]
	vel := [3]float64{v[1], v[2], v[3]}
	p := v[4]
	un := vel[0]*n[0] + vel[1]*n[1] + vel[2]*n[2]
	e := eos.InternalEnergy(rho, p)
	E := e + 0.5*(vel[0]*vel[0]+vel[1]*vel[1]+vel[2]*vel[2])
	mass := rho * un
	return [5]float64{
		mass,
		mass*vel[0] + p*n[0],
		mass*vel[1] + p*n[1],
		mass*vel[2] + p*n[2],
		un * (rho*E + p),
	}
}

// roeFlux computes a Roe-averaged scalar-dissipation flux: the mean of the
// two physical fluxes minus half of the Roe-averaged wave speed |u_n|+c
// times the jump in the conservative state. One dissipation coefficient is
// applied to all five components; there is no characteristic
// (flux-difference) splitting into separate waves.
func roeFlux(vl, vr state.Primitive, eos state.EOS, n [3]float64) [5]float64 {
	fl := physicalFlux(vl, eos, n)
	fr := physicalFlux(vr, eos, n)

	sqrtRhoL, sqrtRhoR := math.Sqrt(vl[0]), math.Sqrt(vr[0])
	denom := sqrtRhoL + sqrtRhoR
	uRoe := [3]float64{
		(sqrtRhoL*vl[1] + sqrtRhoR*vr[1]) / denom,
		(sqrtRhoL*vl[2] + sqrtRhoR*vr[2]) / denom,
		(sqrtRhoL*vl[3] + sqrtRhoR*vr[3]) / denom,
	}
	cL := math.Sqrt(eos.SoundSpeedSquared(vl[0], vl[4]))
	cR := math.Sqrt(eos.SoundSpeedSquared(vr[0], vr[4]))
	cRoe := (sqrtRhoL*cL + sqrtRhoR*cR) / denom
	unRoe := uRoe[0]*n[0] + uRoe[1]*n[1] + uRoe[2]*n[2]

	lambdaMax := math.Abs(unRoe) + cRoe

	var flux [5]float64
	for c := 0; c < 5; c++ {
		uL := stateComponent(vl, eos, c)
		uR := stateComponent(vr, eos, c)
		flux[c] = 0.5*(fl[c]+fr[c]) - 0.5*lambdaMax*(uR-uL)
	}
	return flux
}

func stateComponent(v state.Primitive, eos state.EOS, c int) float64 {
	u := state.PrimitiveToConservative(v, eos)
	return u[c]
}

// hllcFlux computes the HLLC (Harten-Lax-van Leer-Contact) flux.
func hllcFlux(vl, vr state.Primitive, eos state.EOS, n [3]float64) [5]float64 {
	cL := math.Sqrt(eos.SoundSpeedSquared(vl[0], vl[4]))
	cR := math.Sqrt(eos.SoundSpeedSquared(vr[0], vr[4]))
	unL := vl[1]*n[0] + vl[2]*n[1] + vl[3]*n[2]
	unR := vr[1]*n[0] + vr[2]*n[1] + vr[3]*n[2]

	sL := math.Min(unL-cL, unR-cR)
	sR := math.Max(unL+cL, unR+cR)

	fl := physicalFlux(vl, eos, n)
	fr := physicalFlux(vr, eos, n)
	ul := state.PrimitiveToConservative(vl, eos)
	ur := state.PrimitiveToConservative(vr, eos)

	if sL >= 0 {
		return fl
	}
	if sR <= 0 {
		return fr
	}

	sStar := (vr[4] - vl[4] + vl[0]*unL*(sL-unL) - vr[0]*unR*(sR-unR)) /
		(vl[0]*(sL-unL) - vr[0]*(sR-unR))

	var flux [5]float64
	if sStar >= 0 {
		uStarL := hllcStar(ul, vl[0], unL, sL, sStar, vl[4], n)
		for c := 0; c < 5; c++ {
			flux[c] = fl[c] + sL*(uStarL[c]-ul[c])
		}
	} else {
		uStarR := hllcStar(ur, vr[0], unR, sR, sStar, vr[4], n)
		for c := 0; c < 5; c++ {
			flux[c] = fr[c] + sR*(uStarR[c]-ur[c])
		}
	}
	return flux
}

func hllcStar(u state.Conservative, rho, un, s, sStar, p float64, n [3]float64) state.Conservative {
	factor := rho * (s - un) / (s - sStar)
	e := u[4] / rho
	var out state.Conservative
	out[0] = factor
	out[1] = factor * (u[1]/rho + (sStar-un)*n[0])
	out[2] = factor * (u[2]/rho + (sStar-un)*n[1])
	out[3] = factor * (u[3]/rho + (sStar-un)*n[2])
	out[4] = factor * (e + (sStar-un)*(sStar+p/(rho*(s-un))))
	return out
}

// llfFlux computes the local Lax-Friedrichs flux, the robust fallback
// scheme used whenever a Riemann solve fails to converge.
func llfFlux(vl, vr state.Primitive, eos state.EOS, n [3]float64) [5]float64 {
	fl := physicalFlux(vl, eos, n)
	fr := physicalFlux(vr, eos, n)
	ul := state.PrimitiveToConservative(vl, eos)
	ur := state.PrimitiveToConservative(vr, eos)

	cL := math.Sqrt(eos.SoundSpeedSquared(vl[0], vl[4]))
	cR := math.Sqrt(eos.SoundSpeedSquared(vr[0], vr[4]))
	unL := vl[1]*n[0] + vl[2]*n[1] + vl[3]*n[2]
	unR := vr[1]*n[0] + vr[2]*n[1] + vr[3]*n[2]
	sMax := math.Max(math.Abs(unL)+cL, math.Abs(unR)+cR)

	var flux [5]float64
	for c := 0; c < 5; c++ {
		flux[c] = 0.5*(fl[c]+fr[c]) - 0.5*sMax*(ur[c]-ul[c])
	}
	return flux
}

// GodunovFluxAtInterface computes the flux across a different-material
// face by calling riemann.Solve and evaluating the Godunov flux from the
// resulting mid-state, per §4.1's material-interface edge case.
func GodunovFluxAtInterface(vl, vr state.Primitive, eosL, eosR state.EOS, n [3]float64) ([5]float64, bool) {
	sol := riemann.Solve(vl, vr, eosL, eosR, n)
	return riemann.GodunovFlux(sol, n), sol.Converged
}

// ComputeTimeStep returns the CFL-limited time step for a single cell of
// size h given the local primitive state, reduced to a global minimum by
// the caller across all cells and ranks.
func ComputeTimeStep(v state.Primitive, eos state.EOS, h, cfl float64) float64 {
	c := math.Sqrt(eos.SoundSpeedSquared(v[0], v[4]))
	speed := math.Sqrt(v[1]*v[1]+v[2]*v[2]+v[3]*v[3]) + c
	if speed <= 0 {
		return math.Inf(1)
	}
	return cfl * h / speed
}

// Extrema collects the global reduction of reportable flow quantities
// described in §4.1 ("global density/pressure/sound-speed/Mach/
// characteristic-speed reduction for reporting").
type Extrema struct {
	MinDensity, MaxDensity   float64
	MinPressure, MaxPressure float64
	MaxMach                  float64
	MaxCharSpeed             float64
}

// ComputeExtrema folds v into the running extrema acc. When first is true
// acc is overwritten from v alone, so the zero-value Extrema's
// MinDensity=0 never survives into the minimum.
func ComputeExtrema(acc *Extrema, first bool, v state.Primitive, eos EOSLike) {
	rho, p := v[0], v[4]
	c := math.Sqrt(eos.SoundSpeedSquared(rho, p))
	speed := math.Sqrt(v[1]*v[1] + v[2]*v[2] + v[3]*v[3])
	mach := speed / c
	charSpeed := speed + c

	if first {
		acc.MinDensity, acc.MaxDensity = rho, rho
		acc.MinPressure, acc.MaxPressure = p, p
		acc.MaxMach, acc.MaxCharSpeed = mach, charSpeed
		return
	}
	acc.MinDensity = math.Min(acc.MinDensity, rho)
	acc.MaxDensity = math.Max(acc.MaxDensity, rho)
	acc.MinPressure = math.Min(acc.MinPressure, p)
	acc.MaxPressure = math.Max(acc.MaxPressure, p)
	acc.MaxMach = math.Max(acc.MaxMach, mach)
	acc.MaxCharSpeed = math.Max(acc.MaxCharSpeed, charSpeed)
}

// EOSLike is the narrow subset of state.EOS that ComputeExtrema needs.
type EOSLike interface {
	SoundSpeedSquared(rho, p float64) float64
}
