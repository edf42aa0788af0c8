// Package riemann implements the exact (iterative, two-shock/two-rarefaction)
// 1D Riemann solver used both by fvm's material-interface Godunov flux and
// by multiphase's phase-change state repair, with the robust LLF fallback
// on iteration failure described in §4.1. Grounded on the Roe-average
// characteristic algebra in Euler2D/fluxes.go (RoeFlux), generalized from
// an approximate linearized solver to the exact nonlinear one the spec
// calls for at material interfaces.
package riemann

import (
	"math"

	"github.com/notargets/m2c-go/state"
)

const (
	maxIterations = 50
	tolerance     = 1e-6
)

// HalfState is the state on one side of the contact discontinuity in the
// solution of a 1D Riemann problem: the "per-axis Riemann-solution cache"
// entry described in §4.3.
type HalfState struct {
	Density        float64
	NormalVelocity float64
	Pressure       float64
	MaterialID     int
}

// Solution is the full star-region result: left and right half-states
// straddling the contact, plus the contact velocity shared by both.
type Solution struct {
	Left, Right    HalfState
	ContactSpeed   float64
	Converged      bool
}

// Solve computes the exact Riemann solution at the interface between left
// state vl (EOS eosL) and right state vr (EOS eosR) along unit normal n.
// On iteration failure it returns an LLF-averaged mid-state (each side
// keeps its own density) with Converged=false; fvm's material-interface
// flux then uses its LLF flux in place of GodunovFlux.
func Solve(vl, vr state.Primitive, eosL, eosR state.EOS, n [3]float64) Solution {
	rhoL, uL, pL := vl[0], normalVelocity(vl, n), vl[4]
	rhoR, uR, pR := vr[0], normalVelocity(vr, n), vr[4]

	cL := math.Sqrt(eosL.SoundSpeedSquared(rhoL, pL))
	cR := math.Sqrt(eosR.SoundSpeedSquared(rhoR, pR))

	pStar, converged := iteratePStar(rhoL, uL, pL, cL, eosL, rhoR, uR, pR, cR, eosR)
	if !converged {
		return llfFallback(rhoL, uL, pL, cL, eosL.MaterialID(), rhoR, uR, pR, cR, eosR.MaterialID())
	}

	uStar := 0.5*(uL+uR) + 0.5*(fK(pStar, rhoR, pR, cR, eosR)-fK(pStar, rhoL, pL, cL, eosL))

	rhoStarL := starDensity(pStar, rhoL, pL, eosL)
	rhoStarR := starDensity(pStar, rhoR, pR, eosR)

	return Solution{
		Left:         HalfState{Density: rhoStarL, NormalVelocity: uStar, Pressure: pStar, MaterialID: eosL.MaterialID()},
		Right:        HalfState{Density: rhoStarR, NormalVelocity: uStar, Pressure: pStar, MaterialID: eosR.MaterialID()},
		ContactSpeed: uStar,
		Converged:    true,
	}
}

func normalVelocity(v state.Primitive, n [3]float64) float64 {
	return v[1]*n[0] + v[2]*n[1] + v[3]*n[2]
}

// fK is the pressure function for one side of the Riemann problem
// (Toro's f_K), taking the shock branch when p > pK and the rarefaction
// branch otherwise, with gamma recovered through gammaOf.
func fK(p, rho, pK float64, cK float64, eos state.EOS) float64 {
	if p > pK {
		gamma := gammaOf(eos, rho, pK)
		ak := 2.0 / ((gamma + 1) * rho)
		bk := (gamma - 1) / (gamma + 1) * pK
		return (p - pK) * math.Sqrt(ak/(p+bk))
	}
	gamma := gammaOf(eos, rho, pK)
	return 2 * cK / (gamma - 1) * (math.Pow(p/pK, (gamma-1)/(2*gamma)) - 1)
}

// gammaOf recovers an effective ratio of specific heats as c^2*rho/p from
// the EOS's sound-speed relation. This is gamma for an ideal gas (pInf = 0);
// for a stiffened gas with pInf != 0 it is gamma*(p+pInf)/p, and the
// pressure functions of this solver carry no pInf shift.
func gammaOf(eos state.EOS, rho, p float64) float64 {
	c2 := eos.SoundSpeedSquared(rho, p)
	if p == 0 {
		return 1.4
	}
	return c2 * rho / p
}

func iteratePStar(rhoL, uL, pL, cL float64, eosL state.EOS, rhoR, uR, pR, cR float64, eosR state.EOS) (float64, bool) {
	pGuess := 0.5 * (pL + pR)
	if pGuess <= 0 {
		pGuess = 1e-6
	}
	for iter := 0; iter < maxIterations; iter++ {
		fL := fK(pGuess, rhoL, pL, cL, eosL)
		fR := fK(pGuess, rhoR, pR, cR, eosR)
		f := fL + fR + (uR - uL)

		dfL := dfK(pGuess, rhoL, pL, cL, eosL)
		dfR := dfK(pGuess, rhoR, pR, cR, eosR)
		df := dfL + dfR
		if df == 0 {
			return 0, false
		}
		pNew := pGuess - f/df
		if pNew <= 0 {
			pNew = pGuess / 2
		}
		if math.Abs(pNew-pGuess)/(0.5*(pNew+pGuess)) < tolerance {
			return pNew, true
		}
		pGuess = pNew
	}
	return 0, false
}

func dfK(p, rho, pK, cK float64, eos state.EOS) float64 {
	h := 1e-6 * math.Max(1.0, p)
	return (fK(p+h, rho, pK, cK, eos) - fK(p-h, rho, pK, cK, eos)) / (2 * h)
}

func starDensity(pStar, rho, p float64, eos state.EOS) float64 {
	gamma := gammaOf(eos, rho, p)
	if pStar > p {
		ratio := pStar / p
		num := ratio + (gamma-1)/(gamma+1)
		den := (gamma-1)/(gamma+1)*ratio + 1
		return rho * num / den
	}
	return rho * math.Pow(pStar/p, 1/gamma)
}

func llfFallback(rhoL, uL, pL, cL float64, matL int, rhoR, uR, pR, cR float64, matR int) Solution {
	sMax := math.Max(math.Abs(uL)+cL, math.Abs(uR)+cR)
	uStar := 0.5 * (uL + uR)
	pStar := 0.5*(pL+pR) - 0.5*sMax*(uR-uL)
	if pStar < 0 {
		pStar = 0.5 * (pL + pR)
	}
	return Solution{
		Left:         HalfState{Density: rhoL, NormalVelocity: uStar, Pressure: pStar, MaterialID: matL},
		Right:        HalfState{Density: rhoR, NormalVelocity: uStar, Pressure: pStar, MaterialID: matR},
		ContactSpeed: uStar,
		Converged:    false,
	}
}

// GodunovFlux evaluates the Godunov flux from a solved Solution's contact
// side (chosen by the sign of the contact speed), matching the flux
// assembly described in §4.1 for material-interface faces.
func GodunovFlux(sol Solution, n [3]float64) [5]float64 {
	side := sol.Left
	if sol.ContactSpeed < 0 {
		side = sol.Right
	}
	rho, u, p := side.Density, side.NormalVelocity, side.Pressure
	mass := rho * u
	return [5]float64{
		mass,
		mass*u*n[0] + p*n[0],
		mass*u*n[1] + p*n[1],
		mass*u*n[2] + p*n[2],
		u * (p + 0.5*rho*u*u),
	}
}
