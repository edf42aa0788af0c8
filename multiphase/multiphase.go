// Package multiphase implements the multi-material operator described in
// §4.3: material-id update from the per-material level sets, state repair
// after interface motion, the unresolved-node fallback chain, phase
// transitions with latent-heat bookkeeping, and level-set conflict
// resolution. Grounded directly on MultiPhaseOperator.cpp
// (original_source) for method names and algorithm structure.
package multiphase

import (
	"math"

	"github.com/notargets/m2c-go/riemann"
	"github.com/notargets/m2c-go/state"
)

// MaterialID identifies one of the materials tracked by a set of
// level-set functions, one per material boundary (material 0 is the
// background/reference material with no owning level set).
type MaterialID int

// UpdateMaterialID assigns each cell the id of the material whose
// level-set function phi[m] is negative there (inside), matching
// MultiPhaseOperator::UpdateMaterialID. Ties are resolved by lowest
// material index: among cells claimed by more than one field (owners > 1,
// a genuine overlap) and among exact zero-crossings (no negative claimant
// but more than one field vanishes there), the smaller-indexed material
// wins. overlaps counts cells with more than one negative-phi claimant;
// the caller must sum this across every rank and abort the run if the
// total is non-zero, matching §7's "multi-material consistency" fatal
// class.
func UpdateMaterialID(nx, ny, nz int, phi [][]float64) (ids []MaterialID, overlaps int) {
	ids = make([]MaterialID, nx*ny*nz)
	for n := range ids {
		assigned := MaterialID(0)
		zeroClaimant := MaterialID(0)
		negativeClaimants := 0
		for m := 0; m < len(phi); m++ {
			v := phi[m][n]
			if v < 0 {
				negativeClaimants++
				if assigned == 0 {
					assigned = MaterialID(m + 1)
				}
			} else if v == 0 && zeroClaimant == 0 {
				zeroClaimant = MaterialID(m + 1)
			}
		}
		if assigned == 0 {
			assigned = zeroClaimant
		}
		if negativeClaimants > 1 {
			overlaps++
		}
		ids[n] = assigned
	}
	return
}

// PhaseChangeMode selects how a cell's state is repaired after the
// material interface has moved across it, matching the two strategies in
// MultiPhaseOperator::UpdateStateVariablesAfterInterfaceMotion.
type PhaseChangeMode int

const (
	// ModeRiemann repairs state from the per-axis Riemann-solution caches,
	// matching UpdateStateVariablesByRiemannSolutions.
	ModeRiemann PhaseChangeMode = iota
	// ModeExtrapolation repairs state by an upwind-weighted average over
	// the 27-cell neighborhood, matching UpdateStateVariablesByExtrapolation.
	ModeExtrapolation
)

// RepairResult reports, per repaired cell, whether the state was actually
// fixed by UpdateStateVariablesAfterInterfaceMotion so the caller can hand
// the remainder to FixUnresolvedNodes.
type RepairResult struct {
	I, J, K   int
	Converged bool
}

// Direction names one of the six axis-aligned faces consulted by the
// per-axis Riemann caches described in §4.3.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirBottom
	DirTop
	DirBack
	DirFront
)

// directionAxis is the always-positive-oriented unit normal shared by a
// direction and its opposite; inwardSign gives the sign of the normal
// velocity (measured along that fixed axis) that points from the neighbor
// back into the cell being repaired.
var directionAxis = [6][3]float64{
	DirLeft:   {1, 0, 0},
	DirRight:  {1, 0, 0},
	DirBottom: {0, 1, 0},
	DirTop:    {0, 1, 0},
	DirBack:   {0, 0, 1},
	DirFront:  {0, 0, 1},
}

var directionInwardSign = [6]float64{
	DirLeft:   1,
	DirRight:  -1,
	DirBottom: 1,
	DirTop:    -1,
	DirBack:   1,
	DirFront:  -1,
}

// neighborIsLeft reports whether the neighbor in this direction sits on
// the axis-negative side of the face (so it is the "left" argument to
// riemann.Solve).
var directionNeighborIsLeft = [6]bool{
	DirLeft: true, DirRight: false,
	DirBottom: true, DirTop: false,
	DirBack: true, DirFront: false,
}

// FaceNeighbor is what the caller supplies for one of the six directions
// consulted while repairing a cell: the neighbor's current primitive
// state and material id, or Ok=false if there is no neighbor there (a
// physical domain boundary not yet given a ghost value).
type FaceNeighbor struct {
	V  state.Primitive
	ID MaterialID
	Ok bool
}

// UpdateStateVariablesAfterInterfaceMotion repairs v[n] for every cell
// whose material id changed between idOld and idNew, matching
// MultiPhaseOperator::UpdateStateVariablesAfterInterfaceMotion.
//
// In ModeRiemann, faceNeighbor(i,j,k,dir) supplies the six per-axis
// Riemann-solution caches: for each direction the neighbor's state is
// solved against the cell's own state along that axis, and the resulting
// half-Riemann state on the cell's own side is admitted iff the neighbor's
// material id equals idNew[n] and, in upwind mode, the contact speed
// points into the cell. Admitted states are
// combined with |v·n|/|v| weights (weight 1 in non-upwind mode).
//
// In ModeExtrapolation, extrapNeighbor(i,j,k,di,dj,dk) supplies the
// 27-cell neighborhood (di,dj,dk not all zero); a neighbor is accepted iff
// it reports the same new id, did not itself just change id this step,
// and lies upstream of the flow (weight max(0,(x_self-x_neighbor)·v_neighbor)
// using the physical cell spacing h).
func UpdateStateVariablesAfterInterfaceMotion(
	nx, ny, nz int,
	idOld, idNew []MaterialID,
	v []state.Primitive,
	eosOf func(MaterialID) state.EOS,
	faceNeighbor func(i, j, k int, dir Direction) FaceNeighbor,
	extrapNeighbor func(i, j, k, di, dj, dk int) (v state.Primitive, id MaterialID, changed bool, ok bool),
	h [3]float64,
	upwind bool,
	mode PhaseChangeMode,
) []RepairResult {
	var results []RepairResult
	idx := func(i, j, k int) int { return (i*ny+j)*nz + k }

	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				n := idx(i, j, k)
				if idOld[n] == idNew[n] {
					continue
				}
				var (
					fixed bool
				)
				switch mode {
				case ModeRiemann:
					fixed = repairByRiemann(i, j, k, n, idNew, v, eosOf, faceNeighbor, upwind)
				case ModeExtrapolation:
					fixed = repairByExtrapolation(i, j, k, n, idNew, v, extrapNeighbor, h)
				}
				results = append(results, RepairResult{i, j, k, fixed})
			}
		}
	}
	return results
}

// repairByRiemann consults the six per-axis caches. A cache's "solved id"
// is the material the neighbor it was built from carries; it is admitted
// iff that matches the cell's new id (i.e. the neighbor is itself already
// the new material) and, in upwind mode, the resulting contact speed
// carries the neighbor's state into the cell.
func repairByRiemann(
	i, j, k, n int,
	idNew []MaterialID,
	v []state.Primitive,
	eosOf func(MaterialID) state.EOS,
	faceNeighbor func(i, j, k int, dir Direction) FaceNeighbor,
	upwind bool,
) bool {
	eosNew := eosOf(idNew[n])

	var sumDensity, sumU, sumVv, sumW, sumP, sumWeight float64
	for d := DirLeft; d <= DirFront; d++ {
		fn := faceNeighbor(i, j, k, d)
		if !fn.Ok || fn.ID != idNew[n] {
			continue
		}
		axis := directionAxis[d]
		axis3 := axisIndex(axis)
		eosNeighbor := eosOf(fn.ID)

		var sol riemann.Solution
		var resolved riemann.HalfState
		if directionNeighborIsLeft[d] {
			sol = riemann.Solve(fn.V, v[n], eosNeighbor, eosNew, axis)
			resolved = sol.Right // self sits on the axis-positive side
		} else {
			sol = riemann.Solve(v[n], fn.V, eosNew, eosNeighbor, axis)
			resolved = sol.Left // self sits on the axis-negative side
		}

		if upwind && directionInwardSign[d]*sol.ContactSpeed <= 0 {
			continue
		}

		candidate := state.Primitive{resolved.Density, fn.V[1], fn.V[2], fn.V[3], resolved.Pressure}
		candidate[1+axis3] = resolved.NormalVelocity

		weight := 1.0
		if upwind {
			speed := math.Sqrt(candidate[1]*candidate[1] + candidate[2]*candidate[2] + candidate[3]*candidate[3])
			if speed <= 0 {
				weight = 0
			} else {
				weight = math.Abs(resolved.NormalVelocity) / speed
			}
		}

		sumDensity += weight * candidate[0]
		sumU += weight * candidate[1]
		sumVv += weight * candidate[2]
		sumW += weight * candidate[3]
		sumP += weight * candidate[4]
		sumWeight += weight
	}

	if sumWeight <= 0 {
		return false
	}
	v[n] = state.Primitive{sumDensity / sumWeight, sumU / sumWeight, sumVv / sumWeight, sumW / sumWeight, sumP / sumWeight}
	return true
}

func axisIndex(axis [3]float64) int {
	switch {
	case axis[0] != 0:
		return 0
	case axis[1] != 0:
		return 1
	default:
		return 2
	}
}

func repairByExtrapolation(
	i, j, k, n int,
	idNew []MaterialID,
	v []state.Primitive,
	extrapNeighbor func(i, j, k, di, dj, dk int) (state.Primitive, MaterialID, bool, bool),
	h [3]float64,
) bool {
	var sumDensity, sumU, sumVv, sumW, sumP, sumWeight float64
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			for dk := -1; dk <= 1; dk++ {
				if di == 0 && dj == 0 && dk == 0 {
					continue
				}
				nv, nid, changed, ok := extrapNeighbor(i, j, k, di, dj, dk)
				if !ok || changed || nid != idNew[n] {
					continue
				}
				displacement := [3]float64{-float64(di) * h[0], -float64(dj) * h[1], -float64(dk) * h[2]}
				w := displacement[0]*nv[1] + displacement[1]*nv[2] + displacement[2]*nv[3]
				if w <= 0 {
					continue
				}
				sumDensity += w * nv[0]
				sumU += w * nv[1]
				sumVv += w * nv[2]
				sumW += w * nv[3]
				sumP += w * nv[4]
				sumWeight += w
			}
		}
	}
	if sumWeight <= 0 {
		return false
	}
	v[n] = state.Primitive{sumDensity / sumWeight, sumU / sumWeight, sumVv / sumWeight, sumW / sumWeight, sumP / sumWeight}
	return true
}

// FixUnresolvedNodes applies the fallback chain described in §4.3 for
// cells UpdateStateVariablesAfterInterfaceMotion could not repair: a
// 27-neighborhood upwind average among non-unresolved same-id neighbors,
// then a distance-weighted average ignoring upwinding, then an outward
// ring search (up to 10 layers) for any same-id neighbor to supply a
// density alone (velocity and pressure are left as-is), and finally a
// configured fail-safe density. failsafeCount is the number of cells that
// exhausted every fallback; the caller must sum it across every rank and
// abort the run if the total is non-zero, matching §7's "unresolved
// phase-change cells that exhaust all fallbacks" fatal class.
func FixUnresolvedNodes(
	unresolved []RepairResult,
	v []state.Primitive,
	idx func(i, j, k int) int,
	upwind27 func(i, j, k int) (state.Primitive, bool),
	distanceWeighted27 func(i, j, k int) (state.Primitive, bool),
	ringDensity func(i, j, k, ring int) (float64, bool),
	failSafeDensity float64,
) (fixedCount, failsafeCount int, stillUnresolved []RepairResult) {
	const maxRingLayers = 10

	for _, u := range unresolved {
		if u.Converged {
			continue
		}
		n := idx(u.I, u.J, u.K)

		if donor, ok := upwind27(u.I, u.J, u.K); ok {
			v[n] = donor
			fixedCount++
			continue
		}
		if donor, ok := distanceWeighted27(u.I, u.J, u.K); ok {
			v[n] = donor
			fixedCount++
			continue
		}

		ringFound := false
		for ring := 1; ring <= maxRingLayers; ring++ {
			if rho, ok := ringDensity(u.I, u.J, u.K, ring); ok {
				v[n][0] = rho
				ringFound = true
				fixedCount++
				break
			}
		}
		if ringFound {
			continue
		}

		v[n][0] = failSafeDensity
		failsafeCount++
		stillUnresolved = append(stillUnresolved, u)
	}
	return
}
