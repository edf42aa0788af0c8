package multiphase

import (
	"testing"

	"github.com/notargets/m2c-go/state"
	"github.com/stretchr/testify/assert"
)

func TestUpdateMaterialIDSimple(t *testing.T) {
	nx, ny, nz := 2, 1, 1
	phi0 := []float64{-1, 1} // material 1 owns cell 0
	ids, overlaps := UpdateMaterialID(nx, ny, nz, [][]float64{phi0})
	assert.Equal(t, MaterialID(1), ids[0])
	assert.Equal(t, MaterialID(0), ids[1])
	assert.Equal(t, 0, overlaps)
}

func TestUpdateMaterialIDCountsOverlap(t *testing.T) {
	nx, ny, nz := 1, 1, 1
	phi1 := []float64{-1}
	phi2 := []float64{-0.5}
	ids, overlaps := UpdateMaterialID(nx, ny, nz, [][]float64{phi1, phi2})
	assert.Equal(t, MaterialID(1), ids[0]) // lowest index wins the tie
	assert.Equal(t, 1, overlaps)
}

func TestUpdateStateVariablesAfterInterfaceMotionExtrapolation(t *testing.T) {
	nx, ny, nz := 2, 1, 1
	idOld := []MaterialID{0, 0}
	idNew := []MaterialID{1, 0}
	v := []state.Primitive{{1, 0, 0, 0, 1}, {2, 1, 0, 0, 2}}
	eos := state.NewIdealGasEOS(0, 1.4)
	eosOf := func(MaterialID) state.EOS { return eos }
	h := [3]float64{1, 1, 1}

	// Cell 1 sits at +x from cell 0 and flows in -x (toward cell 0), so it
	// is upstream of cell 0 and should be admitted as the sole donor.
	v[1] = state.Primitive{2, -1, 0, 0, 2}
	extrap := func(i, j, k, di, dj, dk int) (state.Primitive, MaterialID, bool, bool) {
		ni, nj, nk := i+di, j+dj, k+dk
		if ni == 1 && nj == 0 && nk == 0 {
			return v[1], 1, false, true
		}
		return state.Primitive{}, 0, false, false
	}
	faceNeighbor := func(i, j, k int, dir Direction) FaceNeighbor { return FaceNeighbor{} }

	results := UpdateStateVariablesAfterInterfaceMotion(nx, ny, nz, idOld, idNew, v, eosOf, faceNeighbor, extrap, h, true, ModeExtrapolation)
	assert.Len(t, results, 1)
	assert.True(t, results[0].Converged)
	assert.Equal(t, 2.0, v[0][0])
	assert.Equal(t, 2.0, v[0][4])
}

func TestUpdateStateVariablesAfterInterfaceMotionRiemannAdmitsInward(t *testing.T) {
	nx, ny, nz := 2, 1, 1
	idOld := []MaterialID{0, 0}
	idNew := []MaterialID{1, 0}
	v := []state.Primitive{{1, 0, 0, 0, 1}, {1, -1, 0, 0, 1}}
	eos := state.NewIdealGasEOS(0, 1.4)
	eosOf := func(MaterialID) state.EOS { return eos }
	h := [3]float64{1, 1, 1}

	faceNeighbor := func(i, j, k int, dir Direction) FaceNeighbor {
		if i == 0 && dir == DirRight {
			return FaceNeighbor{V: v[1], ID: 1, Ok: true}
		}
		return FaceNeighbor{}
	}
	extrap := func(i, j, k, di, dj, dk int) (state.Primitive, MaterialID, bool, bool) {
		return state.Primitive{}, 0, false, false
	}

	results := UpdateStateVariablesAfterInterfaceMotion(nx, ny, nz, idOld, idNew, v, eosOf, faceNeighbor, extrap, h, true, ModeRiemann)
	assert.Len(t, results, 1)
	assert.True(t, results[0].Converged)
}

func TestFixUnresolvedNodesUpwindThenDistanceThenRingThenFailsafe(t *testing.T) {
	v := []state.Primitive{{1, 0, 0, 0, 1}, {1, 0, 0, 0, 1}, {1, 0, 0, 0, 1}}
	idx := func(i, j, k int) int { return i }
	unresolved := []RepairResult{
		{I: 0, J: 0, K: 0, Converged: false},
		{I: 1, J: 0, K: 0, Converged: false},
		{I: 2, J: 0, K: 0, Converged: false},
	}

	upwind := func(i, j, k int) (state.Primitive, bool) {
		if i == 0 {
			return state.Primitive{5, 0, 0, 0, 5}, true
		}
		return state.Primitive{}, false
	}
	distance := func(i, j, k int) (state.Primitive, bool) {
		if i == 1 {
			return state.Primitive{6, 0, 0, 0, 6}, true
		}
		return state.Primitive{}, false
	}
	ring := func(i, j, k, r int) (float64, bool) {
		if i == 2 && r == 3 {
			return 7, true
		}
		return 0, false
	}

	fixedCount, failsafeCount, remaining := FixUnresolvedNodes(unresolved, v, idx, upwind, distance, ring, 0.1)
	assert.Equal(t, 3, fixedCount)
	assert.Equal(t, 0, failsafeCount)
	assert.Empty(t, remaining)
	assert.Equal(t, 5.0, v[0][0])
	assert.Equal(t, 6.0, v[1][0])
	assert.Equal(t, 7.0, v[2][0])
}

func TestFixUnresolvedNodesFailsafe(t *testing.T) {
	v := []state.Primitive{{1, 0, 0, 0, 1}}
	idx := func(i, j, k int) int { return 0 }
	unresolved := []RepairResult{{I: 0, J: 0, K: 0, Converged: false}}
	none2 := func(i, j, k int) (state.Primitive, bool) { return state.Primitive{}, false }
	noneRing := func(i, j, k, r int) (float64, bool) { return 0, false }

	fixedCount, failsafeCount, remaining := FixUnresolvedNodes(unresolved, v, idx, none2, none2, noneRing, 0.1)
	assert.Equal(t, 0, fixedCount)
	assert.Equal(t, 1, failsafeCount)
	assert.Len(t, remaining, 1)
	assert.Equal(t, 0.1, v[0][0])
}

func TestUpdatePhaseTransitionsAccumulatesLambdaThenCommitsAndResets(t *testing.T) {
	g := NewTransitionGraph()
	g.AddRule(TransitionRule{
		From: 1,
		To:   2,
		Transition: func(s *CellState, lam *float64) bool {
			if s.Temperature <= 373 {
				return false
			}
			*lam += 1.0e6
			if *lam >= 2.0e6 {
				return true
			}
			return false
		},
	})
	id := []MaterialID{1}
	pressure := []float64{1e5}
	density := []float64{1000}
	temperature := []float64{400}
	lambda := []float64{0}
	noBoundary := func(i, j, k int) (GhostFace, bool) { return GhostFace{}, false }

	events, _, _ := g.UpdatePhaseTransitions(1, 1, 1, id, pressure, density, temperature, lambda, noBoundary)
	assert.Empty(t, events)
	assert.Equal(t, MaterialID(1), id[0])
	assert.Equal(t, 1.0e6, lambda[0])

	events, affected, _ := g.UpdatePhaseTransitions(1, 1, 1, id, pressure, density, temperature, lambda, noBoundary)
	assert.Len(t, events, 1)
	assert.Equal(t, MaterialID(2), id[0])
	assert.Equal(t, 0.0, lambda[0]) // reset on commit
	assert.True(t, affected[1])
	assert.True(t, affected[2])
}

func TestUpdatePhaseTransitionsAdoptsBoundaryGhostID(t *testing.T) {
	g := NewTransitionGraph()
	g.AddRule(TransitionRule{
		From: 1,
		To:   2,
		Transition: func(s *CellState, lam *float64) bool { return true },
	})
	id := []MaterialID{1}
	pressure := []float64{0}
	density := []float64{0}
	temperature := []float64{0}
	lambda := []float64{0}
	wallFace := GhostFace{Axis: 0, Lo: true, A: 0, B: 0}
	onWall := func(i, j, k int) (GhostFace, bool) { return wallFace, true }

	_, _, ghosts := g.UpdatePhaseTransitions(1, 1, 1, id, pressure, density, temperature, lambda, onWall)
	assert.Equal(t, MaterialID(2), ghosts[wallFace])
}

func TestUpdatePhiAfterPhaseTransitionsWritesHalfCellAndNeighbors(t *testing.T) {
	phi1 := []float64{-0.3, -0.3, -0.3}
	idx := func(i, j, k int) int { return i }
	events := []TransitionEvent{{I: 1, J: 0, K: 0, From: 1, To: 0, LatentHeat: 0}}
	UpdatePhiAfterPhaseTransitions(events, [][]float64{phi1}, 3, 1, 1, idx, [3]float64{0.2, 0.2, 0.2})
	assert.Equal(t, 0.1, phi1[0])
	assert.Equal(t, 0.1, phi1[1])
	assert.Equal(t, 0.1, phi1[2])
}

func TestResolveConflictsInLevelSetsUsesMeanMagnitude(t *testing.T) {
	phi1 := []float64{-1}
	phi2 := []float64{-0.5}
	n := ResolveConflictsInLevelSets(1, 1, 1, [][]float64{phi1, phi2})
	assert.Equal(t, 1, n)
	assert.Equal(t, -0.75, phi1[0])
	assert.Equal(t, 0.75, phi2[0])
}

func TestResolveIsolatedBackgroundCellsFlipsUnderThreshold(t *testing.T) {
	// A 3-cell line; cell 1 is background but has zero same-background
	// neighbors (both cell 0 and cell 2 belong to material 1), so it
	// should flip to the nearest interface.
	phi1 := []float64{-1, 0.2, -1}
	n := ResolveIsolatedBackgroundCells(3, 1, 1, [][]float64{phi1}, 1, 1)
	assert.Equal(t, 1, n)
	assert.Equal(t, -0.2, phi1[1])
}

func TestResolveIsolatedBackgroundCellsSkipsOffFrequency(t *testing.T) {
	phi1 := []float64{-1, 0.2, -1}
	n := ResolveIsolatedBackgroundCells(3, 1, 1, [][]float64{phi1}, 1, 4)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0.2, phi1[1])
}

func TestApplyLatentHeatAccumulates(t *testing.T) {
	enthalpy := []float64{100}
	idx := func(i, j, k int) int { return 0 }
	events := []TransitionEvent{{I: 0, J: 0, K: 0, LatentHeat: 50}}
	ApplyLatentHeat(events, enthalpy, idx)
	assert.Equal(t, 150.0, enthalpy[0])
}
