// Package solver provides the time-integrator glue described in §4.5: it
// drives the per-step sequence of fvm residual assembly, state update,
// level-set reinitialization, multi-material repair, phase transitions, and
// level-set conflict resolution, in the data-flow order fixed by §2.
// Grounded directly on Euler2D.RungeKutta4SSP / Step and
// PrintInitialization / PrintUpdate / PrintFinal
// (gocfd/model_problems/Euler2D/euler.go) for the SSP-RK outer loop and
// console-reporting idiom.
package solver

import (
	"fmt"
	"math"

	"github.com/notargets/m2c-go/embedded"
	"github.com/notargets/m2c-go/fatal"
	"github.com/notargets/m2c-go/fvm"
	"github.com/notargets/m2c-go/levelset"
	"github.com/notargets/m2c-go/logx"
	"github.com/notargets/m2c-go/multiphase"
	"github.com/notargets/m2c-go/state"
	"github.com/notargets/m2c-go/utils"
)

// ssprk3Weights are the 3-stage strong-stability-preserving
// Runge-Kutta coefficients, matching Euler2D's RungeKutta4SSP stage
// combination (generalized here to the standard 3rd-order SSP-RK3 scheme
// used for both the flow update and the level-set pseudo-time march).
var ssprk3Weights = [3][3]float64{
	{0, 0, 1},
	{0.75, 0, 0.25},
	{1.0 / 3.0, 0, 2.0 / 3.0},
}

// Config bundles the parameters PrintInitialization reports at startup,
// matching Euler2D's run-header summary.
type Config struct {
	NX, NY, NZ  int
	H           [3]float64
	CFL         float64
	FinalTime   float64
	MaxSteps    int
	FluxScheme  fvm.FluxScheme
	Materials   []state.EOS
	Reinit      *levelset.Reinitializer
	Transitions *multiphase.TransitionGraph
	Surfaces    []*embedded.Surface

	// Upwind selects the upwind admission test in the multi-material state
	// repair (§4.3).
	Upwind bool
	// FailSafeDensity is the density assigned to a cell that exhausts every
	// fallback in FixUnresolvedNodes's chain.
	FailSafeDensity float64
	// ResolveIsolatedCellsFrequency is the step interval on which
	// ResolveIsolatedBackgroundCells runs; zero disables the sweep.
	ResolveIsolatedCellsFrequency int
	// BCFaces names the boundary condition on each of the six physical
	// domain faces, indexed [axis][0=lo,1=hi]. A transitioned boundary
	// cell's new material id mirrors onto the ghost across a wall or
	// symmetry face.
	BCFaces [3][2]utils.BCType
}

// Integrator owns the mutable per-step state and drives the solve loop.
type Integrator struct {
	cfg      Config
	rank     int
	log      *logx.Logger
	sink     *fatal.Sink
	V        []state.Primitive
	MatID    []multiphase.MaterialID
	Phi      [][]float64
	Lambda   []float64
	Enthalpy []float64
	step     int
	time     float64
}

// NewIntegrator constructs an Integrator over an initial flow field v0,
// material-id field id0, and per-material level sets phi0, matching
// Euler2D's constructor-then-PrintInitialization startup sequence.
func NewIntegrator(cfg Config, rank int, v0 []state.Primitive, id0 []multiphase.MaterialID, phi0 [][]float64) *Integrator {
	it := &Integrator{
		cfg:      cfg,
		rank:     rank,
		log:      logx.New(rank),
		sink:     &fatal.Sink{},
		V:        v0,
		MatID:    id0,
		Phi:      phi0,
		Lambda:   make([]float64, len(v0)),
		Enthalpy: make([]float64, len(v0)),
	}
	it.printInitialization()
	return it
}

func (it *Integrator) printInitialization() {
	it.log.Info("grid %dx%dx%d, cfl=%.3f, final time=%.4g", it.cfg.NX, it.cfg.NY, it.cfg.NZ, it.cfg.CFL, it.cfg.FinalTime)
}

// Step advances the solution by one time step, running the §2 data-flow
// order: residual assembly and flow update, interface tracking, level-set
// reinitialization, material-id update, state repair, unresolved-node
// fallback, phase transitions, and level-set conflict resolution. It
// returns the chosen dt, or an error if a fatal multi-material or
// hyperbolicity condition aborted the run.
func (it *Integrator) Step() (dt float64, err error) {
	eosOf := func(m multiphase.MaterialID) state.EOS {
		idx := int(m) - 1
		if idx < 0 || idx >= len(it.cfg.Materials) {
			return it.cfg.Materials[0]
		}
		return it.cfg.Materials[idx]
	}
	matAt := func(i, j, k int) int {
		return int(it.MatID[it.flatIndex(i, j, k)])
	}
	vAt := func(i, j, k int) state.Primitive {
		return it.V[it.flatIndex(i, j, k)]
	}

	dt = it.computeGlobalTimeStep(eosOf)
	if it.time+dt > it.cfg.FinalTime {
		dt = it.cfg.FinalTime - it.time
	}

	stats := &fvm.ClipStats{}
	u0 := make([]state.Conservative, len(it.V))
	for i, v := range it.V {
		u0[i] = state.PrimitiveToConservative(v, eosOf(it.MatID[i]))
	}

	stageState := make([]state.Conservative, len(u0))
	copy(stageState, u0)

	recon := fvm.NewReconstructor()
	for stage := 0; stage < 3; stage++ {
		res := fvm.ComputeResidual(it.cfg.NX, it.cfg.NY, it.cfg.NZ, vAt, matAt, eosOf, it.cfg.H, it.cfg.FluxScheme, recon, stats)
		updated := make([]state.Conservative, len(u0))
		for idx := range u0 {
			i, j, k := it.unflatten(idx)
			r := res.At(i, j, k)
			var step state.Conservative
			for c := 0; c < 5; c++ {
				step[c] = stageState[idx][c] + dt*r[c]
			}
			w := ssprk3Weights[stage]
			for c := 0; c < 5; c++ {
				updated[idx][c] = w[0]*u0[idx][c] + w[1]*stageState[idx][c] + w[2]*step[c]
			}
		}
		stageState = updated

		for idx := range it.V {
			v := state.ConservativeToPrimitive(stageState[idx], eosOf(it.MatID[idx]))
			v = fvm.ClipToPositivity(v, 1e-10, stats)
			if c2 := eosOf(it.MatID[idx]).SoundSpeedSquared(v[0], v[4]); !(c2 > 0) {
				it.sink.Report(fatal.New(fatal.Hyperbolicity, it.rank, "flow update",
					fmt.Errorf("cell %d has squared sound speed %g after clipping, state %v", idx, c2, v)))
				return dt, it.sink.First()
			}
			it.V[idx] = v
		}
	}

	if stats.DensityClips > 0 || stats.PressureClips > 0 {
		it.log.Warn("clipped %d density, %d pressure nodes at step %d", stats.DensityClips, stats.PressureClips, it.step)
	}

	var extrema fvm.Extrema
	for i, v := range it.V {
		fvm.ComputeExtrema(&extrema, i == 0, v, eosOf(it.MatID[i]))
	}
	it.log.Info("rho[%.4g,%.4g] p[%.4g,%.4g] maxMach=%.3g maxCharSpeed=%.4g at step %d",
		extrema.MinDensity, extrema.MaxDensity, extrema.MinPressure, extrema.MaxPressure,
		extrema.MaxMach, extrema.MaxCharSpeed, it.step)

	gridSampler := &structuredGridSampler{it: it}
	rule := embedded.ThreePointGaussRule()
	for _, surf := range it.cfg.Surfaces {
		embedded.TrackSurfaces(surf, dt, it.cfg.Reinit.MaxIters)

		sampler := embedded.NewLoftingSampler(gridSampler, math.Min(it.cfg.H[0], math.Min(it.cfg.H[1], it.cfg.H[2])))
		result := embedded.ComputeForces(surf, rule, sampler, centroid(surf.Nodes))
		_, nodalForce := embedded.NodeForceScatter(surf, rule, sampler)
		surf.NodalForce = nodalForce
		it.log.Info("surface force=(%.4g,%.4g,%.4g) moment=(%.4g,%.4g,%.4g), %d lofted, %d failed at step %d",
			result.Force[0], result.Force[1], result.Force[2],
			result.Moment[0], result.Moment[1], result.Moment[2],
			result.LoftedPoints, result.FailedPoints, it.step)
	}

	for m := range it.Phi {
		_, converged := it.cfg.Reinit.Reinitialize(it.Phi[m])
		if !converged {
			it.log.Warn("level set %d reinitialization did not converge at step %d", m, it.step)
		}
	}

	idOld := make([]multiphase.MaterialID, len(it.MatID))
	copy(idOld, it.MatID)
	idNew, overlaps := multiphase.UpdateMaterialID(it.cfg.NX, it.cfg.NY, it.cfg.NZ, it.Phi)
	if overlaps > 0 {
		it.sink.Report(fatal.New(fatal.MultiMaterial, it.rank, "material-id update",
			fmt.Errorf("%d cells claimed by more than one level set", overlaps)))
		return dt, it.sink.First()
	}
	it.MatID = idNew

	results := multiphase.UpdateStateVariablesAfterInterfaceMotion(
		it.cfg.NX, it.cfg.NY, it.cfg.NZ, idOld, it.MatID, it.V, eosOf,
		it.faceNeighborClosure(), it.neighbor27Closure(idOld, it.MatID),
		it.cfg.H, it.cfg.Upwind, multiphase.ModeRiemann)

	var unresolved []multiphase.RepairResult
	for _, r := range results {
		if !r.Converged {
			unresolved = append(unresolved, r)
		}
	}
	if len(unresolved) > 0 {
		unresolvedSet := make(map[int]bool, len(unresolved))
		for _, u := range unresolved {
			unresolvedSet[it.flatIndex(u.I, u.J, u.K)] = true
		}
		idxOf := func(i, j, k int) int { return it.flatIndex(i, j, k) }
		fixedCount, failsafeCount, _ := multiphase.FixUnresolvedNodes(
			unresolved, it.V, idxOf,
			it.upwind27Closure(it.MatID, unresolvedSet),
			it.distanceWeighted27Closure(it.MatID, unresolvedSet),
			it.ringDensityClosure(it.MatID),
			it.cfg.FailSafeDensity)
		if fixedCount > 0 {
			it.log.Warn("fixed %d unresolved nodes via fallback chain at step %d", fixedCount, it.step)
		}
		if failsafeCount > 0 {
			it.sink.Report(fatal.New(fatal.MultiMaterial, it.rank, "unresolved-node fallback",
				fmt.Errorf("%d cells exhausted every fallback", failsafeCount)))
			return dt, it.sink.First()
		}
	}

	if it.cfg.Transitions != nil {
		pressure := make([]float64, len(it.V))
		density := make([]float64, len(it.V))
		temperature := make([]float64, len(it.V))
		for i, v := range it.V {
			pressure[i] = v[4]
			density[i] = v[0]
			temperature[i] = v[4] / (v[0] * 287.0)
		}
		events, affected, ghosts := it.cfg.Transitions.UpdatePhaseTransitions(
			it.cfg.NX, it.cfg.NY, it.cfg.NZ, it.MatID, pressure, density, temperature, it.Lambda, it.boundaryFace)
		for i, v := range it.V {
			v[4], v[0] = pressure[i], density[i]
			it.V[i] = v
		}
		if len(events) > 0 {
			idxOf := func(i, j, k int) int { return it.flatIndex(i, j, k) }
			multiphase.UpdatePhiAfterPhaseTransitions(events, it.Phi, it.cfg.NX, it.cfg.NY, it.cfg.NZ, idxOf, it.cfg.H)
			multiphase.ApplyLatentHeat(events, it.Enthalpy, idxOf)
			for m := range it.Phi {
				if !affected[multiphase.MaterialID(m+1)] {
					continue
				}
				if _, converged := it.cfg.Reinit.Reinitialize(it.Phi[m]); !converged {
					it.log.Warn("level set %d reinitialization after phase transition did not converge at step %d", m, it.step)
				}
			}
			it.log.Info("committed %d phase transitions at step %d, %d boundary ghosts adopted", len(events), it.step, len(ghosts))
		}
	}

	conflicts := multiphase.ResolveConflictsInLevelSets(it.cfg.NX, it.cfg.NY, it.cfg.NZ, it.Phi)
	if conflicts > 0 {
		it.log.Warn("resolved %d level-set conflicts at step %d", conflicts, it.step)
	}
	if flips := multiphase.ResolveIsolatedBackgroundCells(it.cfg.NX, it.cfg.NY, it.cfg.NZ, it.Phi, it.step, it.cfg.ResolveIsolatedCellsFrequency); flips > 0 {
		it.log.Warn("flipped %d isolated background cells at step %d", flips, it.step)
	}

	it.time += dt
	it.step++
	it.log.Step("step %d, t=%.6g, dt=%.3g", it.step, it.time, dt)
	return dt, nil
}

// Solve advances the Integrator until FinalTime or MaxSteps is reached,
// matching Euler2D's top-level Solve driver loop.
func (it *Integrator) Solve() error {
	for it.step < it.cfg.MaxSteps && it.time < it.cfg.FinalTime {
		if _, err := it.Step(); err != nil {
			return err
		}
		if it.time >= it.cfg.FinalTime {
			break
		}
	}
	it.log.Info("finished after %d steps at t=%.6g", it.step, it.time)
	return nil
}

func (it *Integrator) flatIndex(i, j, k int) int { return (i*it.cfg.NY+j)*it.cfg.NZ + k }

func (it *Integrator) unflatten(idx int) (i, j, k int) {
	k = idx % it.cfg.NZ
	j = (idx / it.cfg.NZ) % it.cfg.NY
	i = idx / (it.cfg.NZ * it.cfg.NY)
	return
}

func (it *Integrator) inBounds(i, j, k int) bool {
	return i >= 0 && i < it.cfg.NX && j >= 0 && j < it.cfg.NY && k >= 0 && k < it.cfg.NZ
}

var faceOffsets = [6][3]int{
	multiphase.DirLeft: {-1, 0, 0}, multiphase.DirRight: {1, 0, 0},
	multiphase.DirBottom: {0, -1, 0}, multiphase.DirTop: {0, 1, 0},
	multiphase.DirBack: {0, 0, -1}, multiphase.DirFront: {0, 0, 1},
}

// faceNeighborClosure supplies the six per-axis neighbor caches
// UpdateStateVariablesAfterInterfaceMotion consults in ModeRiemann.
func (it *Integrator) faceNeighborClosure() func(i, j, k int, dir multiphase.Direction) multiphase.FaceNeighbor {
	return func(i, j, k int, dir multiphase.Direction) multiphase.FaceNeighbor {
		d := faceOffsets[dir]
		ni, nj, nk := i+d[0], j+d[1], k+d[2]
		if !it.inBounds(ni, nj, nk) {
			return multiphase.FaceNeighbor{}
		}
		idx := it.flatIndex(ni, nj, nk)
		return multiphase.FaceNeighbor{V: it.V[idx], ID: it.MatID[idx], Ok: true}
	}
}

// neighbor27Closure supplies the 27-cell neighborhood
// UpdateStateVariablesAfterInterfaceMotion consults in ModeExtrapolation,
// reporting whether each neighbor's own id changed this step.
func (it *Integrator) neighbor27Closure(idOld, idNew []multiphase.MaterialID) func(i, j, k, di, dj, dk int) (state.Primitive, multiphase.MaterialID, bool, bool) {
	return func(i, j, k, di, dj, dk int) (state.Primitive, multiphase.MaterialID, bool, bool) {
		ni, nj, nk := i+di, j+dj, k+dk
		if !it.inBounds(ni, nj, nk) {
			return state.Primitive{}, 0, false, false
		}
		idx := it.flatIndex(ni, nj, nk)
		return it.V[idx], idNew[idx], idOld[idx] != idNew[idx], true
	}
}

// upwind27Closure and distanceWeighted27Closure reuse the same 27-cell
// weighted-average logic UpdateStateVariablesAfterInterfaceMotion uses,
// restricted to same-new-id neighbors that are themselves already resolved,
// feeding FixUnresolvedNodes's first two fallback stages.
func (it *Integrator) upwind27Closure(idNew []multiphase.MaterialID, unresolved map[int]bool) func(i, j, k int) (state.Primitive, bool) {
	return it.weighted27Closure(idNew, unresolved, true)
}

func (it *Integrator) distanceWeighted27Closure(idNew []multiphase.MaterialID, unresolved map[int]bool) func(i, j, k int) (state.Primitive, bool) {
	return it.weighted27Closure(idNew, unresolved, false)
}

func (it *Integrator) weighted27Closure(idNew []multiphase.MaterialID, unresolved map[int]bool, upwindOnly bool) func(i, j, k int) (state.Primitive, bool) {
	return func(i, j, k int) (state.Primitive, bool) {
		n := it.flatIndex(i, j, k)
		var sumDensity, sumU, sumVv, sumW, sumP, sumWeight float64
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				for dk := -1; dk <= 1; dk++ {
					if di == 0 && dj == 0 && dk == 0 {
						continue
					}
					ni, nj, nk := i+di, j+dj, k+dk
					if !it.inBounds(ni, nj, nk) {
						continue
					}
					nidx := it.flatIndex(ni, nj, nk)
					if idNew[nidx] != idNew[n] || unresolved[nidx] {
						continue
					}
					nv := it.V[nidx]
					var w float64
					if upwindOnly {
						disp := [3]float64{-float64(di) * it.cfg.H[0], -float64(dj) * it.cfg.H[1], -float64(dk) * it.cfg.H[2]}
						w = disp[0]*nv[1] + disp[1]*nv[2] + disp[2]*nv[3]
						if w <= 0 {
							continue
						}
					} else {
						dist := math.Sqrt(math.Pow(float64(di)*it.cfg.H[0], 2) + math.Pow(float64(dj)*it.cfg.H[1], 2) + math.Pow(float64(dk)*it.cfg.H[2], 2))
						if dist <= 0 {
							continue
						}
						w = 1.0 / dist
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
			return state.Primitive{}, false
		}
		return state.Primitive{sumDensity / sumWeight, sumU / sumWeight, sumVv / sumWeight, sumW / sumWeight, sumP / sumWeight}, true
	}
}

// ringDensityClosure searches outward in Chebyshev rings for any
// same-new-id neighbor's density, feeding FixUnresolvedNodes's ring-search
// fallback stage.
func (it *Integrator) ringDensityClosure(idNew []multiphase.MaterialID) func(i, j, k, ring int) (float64, bool) {
	return func(i, j, k, ring int) (float64, bool) {
		n := it.flatIndex(i, j, k)
		for di := -ring; di <= ring; di++ {
			for dj := -ring; dj <= ring; dj++ {
				for dk := -ring; dk <= ring; dk++ {
					if maxAbs3(di, dj, dk) != ring {
						continue
					}
					ni, nj, nk := i+di, j+dj, k+dk
					if !it.inBounds(ni, nj, nk) {
						continue
					}
					nidx := it.flatIndex(ni, nj, nk)
					if idNew[nidx] == idNew[n] {
						return it.V[nidx][0], true
					}
				}
			}
		}
		return 0, false
	}
}

func maxAbs3(a, b, c int) int {
	m := absInt(a)
	if v := absInt(b); v > m {
		m = v
	}
	if v := absInt(c); v > m {
		m = v
	}
	return m
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// boundaryFace reports whether (i,j,k) sits on a physical domain face
// configured as a wall or symmetry boundary, the condition under which
// UpdatePhaseTransitions mirrors a committed transition's new id onto the
// ghost across that face. Corner cells touching more than one boundary
// report the first matching axis in x, y, z order.
func (it *Integrator) boundaryFace(i, j, k int) (multiphase.GhostFace, bool) {
	if i == 0 && it.cfg.BCFaces[0][0].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 0, Lo: true, A: j, B: k}, true
	}
	if i == it.cfg.NX-1 && it.cfg.BCFaces[0][1].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 0, Lo: false, A: j, B: k}, true
	}
	if j == 0 && it.cfg.BCFaces[1][0].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 1, Lo: true, A: i, B: k}, true
	}
	if j == it.cfg.NY-1 && it.cfg.BCFaces[1][1].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 1, Lo: false, A: i, B: k}, true
	}
	if k == 0 && it.cfg.BCFaces[2][0].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 2, Lo: true, A: i, B: j}, true
	}
	if k == it.cfg.NZ-1 && it.cfg.BCFaces[2][1].IsWallOrSymmetry() {
		return multiphase.GhostFace{Axis: 2, Lo: false, A: i, B: j}, true
	}
	return multiphase.GhostFace{}, false
}

// structuredGridSampler implements embedded.SidedSampler by floor-dividing a
// query point by the cell spacing, the structured-mesh analogue of
// mesh.GlobalGeometry.FindCellCoveringPoint for a sampler that only needs the
// owning cell's flow state, not a full covering-point query. Side is ignored:
// the flow field carries no embedded-boundary distance information the
// sampler could use to pick a specific side, so it always reports the
// covering cell's state, matching the original's same-side sampling in the
// degenerate single-phase case.
type structuredGridSampler struct {
	it *Integrator
}

func (g *structuredGridSampler) SampleSide(p, normal [3]float64, side int) (state.Primitive, bool) {
	i := int(math.Floor(p[0] / g.it.cfg.H[0]))
	j := int(math.Floor(p[1] / g.it.cfg.H[1]))
	k := int(math.Floor(p[2] / g.it.cfg.H[2]))
	if !g.it.inBounds(i, j, k) {
		return state.Primitive{}, false
	}
	return g.it.V[g.it.flatIndex(i, j, k)], true
}

func centroid(nodes [][3]float64) [3]float64 {
	var c [3]float64
	if len(nodes) == 0 {
		return c
	}
	for _, n := range nodes {
		c[0] += n[0]
		c[1] += n[1]
		c[2] += n[2]
	}
	inv := 1.0 / float64(len(nodes))
	return [3]float64{c[0] * inv, c[1] * inv, c[2] * inv}
}

func (it *Integrator) computeGlobalTimeStep(eosOf func(multiphase.MaterialID) state.EOS) float64 {
	minDt := math.Inf(1)
	h := math.Min(it.cfg.H[0], math.Min(it.cfg.H[1], it.cfg.H[2]))
	for i, v := range it.V {
		dt := fvm.ComputeTimeStep(v, eosOf(it.MatID[i]), h, it.cfg.CFL)
		if dt < minDt {
			minDt = dt
		}
	}
	return minDt
}
