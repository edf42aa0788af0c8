package fvm

import "github.com/notargets/m2c-go/state"

// Residual accumulates the per-cell conservative-variable residual
// R[cell] = -(sum over the cell's faces of outward flux times face area),
// the sign under which the solver adds dt*R to the state, matching Euler2D's
// edge-loop accumulation pattern (parallelism.go) generalized from an
// unstructured DG edge list to a structured 3D face sweep.
type Residual struct {
	nx, ny, nz int
	R          []state.Conservative
}

// NewResidual allocates a zeroed residual over an nx*ny*nz cell grid.
func NewResidual(nx, ny, nz int) *Residual {
	return &Residual{nx: nx, ny: ny, nz: nz, R: make([]state.Conservative, nx*ny*nz)}
}

func (r *Residual) index(i, j, k int) int { return (i*r.ny+j)*r.nz + k }

// Reset zeroes the residual before a new assembly pass.
func (r *Residual) Reset() {
	for i := range r.R {
		r.R[i] = state.Conservative{}
	}
}

// At returns the accumulated residual for cell (i,j,k).
func (r *Residual) At(i, j, k int) state.Conservative { return r.R[r.index(i, j, k)] }

// AddFace multiplies flux (taken along the left-to-right normal) by the
// face area, subtracts it from the left cell and adds it to the right
// cell: R[left] -= flux*area; R[right] += flux*area.
func (r *Residual) AddFace(left, right [3]int, flux [5]float64, area float64) {
	li := r.index(left[0], left[1], left[2])
	for c := 0; c < 5; c++ {
		r.R[li][c] -= flux[c] * area
	}
	if right[0] >= 0 {
		ri := r.index(right[0], right[1], right[2])
		for c := 0; c < 5; c++ {
			r.R[ri][c] += flux[c] * area
		}
	}
}

// ComputeResidual assembles the full residual field for a block of cells
// given their primitive states, a per-face material-id function
// (matID(i,j,k) returns the owning material), an EOS lookup by material
// id, cell spacing h along each axis, and the flux scheme to use on
// same-material faces. Different-material faces dispatch to
// GodunovFluxAtInterface instead, per §4.1.
//
// Before flux evaluation at each face, recon (if non-nil) reconstructs
// slope-limited left/right face-biased states from the neighbor-of-
// neighbor stencil vmm,vm,vp,vpp, per §4.1's MUSCL step; a nil recon
// evaluates fluxes directly on cell-center states. A boundary that lacks
// a neighbor-of-neighbor falls back to the nearest available cell (a
// zero-gradient extension), matching the reconstruction's own minmod
// behavior on a uniform field. Reconstructed states are clipped to
// positivity (stats may be nil to skip counting) before flux evaluation,
// since a MUSCL overshoot can otherwise hand the Riemann solve a
// negative density or pressure.
func ComputeResidual(
	nx, ny, nz int,
	v func(i, j, k int) state.Primitive,
	matID func(i, j, k int) int,
	eosOf func(mat int) state.EOS,
	h [3]float64,
	scheme FluxScheme,
	recon *Reconstructor,
	stats *ClipStats,
) *Residual {
	res := NewResidual(nx, ny, nz)
	dims := [3]int{nx, ny, nz}

	clamp := func(idx [3]int, axis, delta int) [3]int {
		out := idx
		out[axis] += delta
		if out[axis] < 0 || out[axis] >= dims[axis] {
			return idx
		}
		return out
	}

	sweep := func(axis int) {
		n := [3]float64{}
		n[axis] = 1
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				for k := 0; k < nz; k++ {
					cur := [3]int{i, j, k}
					var next [3]int
					switch axis {
					case 0:
						next = [3]int{i + 1, j, k}
					case 1:
						next = [3]int{i, j + 1, k}
					case 2:
						next = [3]int{i, j, k + 1}
					}
					if next[0] >= nx || next[1] >= ny || next[2] >= nz {
						continue
					}
					vm := v(cur[0], cur[1], cur[2])
					vp := v(next[0], next[1], next[2])

					left, right := vm, vp
					if recon != nil {
						mmIdx := clamp(cur, axis, -1)
						ppIdx := clamp(next, axis, 1)
						vmm := v(mmIdx[0], mmIdx[1], mmIdx[2])
						vpp := v(ppIdx[0], ppIdx[1], ppIdx[2])
						left, right = recon.Reconstruct(vmm, vm, vp, vpp)
						left = ClipToPositivity(left, 1e-10, statsOrScratch(stats))
						right = ClipToPositivity(right, 1e-10, statsOrScratch(stats))
					}

					matL := matID(cur[0], cur[1], cur[2])
					matR := matID(next[0], next[1], next[2])

					var flux [5]float64
					if matL == matR {
						flux = NumericalFlux(scheme, left, right, eosOf(matL), n)
					} else {
						godunov, converged := GodunovFluxAtInterface(left, right, eosOf(matL), eosOf(matR), n)
						flux = godunov
						if !converged {
							flux = llfFlux(left, right, eosOf(matL), n)
						}
					}
					area := faceArea(axis, h)
					res.AddFace(cur, next, flux, area)
				}
			}
		}
	}

	sweep(0)
	sweep(1)
	sweep(2)
	return res
}

// statsOrScratch returns stats, or a throwaway counter if the caller passed
// nil, so ComputeResidual can always call ClipToPositivity unconditionally.
func statsOrScratch(stats *ClipStats) *ClipStats {
	if stats != nil {
		return stats
	}
	return &ClipStats{}
}

func faceArea(axis int, h [3]float64) float64 {
	switch axis {
	case 0:
		return h[1] * h[2]
	case 1:
		return h[0] * h[2]
	default:
		return h[0] * h[1]
	}
}
