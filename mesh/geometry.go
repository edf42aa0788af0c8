// Package mesh implements the structured Cartesian geometry, the rank
// decomposition along k, and the ghost-halo exchange primitive that every
// other package builds on. Grounded on utils.PartitionMap/MailBox
// (gocfd/utils/parallel_utils.go) for the decomposition and exchange
// mechanics, and on GlobalMeshInfo.cpp (original_source) for the geometry
// query surface.
package mesh

import (
	"fmt"

	"github.com/notargets/m2c-go/utils"
)

// GlobalGeometry holds the full, un-decomposed rectilinear coordinate and
// spacing arrays shared read-only by every rank.
type GlobalGeometry struct {
	X, Y, Z    []float64 // node coordinates along each axis
	Dx, Dy, Dz []float64 // cell widths along each axis (len = len(X)-1, etc.)
}

// NewGlobalGeometry builds a GlobalGeometry from three monotonically
// increasing node-coordinate arrays.
func NewGlobalGeometry(x, y, z []float64) (*GlobalGeometry, error) {
	if len(x) < 2 || len(y) < 2 || len(z) < 2 {
		return nil, fmt.Errorf("mesh: each axis needs at least 2 nodes")
	}
	g := &GlobalGeometry{X: x, Y: y, Z: z}
	g.Dx = diff(x)
	g.Dy = diff(y)
	g.Dz = diff(z)
	return g, nil
}

func diff(v []float64) []float64 {
	d := make([]float64, len(v)-1)
	for i := range d {
		d[i] = v[i+1] - v[i]
		if d[i] <= 0 {
			panic(fmt.Sprintf("mesh: non-increasing coordinate array at index %d", i))
		}
	}
	return d
}

// NumCells returns the number of cells along each axis.
func (g *GlobalGeometry) NumCells() (nx, ny, nz int) {
	return len(g.Dx), len(g.Dy), len(g.Dz)
}

// FindCellCoveringPoint returns the (i,j,k) cell index containing point p,
// or ok=false if p lies outside the global domain. Grounded on
// GlobalMeshInfo::FindCellCoveringPoint (original_source).
func (g *GlobalGeometry) FindCellCoveringPoint(p [3]float64) (i, j, k int, ok bool) {
	i, ok = locate(g.X, p[0])
	if !ok {
		return
	}
	j, ok = locate(g.Y, p[1])
	if !ok {
		return
	}
	k, ok = locate(g.Z, p[2])
	return
}

func locate(coord []float64, v float64) (idx int, ok bool) {
	if v < coord[0] || v > coord[len(coord)-1] {
		return 0, false
	}
	for i := 0; i < len(coord)-1; i++ {
		if v >= coord[i] && v <= coord[i+1] {
			return i, true
		}
	}
	return 0, false
}

// NearestNodeSameSide finds the node nearest to p among the candidate
// indices whose material id matches sideMaterial, refusing to cross the
// interface. Grounded on EmbeddedBoundaryOperator::FindNearestNodeOnSameSide
// (original_source), supplemented into this module per SPEC_FULL.md.
func NearestNodeSameSide(p [3]float64, candidates [][3]float64, candidateMaterial []int, sideMaterial int) (idx int, found bool) {
	best := -1
	bestDist := 0.0
	for i, c := range candidates {
		if candidateMaterial[i] != sideMaterial {
			continue
		}
		d := sqDist(p, c)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func sqDist(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// Partition describes one rank's owned index range along k (the
// decomposed axis) plus the ghost-layer depth shared with neighbors.
type Partition struct {
	Rank        int
	KMin, KMax  int // owned range [KMin, KMax)
	GhostLayers int
	Global      *GlobalGeometry
	PM          *utils.PartitionMap
}

// Decompose splits the global geometry into nranks partitions along k,
// each carrying ghostLayers of halo depth. Grounded on
// utils.NewPartitionMap (gocfd/utils/parallel_utils.go), which implements
// the same near-balanced 1D split the original's domain decomposition
// performs along its slowest index.
func Decompose(g *GlobalGeometry, nranks, ghostLayers int) []*Partition {
	_, _, nz := g.NumCells()
	pm := utils.NewPartitionMap(nranks, nz)
	parts := make([]*Partition, nranks)
	for r := 0; r < nranks; r++ {
		kmin, kmax := pm.GetBucketRange(r)
		parts[r] = &Partition{
			Rank:        r,
			KMin:        kmin,
			KMax:        kmax,
			GhostLayers: ghostLayers,
			Global:      g,
			PM:          pm,
		}
	}
	return parts
}

// RankTopology names the neighbor ranks a Partition must exchange ghost
// planes with, resolved through utils.PartitionMap.GetNeighborBuckets —
// the slab-decomposition analogue of an element-to-element table.
type RankTopology struct {
	Rank        int
	LoRank      int // -1 if this is the lowest-k rank
	HiRank      int // -1 if this is the highest-k rank
}

// Topology builds the RankTopology for partition p.
func Topology(p *Partition) RankTopology {
	lo, hi := p.PM.GetNeighborBuckets(p.Rank)
	return RankTopology{Rank: p.Rank, LoRank: lo, HiRank: hi}
}
