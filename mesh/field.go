package mesh

import "github.com/notargets/m2c-go/utils"

// Field is a cell-centered tensor over one rank's owned-plus-ghost index
// box, addressed (i,j,k,component). Implements Design Note 1: instead of
// the original's "get data pointer, mutate through it, restore data
// pointer" idiom, callers Borrow a scoped slice view, mutate it, and
// Restore it, which also triggers halo resynchronization.
type Field struct {
	part       *Partition
	nx, ny     int      // owned cell counts along i, j (not decomposed)
	ncomp      int      // components per cell (1 for scalar fields, 5 for state)
	ghost      int      // ghost layers along k only (i,j are not decomposed)
	data       []float64
	borrowed   bool
}

// NewField allocates a Field over partition p with nx, ny owned cells
// along the non-decomposed axes and ncomp components per cell.
func NewField(p *Partition, nx, ny, ncomp int) *Field {
	kLen := p.KMax - p.KMin + 2*p.GhostLayers
	return &Field{
		part:  p,
		nx:    nx,
		ny:    ny,
		ncomp: ncomp,
		ghost: p.GhostLayers,
		data:  make([]float64, nx*ny*kLen*ncomp),
	}
}

func (f *Field) kLen() int { return f.part.KMax - f.part.KMin + 2*f.ghost }

// idx converts owned-space (i,j,k) plus component c into a flat offset.
// k is relative to the owned range, and may be negative (into the lower
// ghost layer) or exceed the owned extent (into the upper ghost layer).
func (f *Field) idx(i, j, k, c int) int {
	kk := k + f.ghost
	return ((i*f.ny+j)*f.kLen()+kk)*f.ncomp + c
}

// Borrow returns the raw backing slice for direct mutation. The caller
// must call Restore when done; Borrow panics if already borrowed, mirroring
// the original's single-outstanding-pointer discipline.
func (f *Field) Borrow() []float64 {
	if f.borrowed {
		panic("mesh: Field already borrowed")
	}
	f.borrowed = true
	return f.data
}

// Restore ends a Borrow and exchanges ghost planes with neighbor ranks
// through mb, keyed by tag (so multiple fields can share one MailBox).
func (f *Field) Restore(mb *utils.MailBox[HaloMessage], tag int) {
	if !f.borrowed {
		panic("mesh: Restore without matching Borrow")
	}
	f.borrowed = false
	if mb != nil {
		f.ExchangeHalo(mb, tag)
	}
}

// At reads a single component without borrowing; safe for concurrent
// readers as long as no Borrow is outstanding.
func (f *Field) At(i, j, k, c int) float64 { return f.data[f.idx(i, j, k, c)] }

// Set writes a single component without a full Borrow/Restore cycle. Only
// safe for ranks not sharing the backing array.
func (f *Field) Set(i, j, k, c int, v float64) { f.data[f.idx(i, j, k, c)] = v }

// Owned returns the owned k-extent (not counting ghost layers).
func (f *Field) Owned() (nx, ny, nk int) { return f.nx, f.ny, f.part.KMax - f.part.KMin }

// HaloMessage is one ghost plane posted between neighbor ranks: the flat
// payload for a single k-plane of ncomp-wide cell data plus enough
// addressing to unpack it on the receiving side.
type HaloMessage struct {
	FromRank int
	Tag      int
	K        int // the owned k-plane index (global) that was sent
	Plane    []float64
}

// ExchangeHalo posts this rank's boundary planes to its ±k neighbors and
// unpacks whatever has arrived into the local ghost layers. Grounded on
// utils.MailBox.PostMessage/DeliverMyMessages/ReceiveMyMessages
// (gocfd/utils/parallel_utils.go), the goroutine-per-rank stand-in for an
// MPI halo exchange since no example repo carries MPI bindings.
func (f *Field) ExchangeHalo(mb *utils.MailBox[HaloMessage], tag int) {
	topo := Topology(f.part)
	nk := f.part.KMax - f.part.KMin

	for g := 0; g < f.ghost; g++ {
		if topo.LoRank != -1 {
			mb.PostMessage(f.part.Rank, topo.LoRank, HaloMessage{
				FromRank: f.part.Rank, Tag: tag, K: f.part.KMin + g,
				Plane: f.extractPlane(g),
			})
		}
		if topo.HiRank != -1 {
			mb.PostMessage(f.part.Rank, topo.HiRank, HaloMessage{
				FromRank: f.part.Rank, Tag: tag, K: f.part.KMin + nk - 1 - g,
				Plane: f.extractPlane(nk - 1 - g),
			})
		}
	}
	mb.DeliverMyMessages(f.part.Rank)
	mb.ReceiveMyMessages(f.part.Rank)

	for _, msg := range mb.ReceiveMsgQs[f.part.Rank].Cells() {
		if msg.Tag != tag {
			continue
		}
		if msg.FromRank == topo.LoRank || msg.FromRank == topo.HiRank {
			// A plane from below lands at local -1-g, one from above at nk+g.
			f.injectPlane(msg.K-f.part.KMin, msg.Plane)
		}
	}
	mb.ClearMyMessages(f.part.Rank)
}

func (f *Field) extractPlane(k int) []float64 {
	plane := make([]float64, f.nx*f.ny*f.ncomp)
	n := 0
	for i := 0; i < f.nx; i++ {
		for j := 0; j < f.ny; j++ {
			for c := 0; c < f.ncomp; c++ {
				plane[n] = f.At(i, j, k, c)
				n++
			}
		}
	}
	return plane
}

func (f *Field) injectPlane(k int, plane []float64) {
	n := 0
	for i := 0; i < f.nx; i++ {
		for j := 0; j < f.ny; j++ {
			for c := 0; c < f.ncomp; c++ {
				f.Set(i, j, k, c, plane[n])
				n++
			}
		}
	}
}
