package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linspace(a, b float64, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = a + (b-a)*float64(i)/float64(n-1)
	}
	return v
}

func TestNewGlobalGeometry(t *testing.T) {
	g, err := NewGlobalGeometry(linspace(0, 1, 5), linspace(0, 1, 5), linspace(0, 1, 9))
	assert.NoError(t, err)
	nx, ny, nz := g.NumCells()
	assert.Equal(t, 4, nx)
	assert.Equal(t, 4, ny)
	assert.Equal(t, 8, nz)
}

func TestFindCellCoveringPoint(t *testing.T) {
	g, _ := NewGlobalGeometry(linspace(0, 1, 5), linspace(0, 1, 5), linspace(0, 1, 5))
	i, j, k, ok := g.FindCellCoveringPoint([3]float64{0.1, 0.1, 0.1})
	assert.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0, j)
	assert.Equal(t, 0, k)

	_, _, _, ok = g.FindCellCoveringPoint([3]float64{2.0, 0.1, 0.1})
	assert.False(t, ok)
}

func TestDecomposeBalanced(t *testing.T) {
	g, _ := NewGlobalGeometry(linspace(0, 1, 3), linspace(0, 1, 3), linspace(0, 1, 9))
	parts := Decompose(g, 4, 1)
	assert.Len(t, parts, 4)
	total := 0
	for _, p := range parts {
		total += p.KMax - p.KMin
	}
	assert.Equal(t, 8, total)
}

func TestTopologyEnds(t *testing.T) {
	g, _ := NewGlobalGeometry(linspace(0, 1, 3), linspace(0, 1, 3), linspace(0, 1, 5))
	parts := Decompose(g, 2, 1)
	t0 := Topology(parts[0])
	assert.Equal(t, -1, t0.LoRank)
	assert.Equal(t, 1, t0.HiRank)
	t1 := Topology(parts[1])
	assert.Equal(t, 0, t1.LoRank)
	assert.Equal(t, -1, t1.HiRank)
}

func TestFieldBorrowRestoreRoundTrip(t *testing.T) {
	g, _ := NewGlobalGeometry(linspace(0, 1, 3), linspace(0, 1, 3), linspace(0, 1, 5))
	parts := Decompose(g, 1, 1)
	f := NewField(parts[0], 2, 2, 5)
	f.Set(0, 0, 0, 0, 3.14)
	assert.Equal(t, 3.14, f.At(0, 0, 0, 0))

	data := f.Borrow()
	assert.NotNil(t, data)
	assert.Panics(t, func() { f.Borrow() })
	f.Restore(nil, 0)
	assert.NotPanics(t, func() { f.Borrow() })
	f.Restore(nil, 0)
}

func TestNearestNodeSameSide(t *testing.T) {
	candidates := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0.1, 0, 0}}
	mat := []int{1, 2, 1}
	idx, found := NearestNodeSameSide([3]float64{0.08, 0, 0}, candidates, mat, 1)
	assert.True(t, found)
	assert.Equal(t, 2, idx)

	_, found = NearestNodeSameSide([3]float64{0, 0, 0}, candidates, mat, 9)
	assert.False(t, found)
}
