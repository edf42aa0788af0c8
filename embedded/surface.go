// Package embedded implements the embedded-boundary / fluid-structure
// coupling described in §4.4: reading a triangulated surface, intersecting
// it against the Cartesian mesh, assembling Gauss-quadrature surface
// tractions with sided (same-side) interpolation and lofting retry, and
// tracking solid-body surfaces as they move. Grounded directly on
// EmbeddedBoundaryOperator.cpp (original_source) for method names and
// algorithm structure, and on readfiles/readGambitGrid.go
// (gocfd/readfiles) for the ASCII-mesh-section parsing idiom.
package embedded

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notargets/m2c-go/mesh"
	"github.com/notargets/m2c-go/utils"
)

// Surface is a triangulated boundary: a closed (or open, for partial
// bodies) set of nodes and triangle connectivity, matching the vertex/face
// lists EmbeddedBoundaryOperator reads from a surface file.
type Surface struct {
	Nodes       [][3]float64
	Triangles   [][3]int
	Velocity    [][3]float64 // per-node velocity, for moving surfaces
	NodalForce  [3][]float64 // assembled by NodeForceScatter after the owning Integrator's RK stages
}

// ReadSurfaceFile parses the §6 ASCII surface format: a "Nodes" section of
// "id x y z" lines followed by a "Triangles" section of "id n1 n2 n3"
// lines, matching readGambitGrid.go's line-oriented section parsing idiom
// (gocfd/readfiles/readGambitGrid.go). The leading id of a line is not
// read: nodes are numbered 1, 2, ... in file order and n1 n2 n3 refer to
// those numbers. A triangle that refers to a node outside that range is
// an error.
func ReadSurfaceFile(r io.Reader) (*Surface, error) {
	scanner := bufio.NewScanner(r)
	surf := &Surface{}
	section := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "nodes" {
			section = "nodes"
			continue
		}
		if lower == "triangles" {
			section = "triangles"
			continue
		}
		fields := strings.Fields(line)
		switch section {
		case "nodes":
			if len(fields) < 4 {
				return nil, fmt.Errorf("embedded: malformed node line %q", line)
			}
			x, err1 := strconv.ParseFloat(fields[1], 64)
			y, err2 := strconv.ParseFloat(fields[2], 64)
			z, err3 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("embedded: malformed node coordinates %q", line)
			}
			surf.Nodes = append(surf.Nodes, [3]float64{x, y, z})
		case "triangles":
			if len(fields)-1 != utils.Triangle.GetNumNodes() {
				return nil, fmt.Errorf("embedded: surface file only accepts %s elements (%d nodes), got %q",
					utils.Triangle, utils.Triangle.GetNumNodes(), line)
			}
			n1, err1 := strconv.Atoi(fields[1])
			n2, err2 := strconv.Atoi(fields[2])
			n3, err3 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("embedded: malformed triangle connectivity %q", line)
			}
			surf.Triangles = append(surf.Triangles, [3]int{n1 - 1, n2 - 1, n3 - 1})
		default:
			return nil, fmt.Errorf("embedded: data line %q outside Nodes/Triangles section", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(surf.Nodes) == 0 || len(surf.Triangles) == 0 {
		return nil, fmt.Errorf("embedded: surface file has no nodes or triangles")
	}
	for _, tri := range surf.Triangles {
		for _, nIdx := range tri {
			if nIdx < 0 || nIdx >= len(surf.Nodes) {
				return nil, fmt.Errorf("embedded: triangle refers to unknown node %d", nIdx+1)
			}
		}
	}
	surf.Velocity = make([][3]float64, len(surf.Nodes))
	return surf, nil
}

// Intersector finds the intersection of a ray with a Surface.
// NaiveIntersector is its only implementation; ComputeForces does not use
// an Intersector.
type Intersector interface {
	Intersect(origin, direction [3]float64) (point [3]float64, triangle int, hit bool)
}

// NaiveIntersector is a brute-force triangle-by-triangle ray intersector,
// adequate for the seed tests' small surfaces; a production build would
// wrap an AABB tree, but §1 scopes acceleration structures as a Non-goal.
type NaiveIntersector struct {
	Surf *Surface
}

func (ni *NaiveIntersector) Intersect(origin, direction [3]float64) (point [3]float64, triangle int, hit bool) {
	best := -1
	bestT := 0.0
	for ti, tri := range ni.Surf.Triangles {
		p0, p1, p2 := ni.Surf.Nodes[tri[0]], ni.Surf.Nodes[tri[1]], ni.Surf.Nodes[tri[2]]
		tParam, ok := rayTriangle(origin, direction, p0, p1, p2)
		if ok && (best == -1 || tParam < bestT) {
			best, bestT = ti, tParam
		}
	}
	if best == -1 {
		return [3]float64{}, -1, false
	}
	return add(origin, scale(direction, bestT)), best, true
}

func rayTriangle(origin, dir, v0, v1, v2 [3]float64) (t float64, hit bool) {
	const eps = 1e-10
	e1 := sub(v1, v0)
	e2 := sub(v2, v0)
	h := cross(dir, e2)
	a := dot(e1, h)
	if a > -eps && a < eps {
		return 0, false
	}
	f := 1.0 / a
	s := sub(origin, v0)
	u := f * dot(s, h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := cross(s, e1)
	v := f * dot(dir, q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = f * dot(e2, q)
	return t, t > eps
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// FindSolidBodies groups triangles into closed solid bodies by connected
// component, matching EmbeddedBoundaryOperator::FindSolidBodies (which
// returns an id-to-closure-range multimap; here represented as a slice of
// triangle-index sets, one per body).
func FindSolidBodies(surf *Surface) [][]int {
	n := len(surf.Triangles)
	visited := make([]bool, n)
	adjacency := buildEdgeAdjacency(surf)

	var bodies [][]int
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var body []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			body = append(body, cur)
			for _, nb := range adjacency[cur] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		bodies = append(bodies, body)
	}
	return bodies
}

func buildEdgeAdjacency(surf *Surface) map[int][]int {
	type edge struct{ a, b int }
	normalize := func(a, b int) edge {
		if a > b {
			a, b = b, a
		}
		return edge{a, b}
	}
	edgeOwner := make(map[edge][]int)
	for ti, tri := range surf.Triangles {
		edges := []edge{
			normalize(tri[0], tri[1]),
			normalize(tri[1], tri[2]),
			normalize(tri[2], tri[0]),
		}
		for _, e := range edges {
			edgeOwner[e] = append(edgeOwner[e], ti)
		}
	}
	adjacency := make(map[int][]int)
	for _, owners := range edgeOwner {
		for _, a := range owners {
			for _, b := range owners {
				if a != b {
					adjacency[a] = append(adjacency[a], b)
				}
			}
		}
	}
	return adjacency
}

// coveringCell is a convenience wrapper delegating cell lookup to mesh.
// Nothing in this package calls it; ComputeForces locates cells through
// its SidedSampler.
func coveringCell(g *mesh.GlobalGeometry, p [3]float64) (i, j, k int, ok bool) {
	return g.FindCellCoveringPoint(p)
}
