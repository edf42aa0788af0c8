package embedded

import "github.com/notargets/m2c-go/utils"

// NodeForceScatter assembles a sparse (numNodes x 3) matrix holding each
// node's force (row = node, column = force component), distributing each
// triangle's integrated traction equally to its three corner nodes.
// Built on utils.DOK/CSR (gocfd/utils/sparse.go), reused here as the
// scatter-matrix backing store instead of a dense per-node accumulator,
// since a production-size surface has far more triangles than a dense
// assembly would justify.
func NodeForceScatter(surf *Surface, rule GaussRule, sampler *LoftingSampler) (*utils.CSR, [3][]float64) {
	numNodes := len(surf.Nodes)
	dok := utils.NewDOK(numNodes, 3)

	perNodeForce := [3][]float64{
		make([]float64, numNodes),
		make([]float64, numNodes),
		make([]float64, numNodes),
	}

	for _, tri := range surf.Triangles {
		p0, p1, p2 := surf.Nodes[tri[0]], surf.Nodes[tri[1]], surf.Nodes[tri[2]]
		normal, area := triangleNormalArea(p0, p1, p2)

		var triForce [3]float64
		for qi, bary := range rule.Barycentric {
			p := baryPoint(bary, p0, p1, p2)
			v, ok, _ := sampler.SampleWithLofting(p, normal, +1)
			if !ok {
				continue
			}
			w := rule.Weights[qi] * area
			traction := scale(normal, -v.Pressure()*w)
			triForce = add(triForce, traction)
		}

		share := scale(triForce, 1.0/3.0)
		for _, nodeIdx := range tri {
			for c := 0; c < 3; c++ {
				perNodeForce[c][nodeIdx] += share[c]
			}
		}
	}

	for nodeIdx := 0; nodeIdx < numNodes; nodeIdx++ {
		for c := 0; c < 3; c++ {
			if perNodeForce[c][nodeIdx] != 0 {
				dok.M.Set(nodeIdx, c, perNodeForce[c][nodeIdx])
			}
		}
	}

	csr := dok.ToCSR()
	return &csr, perNodeForce
}
