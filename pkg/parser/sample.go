package parser

import (
	"fmt"
	"math/rand"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
)

// SampleParams describes a planted-partition graph: Groups clusters of GroupSize
// nodes, dense inside and sparse between.
type SampleParams struct {
	Groups    int     `validate:"gte=1"`
	GroupSize int     `validate:"gte=2"`
	PIn       float64 `validate:"gte=0,lte=1"`
	POut      float64 `validate:"gte=0,lte=1"`
	MaxWeight int     `validate:"gte=1"`
	Seed      int64
}

// DefaultSampleParams returns a small graph with clear cluster structure.
func DefaultSampleParams() SampleParams {
	return SampleParams{Groups: 3, GroupSize: 8, PIn: 0.6, POut: 0.05, MaxWeight: 1, Seed: 1}
}

// GenerateSample builds a planted-partition edge list. Node names are
// "g<group>n<index>" so the planted grouping can be read back from the ids.
// Each group is chained so it stays connected whatever PIn is.
func GenerateSample(p SampleParams) []graph.Edge {
	rng := rand.New(rand.NewSource(p.Seed))
	name := func(group, idx int) string { return fmt.Sprintf("g%dn%d", group, idx) }
	weight := func() float64 {
		if p.MaxWeight <= 1 {
			return 1
		}
		return float64(1 + rng.Intn(p.MaxWeight))
	}

	var edges []graph.Edge
	n := p.Groups * p.GroupSize
	for i := 0; i < n; i++ {
		gi, ii := i/p.GroupSize, i%p.GroupSize
		for j := i + 1; j < n; j++ {
			gj, jj := j/p.GroupSize, j%p.GroupSize

			prob := p.POut
			if gi == gj {
				prob = p.PIn
				if jj == ii+1 {
					prob = 1
				}
			}
			if rng.Float64() < prob {
				edges = append(edges, graph.Edge{From: name(gi, ii), To: name(gj, jj), Weight: weight()})
			}
		}
	}
	return edges
}
