package modularity

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
)

const tolerance = 1e-9

func mustGraph(t *testing.T, edges ...graph.Edge) *graph.WeightedGraph {
	t.Helper()
	g, err := graph.LoadEdges(edges)
	require.NoError(t, err)
	return g
}

func triangleGraph(t *testing.T) *graph.WeightedGraph {
	return mustGraph(t,
		graph.Edge{From: "A", To: "B", Weight: 1},
		graph.Edge{From: "B", To: "C", Weight: 1},
		graph.Edge{From: "A", To: "C", Weight: 1},
	)
}

func twoEdgesGraph(t *testing.T) *graph.WeightedGraph {
	return mustGraph(t,
		graph.Edge{From: "A", To: "B", Weight: 5},
		graph.Edge{From: "C", To: "D", Weight: 5},
	)
}

// bridgedTrianglesGraph is two triangles {A,B,C} and {D,E,F} joined by C-D.
func bridgedTrianglesGraph(t *testing.T) *graph.WeightedGraph {
	return mustGraph(t,
		graph.Edge{From: "A", To: "B", Weight: 1},
		graph.Edge{From: "B", To: "C", Weight: 1},
		graph.Edge{From: "A", To: "C", Weight: 1},
		graph.Edge{From: "D", To: "E", Weight: 1},
		graph.Edge{From: "E", To: "F", Weight: 1},
		graph.Edge{From: "D", To: "F", Weight: 1},
		graph.Edge{From: "C", To: "D", Weight: 1},
	)
}

// karateGraph is Zachary's karate club network with unit weights.
func karateGraph(t *testing.T) *graph.WeightedGraph {
	adjacency := map[int][]int{
		1:  {2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13, 14, 18, 20, 22, 32},
		2:  {3, 4, 8, 14, 18, 20, 22, 31},
		3:  {4, 8, 9, 10, 14, 28, 29, 33},
		4:  {8, 13, 14},
		5:  {7, 11},
		6:  {7, 11, 17},
		7:  {17},
		9:  {31, 33, 34},
		10: {34},
		14: {34},
		15: {33, 34},
		16: {33, 34},
		19: {33, 34},
		20: {34},
		21: {33, 34},
		23: {33, 34},
		24: {26, 28, 30, 33, 34},
		25: {26, 28, 32},
		26: {32},
		27: {30, 34},
		28: {34},
		29: {32, 34},
		30: {33, 34},
		31: {33, 34},
		32: {33, 34},
		33: {34},
	}

	var edges []graph.Edge
	for from := 1; from <= 34; from++ {
		for _, to := range adjacency[from] {
			edges = append(edges, graph.Edge{
				From:   fmt.Sprintf("%d", from),
				To:     fmt.Sprintf("%d", to),
				Weight: 1,
			})
		}
	}
	return mustGraph(t, edges...)
}

// randomGraph builds a connected-ish graph with small integer weights so that
// exact gain ties are common.
func randomGraph(seed int64, n int) (*graph.WeightedGraph, error) {
	rng := rand.New(rand.NewSource(seed))
	edges := []graph.Edge{{From: "n0", To: "n1", Weight: float64(1 + rng.Intn(4))}}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < 0.35 {
				edges = append(edges, graph.Edge{
					From:   fmt.Sprintf("n%d", i),
					To:     fmt.Sprintf("n%d", j),
					Weight: float64(1 + rng.Intn(4)),
				})
			}
		}
	}
	return graph.LoadEdges(edges)
}

// modularityFromGraph computes Q of a partition straight from the graph's
// normalized weights, independently of the store's bookkeeping.
func modularityFromGraph(g *graph.WeightedGraph, p Partition) float64 {
	membership := p.Membership()
	internal := make(map[int]float64)
	degree := make(map[int]float64)

	for i := 0; i < g.NumNodes(); i++ {
		ci := membership[g.Node(i)]
		for _, nb := range g.Neighbors(i) {
			if nb.Index == i {
				continue
			}
			half := 0.5 * nb.Normalized
			degree[ci] += half
			if membership[g.Node(nb.Index)] == ci {
				internal[ci] += half
			}
		}
	}

	q := 0.0
	for _, c := range p.Communities {
		q += internal[c.ID] - degree[c.ID]*degree[c.ID]
	}
	return q
}

func quietOptions(stopAtNegative bool) Options {
	return Options{StopAtFirstNegativeDeltaQ: stopAtNegative, Logger: zerolog.Nop()}
}

type recordingObserver struct {
	events   []MergeEvent
	finished []Summary
}

func (r *recordingObserver) MergeApplied(ev MergeEvent) { r.events = append(r.events, ev) }
func (r *recordingObserver) Finished(s Summary)         { r.finished = append(r.finished, s) }
