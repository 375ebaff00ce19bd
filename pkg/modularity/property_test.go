package modularity

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestMergeInvariants checks the bookkeeping invariants of every merge on random
// weighted graphs, in both modes.
func TestMergeInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("tracked Q matches recomputed Q after every merge", prop.ForAll(
		func(seed int64, n int, retain bool) bool {
			g, err := randomGraph(seed, n)
			if err != nil {
				return false
			}
			s := NewStore(g)
			x := NewGainIndex(s, retain)
			q := s.Modularity()

			for {
				pair, err := x.BestPair()
				if errors.Is(err, ErrNoCandidate) {
					return true
				}
				if err != nil {
					return false
				}
				live := s.Len()
				affected, err := s.Merge(pair.I, pair.J)
				if err != nil {
					return false
				}
				x.Repair(pair.I, pair.J, affected, s)
				q += pair.DeltaQ

				if s.Len() != live-1 {
					return false
				}
				if math.Abs(q-s.Modularity()) > 1e-9 {
					return false
				}
				if math.Abs(s.DegreeSum()-1) > 1e-9 {
					return false
				}
				if math.Abs(q-modularityFromGraph(g, s.Snapshot())) > 1e-9 {
					return false
				}
			}
		},
		gen.Int64(),
		gen.IntRange(2, 24),
		gen.Bool(),
	))

	properties.Property("stored gains match recomputation", prop.ForAll(
		func(seed int64, n int) bool {
			g, err := randomGraph(seed, n)
			if err != nil {
				return false
			}
			s := NewStore(g)
			x := NewGainIndex(s, true)

			for {
				for _, p := range x.Pairs() {
					if p.I >= p.J || !s.IsActive(p.I) || !s.IsActive(p.J) {
						return false
					}
					if math.Abs(p.DeltaQ-s.DeltaQ(p.I, p.J)) > 1e-9 {
						return false
					}
				}
				pair, err := x.BestPair()
				if err != nil {
					return errors.Is(err, ErrNoCandidate)
				}
				for _, p := range x.Pairs() {
					if p.DeltaQ > pair.DeltaQ {
						return false
					}
				}
				affected, err := s.Merge(pair.I, pair.J)
				if err != nil {
					return false
				}
				x.Repair(pair.I, pair.J, affected, s)
			}
		},
		gen.Int64(),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}

// TestClusterProperties checks run-level guarantees of the engine.
func TestClusterProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("best partition covers every node exactly once", prop.ForAll(
		func(seed int64, n int, stop bool) bool {
			g, err := randomGraph(seed, n)
			if err != nil {
				return false
			}
			res, err := Cluster(g, quietOptions(stop))
			if err != nil {
				return false
			}
			seen := make(map[string]int)
			for _, m := range res.BestPartition.Members() {
				seen[m]++
			}
			if len(seen) != g.NumNodes() {
				return false
			}
			for _, count := range seen {
				if count != 1 {
					return false
				}
			}
			return math.Abs(res.BestQ-modularityFromGraph(g, res.BestPartition)) < 1e-9
		},
		gen.Int64(),
		gen.IntRange(2, 24),
		gen.Bool(),
	))

	properties.Property("greedy climbs monotonically and exhaustive never does worse", prop.ForAll(
		func(seed int64, n int) bool {
			g, err := randomGraph(seed, n)
			if err != nil {
				return false
			}
			greedy, err := Cluster(g, quietOptions(true))
			if err != nil {
				return false
			}
			exhaustive, err := Cluster(g, quietOptions(false))
			if err != nil {
				return false
			}

			prev := greedy.InitialQ
			for _, q := range greedy.QHistory {
				if q < prev-1e-12 {
					return false
				}
				prev = q
			}
			if math.Abs(greedy.BestQ-greedy.FinalQ) > 1e-9 {
				return false
			}
			return exhaustive.BestQ >= greedy.BestQ-1e-9
		},
		gen.Int64(),
		gen.IntRange(2, 24),
	))

	properties.TestingRun(t)
}
