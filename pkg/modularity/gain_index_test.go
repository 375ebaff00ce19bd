package modularity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGainIndex_InitialPositiveOnly(t *testing.T) {
	s := NewStore(bridgedTrianglesGraph(t))
	x := NewGainIndex(s, false)

	// Every adjacent singleton pair has a positive gain here: 1/7 - k_i*k_j/98.
	assert.Equal(t, 7, x.Len())
	dq, ok := x.Get(1, 0)
	require.True(t, ok)
	assert.InDelta(t, 10.0/98.0, dq, tolerance)

	dq, ok = x.Get(2, 3)
	require.True(t, ok)
	assert.InDelta(t, 5.0/98.0, dq, tolerance)

	_, ok = x.Get(0, 5)
	assert.False(t, ok, "non-adjacent pairs are never stored")
}

func TestGainIndex_TieBreakSmallestPair(t *testing.T) {
	s := NewStore(twoEdgesGraph(t))
	x := NewGainIndex(s, false)
	require.Equal(t, 2, x.Len())

	a, _ := x.Get(0, 1)
	b, _ := x.Get(2, 3)
	require.Equal(t, a, b, "both edges must tie exactly")

	for i := 0; i < 20; i++ {
		best, err := x.BestPair()
		require.NoError(t, err)
		assert.Equal(t, Pair{I: 0, J: 1, DeltaQ: 0.375}, best)
	}
}

func TestGainIndex_EmptyIsNoCandidate(t *testing.T) {
	s := NewStore(triangleGraph(t))
	x := NewGainIndex(s, false)

	for {
		pair, err := x.BestPair()
		if err != nil {
			assert.True(t, errors.Is(err, ErrNoCandidate))
			break
		}
		affected, err := s.Merge(pair.I, pair.J)
		require.NoError(t, err)
		x.Repair(pair.I, pair.J, affected, s)
	}
	assert.Zero(t, x.Len())
	assert.Equal(t, 1, s.Len())
}

func TestGainIndex_RepairDropsSourceAndRecomputesTarget(t *testing.T) {
	s := NewStore(bridgedTrianglesGraph(t))
	x := NewGainIndex(s, false)

	affected, err := s.Merge(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, affected)
	x.Repair(0, 1, affected, s)

	_, ok := x.Get(0, 1)
	assert.False(t, ok)
	_, ok = x.Get(1, 2)
	assert.False(t, ok)

	dq, ok := x.Get(0, 2)
	require.True(t, ok)
	assert.InDelta(t, 16.0/98.0, dq, tolerance)
	assert.InDelta(t, s.DeltaQ(0, 2), dq, tolerance)

	best, err := x.BestPair()
	require.NoError(t, err)
	assert.Equal(t, 0, best.I)
	assert.Equal(t, 2, best.J)
}

func TestGainIndex_NegativePairs(t *testing.T) {
	for _, retain := range []bool{false, true} {
		s := NewStore(bridgedTrianglesGraph(t))
		x := NewGainIndex(s, retain)

		// Collapse both triangles by hand.
		for _, m := range [][2]int{{0, 1}, {0, 2}, {4, 5}, {3, 4}} {
			affected, err := s.Merge(m[0], m[1])
			require.NoError(t, err)
			x.Repair(m[0], m[1], affected, s)
		}
		require.Equal(t, 2, s.Len())

		dq := s.DeltaQ(0, 3)
		assert.InDelta(t, 1.0/7.0-0.5, dq, tolerance)

		stored, ok := x.Get(0, 3)
		if retain {
			require.True(t, ok)
			assert.InDelta(t, dq, stored, tolerance)
			best, err := x.BestPair()
			require.NoError(t, err)
			assert.Less(t, best.DeltaQ, 0.0)
		} else {
			assert.False(t, ok)
			_, err := x.BestPair()
			assert.ErrorIs(t, err, ErrNoCandidate)
		}
	}
}

// assertIndexMatchesStore checks that every stored gain equals a fresh
// computation and that no admissible adjacent pair is missing.
func assertIndexMatchesStore(t *testing.T, x *GainIndex, s *Store, retain bool) {
	t.Helper()
	for _, p := range x.Pairs() {
		require.Less(t, p.I, p.J)
		require.True(t, s.IsActive(p.I) && s.IsActive(p.J), "pair %v references inactive community", p)
		assert.InDelta(t, s.DeltaQ(p.I, p.J), p.DeltaQ, tolerance)
	}

	for _, i := range s.IDs() {
		c, _ := s.Get(i)
		for _, j := range c.NeighborIDs() {
			if i >= j {
				continue
			}
			dq := s.DeltaQ(i, j)
			_, ok := x.Get(i, j)
			if dq > tolerance || retain {
				assert.True(t, ok, "pair (%d,%d) with gain %g missing", i, j, dq)
			}
			if !retain && dq < -tolerance {
				assert.False(t, ok, "pair (%d,%d) with gain %g should be pruned", i, j, dq)
			}
		}
	}
}

func TestGainIndex_IncrementalMatchesRecompute(t *testing.T) {
	for _, retain := range []bool{false, true} {
		s := NewStore(karateGraph(t))
		x := NewGainIndex(s, retain)
		assertIndexMatchesStore(t, x, s, retain)

		for {
			pair, err := x.BestPair()
			if errors.Is(err, ErrNoCandidate) {
				break
			}
			require.NoError(t, err)
			affected, err := s.Merge(pair.I, pair.J)
			require.NoError(t, err)
			x.Repair(pair.I, pair.J, affected, s)
			assertIndexMatchesStore(t, x, s, retain)
		}
	}
}
