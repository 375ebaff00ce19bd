// Package modularity implements greedy agglomerative modularity maximization
// (Newman, Phys. Rev. E 69, 066133).
//
// A Store holds one Community per id, a GainIndex keeps the modularity gain of
// joining adjacent communities, and an Engine repeatedly merges the best pair
// while tracking the best partition seen.
package modularity

import (
	"sort"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
)

// Community is one group of nodes at some point of the agglomeration.
//
// All weights are fractions of the network's total weight. Neighbor weights are
// mirrored: if A holds x for B then B holds x for A.
type Community struct {
	ID             int
	Members        []string        // original node ids, in merge order
	InternalWeight float64         // e_ii
	DegreeFraction float64         // a_i
	neighbors      map[int]float64 // e_ij for j != i, nonzero entries only
}

// NeighborWeight returns e_ij for the given community, 0 when they share nothing.
func (c *Community) NeighborWeight(other int) float64 {
	return c.neighbors[other]
}

// NumNeighbors returns how many communities share weight with this one.
func (c *Community) NumNeighbors() int {
	return len(c.neighbors)
}

// NeighborIDs returns adjacent community ids in ascending order.
func (c *Community) NeighborIDs() []int {
	ids := make([]int, 0, len(c.neighbors))
	for id := range c.neighbors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Store maps live community ids to their records. Ids are dense indices into an
// arena; a merged-away id leaves a nil slot and is never reused.
type Store struct {
	communities []*Community
	active      []bool
	live        int
	activeCount int
}

// NewStore creates one singleton community per node of g, in node index order,
// and accumulates half of every normalized edge weight into both neighbor weight
// and degree fraction. Self-loops are skipped.
func NewStore(g *graph.WeightedGraph) *Store {
	n := g.NumNodes()
	s := &Store{
		communities: make([]*Community, n),
		active:      make([]bool, n),
		live:        n,
	}

	for i := 0; i < n; i++ {
		s.communities[i] = &Community{
			ID:        i,
			Members:   []string{g.Node(i)},
			neighbors: make(map[int]float64),
		}
	}

	for i := 0; i < n; i++ {
		c := s.communities[i]
		for _, nb := range g.Neighbors(i) {
			if nb.Index == i || nb.Normalized == 0 {
				continue
			}
			half := 0.5 * nb.Normalized
			c.neighbors[nb.Index] += half
			c.DegreeFraction += half
		}
	}

	// Only communities with at least one neighbor can ever be compared.
	for i, c := range s.communities {
		if len(c.neighbors) > 0 {
			s.active[i] = true
			s.activeCount++
		}
	}

	return s
}

// Len returns the number of live communities.
func (s *Store) Len() int { return s.live }

// ActiveLen returns the number of communities still eligible for merging.
func (s *Store) ActiveLen() int { return s.activeCount }

// Get returns the live community with the given id.
func (s *Store) Get(id int) (*Community, bool) {
	if id < 0 || id >= len(s.communities) || s.communities[id] == nil {
		return nil, false
	}
	return s.communities[id], true
}

// IsActive reports whether id is live and still has neighbors.
func (s *Store) IsActive(id int) bool {
	return id >= 0 && id < len(s.active) && s.active[id]
}

// IDs returns live community ids in ascending order.
func (s *Store) IDs() []int {
	ids := make([]int, 0, s.live)
	for id, c := range s.communities {
		if c != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeltaQ computes the modularity change of joining i and j from the current state:
// e_ij + e_ji - 2*a_i*a_j.
func (s *Store) DeltaQ(i, j int) float64 {
	ci, ok1 := s.Get(i)
	cj, ok2 := s.Get(j)
	if !ok1 || !ok2 || i == j {
		return 0
	}
	return ci.neighbors[j] + cj.neighbors[i] - 2*ci.DegreeFraction*cj.DegreeFraction
}

// Modularity computes Q = sum over live communities of (e_ii - a_i^2).
func (s *Store) Modularity() float64 {
	q := 0.0
	for _, c := range s.communities {
		if c != nil {
			q += c.InternalWeight - c.DegreeFraction*c.DegreeFraction
		}
	}
	return q
}

// DegreeSum returns the sum of degree fractions over live communities. It is 1
// for any graph with edges.
func (s *Store) DegreeSum() float64 {
	sum := 0.0
	for _, c := range s.communities {
		if c != nil {
			sum += c.DegreeFraction
		}
	}
	return sum
}

// Merge folds source into target. target must be the smaller id and both must be
// active. It returns, in ascending order, the ids of the other communities whose
// relation to target changed; these are exactly target's neighbors after the merge.
func (s *Store) Merge(target, source int) ([]int, error) {
	if target >= source {
		return nil, &InvalidMergeError{Target: target, Source: source, Reason: "target id must be smaller than source id"}
	}
	t, ok := s.Get(target)
	if !ok {
		return nil, &InvalidMergeError{Target: target, Source: source, Reason: "target is not live"}
	}
	src, ok := s.Get(source)
	if !ok {
		return nil, &InvalidMergeError{Target: target, Source: source, Reason: "source is not live"}
	}
	if !s.active[target] || !s.active[source] {
		return nil, &InvalidMergeError{Target: target, Source: source, Reason: "community is not active"}
	}

	t.Members = append(t.Members, src.Members...)
	t.InternalWeight += src.InternalWeight + src.neighbors[target] + t.neighbors[source]
	t.DegreeFraction += src.DegreeFraction

	affected := make(map[int]struct{}, len(t.neighbors)+len(src.neighbors))
	for k := range t.neighbors {
		affected[k] = struct{}{}
	}
	for k := range src.neighbors {
		affected[k] = struct{}{}
	}
	delete(affected, target)
	delete(affected, source)

	ids := make([]int, 0, len(affected))
	for k := range affected {
		ids = append(ids, k)
	}
	sort.Ints(ids)

	for _, k := range ids {
		other := s.communities[k]
		if w, ok := src.neighbors[k]; ok {
			t.neighbors[k] += w
		}
		if w, ok := other.neighbors[source]; ok {
			other.neighbors[target] += w
			delete(other.neighbors, source)
		}
	}

	delete(t.neighbors, source)
	s.communities[source] = nil
	s.active[source] = false
	s.live--
	s.activeCount--

	if len(t.neighbors) == 0 {
		s.active[target] = false
		s.activeCount--
	}

	return ids, nil
}

// Snapshot captures the live partition. Member slices are shared with the store:
// merges only ever append past the captured length, so the snapshot stays valid.
func (s *Store) Snapshot() Partition {
	p := Partition{Communities: make([]CommunitySnapshot, 0, s.live)}
	for _, c := range s.communities {
		if c == nil {
			continue
		}
		p.Communities = append(p.Communities, CommunitySnapshot{
			ID:             c.ID,
			Members:        c.Members[:len(c.Members):len(c.Members)],
			InternalWeight: c.InternalWeight,
			DegreeFraction: c.DegreeFraction,
		})
	}
	return p
}
