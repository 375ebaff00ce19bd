package modularity

import "fmt"

// CommunitySnapshot is a read-only view of one community at snapshot time.
type CommunitySnapshot struct {
	ID             int      `json:"id" yaml:"id"`
	Members        []string `json:"members" yaml:"members"`
	InternalWeight float64  `json:"internal_weight" yaml:"internal_weight"`
	DegreeFraction float64  `json:"degree_fraction" yaml:"degree_fraction"`
}

// Size returns the number of members.
func (c CommunitySnapshot) Size() int { return len(c.Members) }

// Partition is a set of communities ordered by id. Its member slices may be shared
// with the store they came from and must not be modified.
type Partition struct {
	Communities []CommunitySnapshot `json:"communities"`
}

// Len returns the number of communities.
func (p Partition) Len() int { return len(p.Communities) }

// Modularity recomputes Q from the snapshot's own weights.
func (p Partition) Modularity() float64 {
	q := 0.0
	for _, c := range p.Communities {
		q += c.InternalWeight - c.DegreeFraction*c.DegreeFraction
	}
	return q
}

// NumMembers returns the total number of nodes across communities.
func (p Partition) NumMembers() int {
	n := 0
	for _, c := range p.Communities {
		n += len(c.Members)
	}
	return n
}

// Members returns every member, concatenated in community order. Positions in this
// slice are the order indices used by the tabular export.
func (p Partition) Members() []string {
	out := make([]string, 0, p.NumMembers())
	for _, c := range p.Communities {
		out = append(out, c.Members...)
	}
	return out
}

// Membership maps every member to its community id.
func (p Partition) Membership() map[string]int {
	m := make(map[string]int, p.NumMembers())
	for _, c := range p.Communities {
		for _, node := range c.Members {
			m[node] = c.ID
		}
	}
	return m
}

// CommunityOf returns the id of the community holding node.
func (p Partition) CommunityOf(node string) (int, bool) {
	for _, c := range p.Communities {
		for _, m := range c.Members {
			if m == node {
				return c.ID, true
			}
		}
	}
	return 0, false
}

// SameCommunity reports whether both nodes belong to one community.
func (p Partition) SameCommunity(a, b string) (bool, error) {
	ca, ok := p.CommunityOf(a)
	if !ok {
		return false, fmt.Errorf("node %q is not in the partition", a)
	}
	cb, ok := p.CommunityOf(b)
	if !ok {
		return false, fmt.Errorf("node %q is not in the partition", b)
	}
	return ca == cb, nil
}

// FilterMinSize returns a partition without the communities that have fewer than
// minSize members, and how many were dropped. minSize <= 1 keeps everything.
func (p Partition) FilterMinSize(minSize int) (Partition, int) {
	out := Partition{Communities: make([]CommunitySnapshot, 0, len(p.Communities))}
	removed := 0
	for _, c := range p.Communities {
		if len(c.Members) < minSize {
			removed++
			continue
		}
		out.Communities = append(out.Communities, c)
	}
	return out, removed
}
