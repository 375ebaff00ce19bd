package modularity

// Pair is a candidate merge with its modularity gain. I < J always.
type Pair struct {
	I      int
	J      int
	DeltaQ float64
}

// better reports whether p should be merged before q: larger gain first, then the
// lexicographically smallest (I, J).
func (p Pair) better(q Pair) bool {
	if p.DeltaQ != q.DeltaQ {
		return p.DeltaQ > q.DeltaQ
	}
	if p.I != q.I {
		return p.I < q.I
	}
	return p.J < q.J
}

// GainIndex is a sparse table of modularity gains between adjacent communities,
// keyed canonically by (smaller id, larger id).
//
// By default only strictly positive gains are kept. An index built with
// retainNonPositive keeps every adjacent pair, which lets the engine walk the whole
// dendrogram through negative merges.
type GainIndex struct {
	rows              map[int]map[int]float64
	rowBest           map[int]Pair
	dirty             map[int]struct{}
	size              int
	retainNonPositive bool
}

// NewGainIndex computes the gain of every adjacent pair in s.
func NewGainIndex(s *Store, retainNonPositive bool) *GainIndex {
	x := &GainIndex{
		rows:              make(map[int]map[int]float64),
		rowBest:           make(map[int]Pair),
		dirty:             make(map[int]struct{}),
		retainNonPositive: retainNonPositive,
	}

	for _, i := range s.IDs() {
		if !s.IsActive(i) {
			continue
		}
		c, _ := s.Get(i)
		for _, j := range c.NeighborIDs() {
			if i < j {
				x.upsert(i, j, s.DeltaQ(i, j))
			}
		}
	}

	return x
}

// Len returns the number of stored pairs.
func (x *GainIndex) Len() int { return x.size }

// Get returns the stored gain for the pair, in either order.
func (x *GainIndex) Get(i, j int) (float64, bool) {
	i, j = canonical(i, j)
	row, ok := x.rows[i]
	if !ok {
		return 0, false
	}
	dq, ok := row[j]
	return dq, ok
}

// Pairs returns every stored pair, unordered.
func (x *GainIndex) Pairs() []Pair {
	out := make([]Pair, 0, x.size)
	for i, row := range x.rows {
		for j, dq := range row {
			out = append(out, Pair{I: i, J: j, DeltaQ: dq})
		}
	}
	return out
}

// BestPair returns the pair with the largest gain. Exactly equal gains are broken
// by the lexicographically smallest (I, J). It returns ErrNoCandidate when the index
// is empty.
func (x *GainIndex) BestPair() (Pair, error) {
	for i := range x.dirty {
		x.refreshRow(i)
	}
	clear(x.dirty)

	var best Pair
	found := false
	for _, p := range x.rowBest {
		if !found || p.better(best) {
			best = p
			found = true
		}
	}
	if !found {
		return Pair{}, ErrNoCandidate
	}
	return best, nil
}

// Repair updates the index after source was merged into target. affected must be
// the ids returned by Store.Merge. Every pair keyed on source is dropped and every
// pair between target and an affected community is recomputed from s.
func (x *GainIndex) Repair(target, source int, affected []int, s *Store) {
	x.remove(target, source)
	for _, k := range affected {
		x.remove(k, source)
	}
	if row, ok := x.rows[source]; ok {
		x.size -= len(row)
		delete(x.rows, source)
		delete(x.rowBest, source)
		delete(x.dirty, source)
	}

	if !s.IsActive(target) {
		if row, ok := x.rows[target]; ok {
			x.size -= len(row)
			delete(x.rows, target)
			delete(x.rowBest, target)
			delete(x.dirty, target)
		}
		return
	}

	for _, k := range affected {
		x.upsert(k, target, s.DeltaQ(k, target))
	}
}

func (x *GainIndex) admits(dq float64) bool {
	return dq > 0 || x.retainNonPositive
}

func (x *GainIndex) upsert(i, j int, dq float64) {
	if !x.admits(dq) {
		x.remove(i, j)
		return
	}
	i, j = canonical(i, j)
	row, ok := x.rows[i]
	if !ok {
		row = make(map[int]float64)
		x.rows[i] = row
	}
	if _, exists := row[j]; !exists {
		x.size++
	}
	row[j] = dq
	x.dirty[i] = struct{}{}
}

func (x *GainIndex) remove(i, j int) {
	i, j = canonical(i, j)
	row, ok := x.rows[i]
	if !ok {
		return
	}
	if _, exists := row[j]; !exists {
		return
	}
	delete(row, j)
	x.size--
	x.dirty[i] = struct{}{}
}

// refreshRow recomputes the cached best entry of row i.
func (x *GainIndex) refreshRow(i int) {
	row := x.rows[i]
	if len(row) == 0 {
		delete(x.rows, i)
		delete(x.rowBest, i)
		return
	}

	var best Pair
	found := false
	for j, dq := range row {
		p := Pair{I: i, J: j, DeltaQ: dq}
		if !found || p.better(best) {
			best = p
			found = true
		}
	}
	x.rowBest[i] = best
}

func canonical(i, j int) (int, int) {
	if i > j {
		return j, i
	}
	return i, j
}
