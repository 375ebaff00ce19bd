// Package graph holds the immutable weighted network the clustering engine works on.
//
// Edges are always stored in both directions. After loading, every weight is divided
// by the total weight of the network so that downstream quantities are fractions of
// the whole.
package graph

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record is one raw input row, as produced by the edge file reader.
type Record struct {
	Line   int
	Fields []string
}

// Edge is a weighted connection between two nodes.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Neighbor is an adjacent node seen from a given node.
type Neighbor struct {
	Index      int
	Raw        float64 // weight as loaded
	Normalized float64 // weight divided by TotalWeight
}

type edgeWeight struct {
	raw  float64
	norm float64
}

// WeightedGraph is a symmetric weighted graph with string node identifiers.
// Node indices follow first appearance in the input and never change.
type WeightedGraph struct {
	nodes       []string
	index       map[string]int
	weights     []map[int]edgeWeight
	neighbors   [][]Neighbor
	totalWeight float64
	numEdges    int
}

// Load parses raw records and builds the graph. Any record that is not exactly
// three fields with a finite non-negative weight aborts the load.
func Load(records []Record) (*WeightedGraph, error) {
	edges := make([]Edge, 0, len(records))
	for i, rec := range records {
		line := rec.Line
		if line == 0 {
			line = i + 1
		}
		edge, err := parseRecord(line, rec.Fields)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return build(edges, func(i int) int {
		if records[i].Line > 0 {
			return records[i].Line
		}
		return i + 1
	})
}

// LoadEdges builds the graph from already typed edges.
func LoadEdges(edges []Edge) (*WeightedGraph, error) {
	return build(edges, func(i int) int { return i + 1 })
}

func parseRecord(line int, fields []string) (Edge, error) {
	if len(fields) != 3 {
		return Edge{}, &MalformedEdgeError{
			Line:   line,
			Fields: fields,
			Reason: fmt.Sprintf("expected 3 fields, got %d", len(fields)),
		}
	}

	weight, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return Edge{}, &MalformedEdgeError{
			Line:   line,
			Fields: fields,
			Reason: fmt.Sprintf("weight %q is not a number", fields[2]),
		}
	}

	return Edge{From: fields[0], To: fields[1], Weight: weight}, nil
}

func validateEdge(line int, e Edge) error {
	fields := []string{e.From, e.To, strconv.FormatFloat(e.Weight, 'g', -1, 64)}
	switch {
	case e.From == "" || e.To == "":
		return &MalformedEdgeError{Line: line, Fields: fields, Reason: "empty node identifier"}
	case math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
		return &MalformedEdgeError{Line: line, Fields: fields, Reason: "weight is not finite"}
	case e.Weight < 0:
		return &MalformedEdgeError{Line: line, Fields: fields, Reason: "weight is negative"}
	}
	return nil
}

func build(edges []Edge, lineOf func(int) int) (*WeightedGraph, error) {
	g := &WeightedGraph{index: make(map[string]int)}

	for i, e := range edges {
		if err := validateEdge(lineOf(i), e); err != nil {
			return nil, err
		}
		from := g.addNode(e.From)
		to := g.addNode(e.To)

		// Later records for the same pair overwrite earlier ones, in both directions.
		g.weights[from][to] = edgeWeight{raw: e.Weight}
		g.weights[to][from] = edgeWeight{raw: e.Weight}
	}

	// Half the sum over ordered distinct pairs is the sum over unordered pairs.
	total := 0.0
	for i := range g.weights {
		for j, w := range g.weights[i] {
			if i < j {
				total += w.raw
				if w.raw > 0 {
					g.numEdges++
				}
			}
		}
	}
	if total <= 0 {
		return nil, &DegenerateGraphError{NumNodes: len(g.nodes), NumEdges: len(edges)}
	}
	g.totalWeight = total

	g.neighbors = make([][]Neighbor, len(g.nodes))
	for i := range g.weights {
		for j, w := range g.weights[i] {
			w.norm = w.raw / total
			g.weights[i][j] = w
			g.neighbors[i] = append(g.neighbors[i], Neighbor{Index: j, Raw: w.raw, Normalized: w.norm})
		}
		sort.Slice(g.neighbors[i], func(a, b int) bool {
			return g.neighbors[i][a].Index < g.neighbors[i][b].Index
		})
	}

	return g, nil
}

func (g *WeightedGraph) addNode(id string) int {
	if idx, ok := g.index[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.index[id] = idx
	g.nodes = append(g.nodes, id)
	g.weights = append(g.weights, make(map[int]edgeWeight))
	return idx
}

// NumNodes returns the number of distinct nodes.
func (g *WeightedGraph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of distinct non-self pairs with positive weight.
func (g *WeightedGraph) NumEdges() int { return g.numEdges }

// TotalWeight returns the normalization constant: the summed weight of all
// distinct node pairs, self-loops excluded.
func (g *WeightedGraph) TotalWeight() float64 { return g.totalWeight }

// Nodes returns node identifiers in index order.
func (g *WeightedGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns the identifier at index i.
func (g *WeightedGraph) Node(i int) string { return g.nodes[i] }

// Index returns the index of a node identifier.
func (g *WeightedGraph) Index(id string) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// HasNode reports whether the node was loaded.
func (g *WeightedGraph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Weight returns the normalized weight between two nodes, 0 when there is no edge.
func (g *WeightedGraph) Weight(from, to string) float64 {
	i, ok1 := g.index[from]
	j, ok2 := g.index[to]
	if !ok1 || !ok2 {
		return 0
	}
	return g.WeightAt(i, j)
}

// WeightAt is Weight addressed by node index.
func (g *WeightedGraph) WeightAt(i, j int) float64 {
	if i < 0 || i >= len(g.weights) {
		return 0
	}
	return g.weights[i][j].norm
}

// RawWeight returns the weight exactly as loaded, 0 when there is no edge.
func (g *WeightedGraph) RawWeight(from, to string) float64 {
	i, ok1 := g.index[from]
	j, ok2 := g.index[to]
	if !ok1 || !ok2 {
		return 0
	}
	return g.weights[i][j].raw
}

// Neighbors returns the adjacency of node i sorted by neighbor index.
// Self-loops are included; callers that need distinct pairs must skip them.
func (g *WeightedGraph) Neighbors(i int) []Neighbor {
	if i < 0 || i >= len(g.neighbors) {
		return nil
	}
	return g.neighbors[i]
}

// ForEachEdge calls fn once per unordered pair of distinct nodes with positive weight,
// with i < j.
func (g *WeightedGraph) ForEachEdge(fn func(i, j int, raw float64)) {
	for i, nbrs := range g.neighbors {
		for _, n := range nbrs {
			if n.Index > i && n.Raw > 0 {
				fn(i, n.Index, n.Raw)
			}
		}
	}
}
