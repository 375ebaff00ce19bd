// Package validation cross-checks clustering results independently of the
// engine's own bookkeeping.
package validation

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
)

// DefaultTolerance is the largest accepted gap between reported and recomputed Q.
const DefaultTolerance = 1e-9

// ValidationError is one problem found in a result.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}

// Report summarizes a verification run.
type Report struct {
	ReportedQ   float64 `json:"reported_q"`
	RecomputedQ float64 `json:"recomputed_q"`
	Difference  float64 `json:"difference"`
	Communities int     `json:"communities"`
	Nodes       int     `json:"nodes"`
}

// ToGonum converts g into a gonum weighted undirected graph whose node ids are
// the node indices of g. Self-loops and zero weights are left out, matching the
// modularity definition used by the engine.
func ToGonum(g *graph.WeightedGraph) *simple.WeightedUndirectedGraph {
	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < g.NumNodes(); i++ {
		ug.AddNode(simple.Node(int64(i)))
	}
	g.ForEachEdge(func(i, j int, raw float64) {
		ug.SetWeightedEdge(ug.NewWeightedEdge(simple.Node(int64(i)), simple.Node(int64(j)), raw))
	})
	return ug
}

// CheckPartition verifies that p assigns every node of g to exactly one
// community and names no unknown nodes.
func CheckPartition(g *graph.WeightedGraph, p modularity.Partition) error {
	var errs ValidationErrors
	seen := make(map[string]int, g.NumNodes())

	for _, c := range p.Communities {
		if len(c.Members) == 0 {
			errs = append(errs, ValidationError{
				Field:   "communities",
				Message: "community has no members",
				Value:   fmt.Sprint(c.ID),
			})
		}
		for _, m := range c.Members {
			if !g.HasNode(m) {
				errs = append(errs, ValidationError{Field: "members", Message: "unknown node", Value: m})
				continue
			}
			if prev, dup := seen[m]; dup {
				errs = append(errs, ValidationError{
					Field:   "members",
					Message: fmt.Sprintf("node assigned to communities %d and %d", prev, c.ID),
					Value:   m,
				})
				continue
			}
			seen[m] = c.ID
		}
	}

	var missing []string
	for _, node := range g.Nodes() {
		if _, ok := seen[node]; !ok {
			missing = append(missing, node)
		}
	}
	sort.Strings(missing)
	for _, node := range missing {
		errs = append(errs, ValidationError{Field: "members", Message: "node not assigned", Value: node})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Modularity computes Q of p over g with gonum.
func Modularity(g *graph.WeightedGraph, p modularity.Partition) (float64, error) {
	if err := CheckPartition(g, p); err != nil {
		return 0, err
	}

	communities := make([][]gonumgraph.Node, 0, p.Len())
	for _, c := range p.Communities {
		nodes := make([]gonumgraph.Node, 0, len(c.Members))
		for _, m := range c.Members {
			idx, _ := g.Index(m)
			nodes = append(nodes, simple.Node(int64(idx)))
		}
		communities = append(communities, nodes)
	}
	return community.Q(ToGonum(g), communities, 1), nil
}

// VerifyResult checks that p is a true partition of g and that its modularity
// matches reportedQ within tolerance. tolerance <= 0 uses DefaultTolerance.
func VerifyResult(g *graph.WeightedGraph, p modularity.Partition, reportedQ, tolerance float64) (*Report, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	q, err := Modularity(g, p)
	if err != nil {
		return nil, fmt.Errorf("partition check failed: %w", err)
	}

	report := &Report{
		ReportedQ:   reportedQ,
		RecomputedQ: q,
		Difference:  math.Abs(q - reportedQ),
		Communities: p.Len(),
		Nodes:       p.NumMembers(),
	}
	if report.Difference > tolerance {
		return report, ValidationErrors{{
			Field:   "modularity",
			Message: fmt.Sprintf("reported %.12f, recomputed %.12f", reportedQ, q),
			Value:   fmt.Sprintf("%g", report.Difference),
		}}
	}
	return report, nil
}

// ValidateOutputDirectory checks if the directory that will hold outputs under
// root exists or can be created, and is writable.
func ValidateOutputDirectory(root string) error {
	outputDir := filepath.Dir(root)

	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path exists but is not a directory: %s", outputDir)
	}

	testFile := filepath.Join(outputDir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	os.Remove(testFile)

	return nil
}
