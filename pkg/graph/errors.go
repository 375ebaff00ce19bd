package graph

import (
	"fmt"
	"strings"
)

// MalformedEdgeError reports an input record that is not a (node, node, weight) triple
// or whose weight is not a finite, non-negative real number.
type MalformedEdgeError struct {
	Line   int      // 1-based record position in the input, 0 if unknown
	Fields []string // the offending record as read
	Reason string
}

func (e *MalformedEdgeError) Error() string {
	row := strings.Join(e.Fields, ",")
	if e.Line > 0 {
		return fmt.Sprintf("malformed edge record at line %d (%q): %s", e.Line, row, e.Reason)
	}
	return fmt.Sprintf("malformed edge record (%q): %s", row, e.Reason)
}

// DegenerateGraphError is returned when the loaded edges carry no weight at all.
type DegenerateGraphError struct {
	NumNodes int
	NumEdges int
}

func (e *DegenerateGraphError) Error() string {
	return fmt.Sprintf("degenerate graph: total weight is zero (%d nodes, %d records)", e.NumNodes, e.NumEdges)
}
