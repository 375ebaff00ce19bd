package modularity

import (
	"errors"
	"fmt"
)

// ErrNoCandidate is returned by GainIndex.BestPair when no pair is left to merge.
// The engine treats it as a normal end of the run.
var ErrNoCandidate = errors.New("no candidate pair in gain index")

// InvalidMergeError signals a merge request that breaks the store's invariants.
// It indicates a defect in the caller and is never retried.
type InvalidMergeError struct {
	Target int
	Source int
	Reason string
}

func (e *InvalidMergeError) Error() string {
	return fmt.Sprintf("invalid merge of community %d into %d: %s", e.Source, e.Target, e.Reason)
}
