package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
)

// MergeRecord is one line of the merge log.
type MergeRecord struct {
	RunID       string  `json:"run_id"`
	Pass        int     `json:"pass"`
	Target      int     `json:"target"`
	Source      int     `json:"source"`
	DeltaQ      float64 `json:"delta_q"`
	Modularity  float64 `json:"modularity"`
	Communities int     `json:"communities"`
	Improved    bool    `json:"improved"`
	Timestamp   int64   `json:"timestamp"`
}

// FinishRecord closes the merge log of a run.
type FinishRecord struct {
	RunID    string  `json:"run_id"`
	Event    string  `json:"event"`
	Reason   string  `json:"reason"`
	Passes   int     `json:"passes"`
	BestQ    float64 `json:"best_q"`
	BestPass int     `json:"best_pass"`
}

// MergeTracker writes every merge as a JSON line. A nil tracker ignores all
// calls, so callers can hold one unconditionally.
type MergeTracker struct {
	closer  io.Closer
	encoder *json.Encoder
	runID   string
	err     error
}

// NewMergeTracker creates filename and logs merges of run runID into it.
func NewMergeTracker(filename, runID string) (*MergeTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge log: %w", err)
	}
	t := NewMergeTrackerWriter(file, runID)
	t.closer = file
	return t, nil
}

// NewMergeTrackerWriter logs merges into w.
func NewMergeTrackerWriter(w io.Writer, runID string) *MergeTracker {
	return &MergeTracker{encoder: json.NewEncoder(w), runID: runID}
}

func (mt *MergeTracker) MergeApplied(ev modularity.MergeEvent) {
	if mt == nil {
		return
	}
	mt.encode(MergeRecord{
		RunID:       mt.runID,
		Pass:        ev.Pass,
		Target:      ev.Target,
		Source:      ev.Source,
		DeltaQ:      ev.DeltaQ,
		Modularity:  ev.Q,
		Communities: ev.LiveCommunities,
		Improved:    ev.Improved,
		Timestamp:   time.Now().Unix(),
	})
}

func (mt *MergeTracker) Finished(s modularity.Summary) {
	if mt == nil {
		return
	}
	mt.encode(FinishRecord{
		RunID:    mt.runID,
		Event:    "finished",
		Reason:   s.Reason.String(),
		Passes:   s.Passes,
		BestQ:    s.BestQ,
		BestPass: s.BestPass,
	})
}

// encode remembers the first write error and drops later records.
func (mt *MergeTracker) encode(v interface{}) {
	if mt.err != nil {
		return
	}
	mt.err = mt.encoder.Encode(v)
}

// Err returns the first write error, if any.
func (mt *MergeTracker) Err() error {
	if mt == nil {
		return nil
	}
	return mt.err
}

// Close closes the underlying file and reports any earlier write error.
func (mt *MergeTracker) Close() error {
	if mt == nil {
		return nil
	}
	if mt.closer != nil {
		if err := mt.closer.Close(); err != nil && mt.err == nil {
			mt.err = err
		}
		mt.closer = nil
	}
	return mt.err
}
