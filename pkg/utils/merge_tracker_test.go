package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
)

func TestMergeTracker_LogsRun(t *testing.T) {
	g, err := graph.LoadEdges([]graph.Edge{
		{From: "A", To: "B", Weight: 1},
		{From: "B", To: "C", Weight: 1},
		{From: "A", To: "C", Weight: 1},
	})
	require.NoError(t, err)

	runID := uuid.NewString()
	path := filepath.Join(t.TempDir(), "merges.jsonl")
	tracker, err := NewMergeTracker(path, runID)
	require.NoError(t, err)

	res, err := modularity.Cluster(g, modularity.Options{Logger: zerolog.Nop(), Observer: tracker})
	require.NoError(t, err)
	require.NoError(t, tracker.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines [][]byte
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	require.Len(t, lines, len(res.Merges)+1)

	for i, m := range res.Merges {
		var rec MergeRecord
		require.NoError(t, json.Unmarshal(lines[i], &rec))
		assert.Equal(t, runID, rec.RunID)
		assert.Equal(t, i+1, rec.Pass)
		assert.Equal(t, m.Target, rec.Target)
		assert.Equal(t, m.Source, rec.Source)
		assert.InDelta(t, m.Q, rec.Modularity, 1e-12)
	}

	var fin FinishRecord
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &fin))
	assert.Equal(t, "finished", fin.Event)
	assert.Equal(t, res.Reason.String(), fin.Reason)
	assert.Equal(t, res.BestPass, fin.BestPass)
}

func TestMergeTracker_NilIsNoop(t *testing.T) {
	var tracker *MergeTracker
	tracker.MergeApplied(modularity.MergeEvent{Pass: 1})
	tracker.Finished(modularity.Summary{})
	assert.NoError(t, tracker.Err())
	assert.NoError(t, tracker.Close())
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestMergeTracker_KeepsFirstError(t *testing.T) {
	w := &failingWriter{}
	tracker := NewMergeTrackerWriter(w, "run")
	tracker.MergeApplied(modularity.MergeEvent{Pass: 1})
	tracker.MergeApplied(modularity.MergeEvent{Pass: 2})

	assert.EqualError(t, tracker.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
	assert.EqualError(t, tracker.Close(), "disk full")
}

func TestMergeTracker_Writer(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewMergeTrackerWriter(&buf, "abc")
	tracker.MergeApplied(modularity.MergeEvent{Pass: 3, Target: 1, Source: 4, DeltaQ: 0.25, Q: 0.5, LiveCommunities: 2, Improved: true})

	var rec MergeRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "abc", rec.RunID)
	assert.Equal(t, 3, rec.Pass)
	assert.Equal(t, 2, rec.Communities)
	assert.True(t, rec.Improved)
	assert.Positive(t, rec.Timestamp)
}

func TestNewMergeTracker_BadPath(t *testing.T) {
	_, err := NewMergeTracker(filepath.Join(t.TempDir(), "no", "such", "dir", "m.jsonl"), "x")
	assert.Error(t, err)
}
