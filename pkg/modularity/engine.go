package modularity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
)

// State is the engine's lifecycle position. Transitions only move forward.
type State int

const (
	StateReady State = iota
	StateIterating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StopReason records why the run ended.
type StopReason int

const (
	StopNone StopReason = iota
	StopSingleCommunity
	StopNoActiveCommunities
	StopNoCandidate
	StopNegativeDeltaQ
	StopFailed
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopSingleCommunity:
		return "single community left"
	case StopNoActiveCommunities:
		return "no active communities"
	case StopNoCandidate:
		return "no candidate pair"
	case StopNegativeDeltaQ:
		return "negative delta Q"
	case StopFailed:
		return "failed"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Merge is one step of the dendrogram.
type Merge struct {
	Target int     `json:"target"`
	Source int     `json:"source"`
	DeltaQ float64 `json:"delta_q"`
	Q      float64 `json:"q"`
}

// Result is the outcome of a finished run.
type Result struct {
	BestQ         float64       `json:"best_q"`
	BestPartition Partition     `json:"best_partition"`
	BestPass      int           `json:"best_pass"` // merges applied when BestQ was reached
	InitialQ      float64       `json:"initial_q"`
	FinalQ        float64       `json:"final_q"`
	QHistory      []float64     `json:"q_history"`
	Merges        []Merge       `json:"merges"`
	Reason        StopReason    `json:"-"`
	Runtime       time.Duration `json:"runtime"`
}

// Options tunes an Engine.
type Options struct {
	// StopAtFirstNegativeDeltaQ selects greedy hill climbing. When false the engine
	// merges down the whole dendrogram and keeps the best partition seen.
	StopAtFirstNegativeDeltaQ bool
	Logger                    zerolog.Logger
	Observer                  Observer
}

// OptionsFromConfig builds engine options from a Config, with a logging observer
// attached.
func OptionsFromConfig(cfg *Config) Options {
	logger := cfg.CreateLogger()
	return Options{
		StopAtFirstNegativeDeltaQ: cfg.StopAtFirstNegativeDeltaQ(),
		Logger:                    logger,
		Observer:                  NewLogObserver(logger, cfg.ProgressInterval(), cfg.EnableProgress()),
	}
}

// Engine drives the greedy merge loop. It owns its Store and GainIndex exclusively
// and is not safe for concurrent use.
type Engine struct {
	store    *Store
	gains    *GainIndex
	opts     Options
	logger   zerolog.Logger
	observer Observer

	state    State
	reason   StopReason
	err      error
	passes   int
	currentQ float64
	initialQ float64
	bestQ    float64
	bestPass int
	best     Partition
	history  []float64
	merges   []Merge
	started  time.Time
}

// NewEngine sets up singleton communities and the initial gain index for g.
func NewEngine(g *graph.WeightedGraph, opts Options) (*Engine, error) {
	if g == nil || g.NumNodes() == 0 {
		return nil, fmt.Errorf("cannot cluster an empty graph")
	}

	store := NewStore(g)
	e := &Engine{
		store:    store,
		gains:    NewGainIndex(store, !opts.StopAtFirstNegativeDeltaQ),
		opts:     opts,
		logger:   opts.Logger,
		observer: opts.Observer,
		state:    StateReady,
	}

	e.currentQ = store.Modularity()
	e.initialQ = e.currentQ
	e.bestQ = e.currentQ
	e.best = store.Snapshot()

	e.logger.Info().
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Float64("total_weight", g.TotalWeight()).
		Int("candidates", e.gains.Len()).
		Float64("initial_q", e.initialQ).
		Bool("stop_at_negative", opts.StopAtFirstNegativeDeltaQ).
		Msg("Clustering engine ready")

	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Store exposes the live community store for inspection.
func (e *Engine) Store() *Store { return e.store }

// Gains exposes the live gain index for inspection.
func (e *Engine) Gains() *GainIndex { return e.gains }

// CurrentQ returns the modularity of the live partition.
func (e *Engine) CurrentQ() float64 { return e.currentQ }

// BestQ returns the best modularity seen so far.
func (e *Engine) BestQ() float64 { return e.bestQ }

// Step applies at most one merge. It returns true once the engine is done.
// Any merge error is fatal: the engine stops and keeps returning the error.
func (e *Engine) Step() (bool, error) {
	switch e.state {
	case StateDone:
		return true, e.err
	case StateReady:
		e.state = StateIterating
		e.started = time.Now()
	}

	if e.store.Len() <= 1 {
		e.finish(StopSingleCommunity)
		return true, nil
	}
	if e.store.ActiveLen() == 0 {
		e.finish(StopNoActiveCommunities)
		return true, nil
	}

	pair, err := e.gains.BestPair()
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			e.finish(StopNoCandidate)
			return true, nil
		}
		e.err = err
		e.finish(StopFailed)
		return true, err
	}

	affected, err := e.store.Merge(pair.I, pair.J)
	if err != nil {
		e.err = fmt.Errorf("merge at pass %d: %w", e.passes+1, err)
		e.finish(StopFailed)
		return true, e.err
	}
	e.gains.Repair(pair.I, pair.J, affected, e.store)

	e.passes++
	e.currentQ += pair.DeltaQ
	e.history = append(e.history, e.currentQ)
	e.merges = append(e.merges, Merge{Target: pair.I, Source: pair.J, DeltaQ: pair.DeltaQ, Q: e.currentQ})

	improved := e.currentQ > e.bestQ
	if improved {
		e.bestQ = e.currentQ
		e.bestPass = e.passes
		e.best = e.store.Snapshot()
	}

	if e.observer != nil {
		e.observer.MergeApplied(MergeEvent{
			Pass:            e.passes,
			Target:          pair.I,
			Source:          pair.J,
			DeltaQ:          pair.DeltaQ,
			Q:               e.currentQ,
			BestQ:           e.bestQ,
			LiveCommunities: e.store.Len(),
			Improved:        improved,
		})
	}

	if e.opts.StopAtFirstNegativeDeltaQ && pair.DeltaQ < 0 {
		e.finish(StopNegativeDeltaQ)
		return true, nil
	}
	return false, nil
}

// Run steps until done and returns the best partition found.
func (e *Engine) Run() (*Result, error) {
	for {
		done, err := e.Step()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return e.Result(), nil
}

// Result returns the run outcome. It is only complete once the engine is done.
func (e *Engine) Result() *Result {
	history := make([]float64, len(e.history))
	copy(history, e.history)
	merges := make([]Merge, len(e.merges))
	copy(merges, e.merges)

	var runtime time.Duration
	if !e.started.IsZero() {
		runtime = time.Since(e.started)
	}

	return &Result{
		BestQ:         e.bestQ,
		BestPartition: e.best,
		BestPass:      e.bestPass,
		InitialQ:      e.initialQ,
		FinalQ:        e.currentQ,
		QHistory:      history,
		Merges:        merges,
		Reason:        e.reason,
		Runtime:       runtime,
	}
}

func (e *Engine) finish(reason StopReason) {
	e.state = StateDone
	e.reason = reason

	if e.observer != nil {
		history := make([]float64, len(e.history))
		copy(history, e.history)
		e.observer.Finished(Summary{
			Reason:          reason,
			Passes:          e.passes,
			InitialQ:        e.initialQ,
			FinalQ:          e.currentQ,
			BestQ:           e.bestQ,
			BestPass:        e.bestPass,
			BestCommunities: e.best.Len(),
			QHistory:        history,
		})
	}
}

// Cluster is a convenience wrapper: build an engine for g and run it.
func Cluster(g *graph.WeightedGraph, opts Options) (*Result, error) {
	e, err := NewEngine(g, opts)
	if err != nil {
		return nil, err
	}
	return e.Run()
}
