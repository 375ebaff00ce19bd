package modularity

import "github.com/rs/zerolog"

// MergeEvent describes one applied merge.
type MergeEvent struct {
	Pass            int     `json:"pass"`
	Target          int     `json:"target"`
	Source          int     `json:"source"`
	DeltaQ          float64 `json:"delta_q"`
	Q               float64 `json:"q"`
	BestQ           float64 `json:"best_q"`
	LiveCommunities int     `json:"live_communities"`
	Improved        bool    `json:"improved"`
}

// Summary describes a finished run.
type Summary struct {
	Reason          StopReason
	Passes          int
	InitialQ        float64
	FinalQ          float64
	BestQ           float64
	BestPass        int
	BestCommunities int
	QHistory        []float64
}

// Observer receives engine progress. Callbacks run synchronously on the engine's
// goroutine and must not call back into the engine.
type Observer interface {
	MergeApplied(ev MergeEvent)
	Finished(s Summary)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) MergeApplied(ev MergeEvent) {
	for _, obs := range o {
		obs.MergeApplied(ev)
	}
}

func (o Observers) Finished(s Summary) {
	for _, obs := range o {
		obs.Finished(s)
	}
}

// LogObserver reports progress through zerolog.
type LogObserver struct {
	logger   zerolog.Logger
	interval int
	enabled  bool
}

// NewLogObserver logs a progress line every interval passes when enabled, and
// every merge at debug level.
func NewLogObserver(logger zerolog.Logger, interval int, enabled bool) *LogObserver {
	if interval <= 0 {
		interval = 50
	}
	return &LogObserver{logger: logger, interval: interval, enabled: enabled}
}

func (l *LogObserver) MergeApplied(ev MergeEvent) {
	l.logger.Debug().
		Int("pass", ev.Pass).
		Int("target", ev.Target).
		Int("source", ev.Source).
		Float64("delta_q", ev.DeltaQ).
		Float64("q", ev.Q).
		Msg("Merged communities")

	if l.enabled && ev.Pass%l.interval == 0 {
		l.logger.Info().
			Int("pass", ev.Pass).
			Int("communities", ev.LiveCommunities).
			Float64("q", ev.Q).
			Float64("best_q", ev.BestQ).
			Msg("Clustering progress")
	}
}

func (l *LogObserver) Finished(s Summary) {
	l.logger.Info().
		Str("reason", s.Reason.String()).
		Int("passes", s.Passes).
		Float64("best_q", s.BestQ).
		Int("best_pass", s.BestPass).
		Int("communities", s.BestCommunities).
		Msg("Clustering finished")

	if l.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	for i, q := range s.QHistory {
		ev := l.logger.Debug().Int("pass", i+1).Float64("q", q)
		if i+1 == s.BestPass {
			ev = ev.Bool("max", true)
		}
		ev.Msg("Q path")
	}
}
