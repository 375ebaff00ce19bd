// Package metrics exposes clustering progress as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
)

// Registry holds all metrics for one clustering run. It implements
// modularity.Observer.
type Registry struct {
	MergesTotal     prometheus.Counter
	NegativeMerges  prometheus.Counter
	DeltaQ          prometheus.Histogram
	CurrentQ        prometheus.Gauge
	BestQ           prometheus.Gauge
	LiveCommunities prometheus.Gauge
	BestCommunities prometheus.Gauge
	RunsTotal       *prometheus.CounterVec
	LastRunPasses   prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every clustering metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.MergesTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "modcluster_merges_total",
		Help: "Total number of community merges applied",
	})
	r.NegativeMerges = f.NewCounter(prometheus.CounterOpts{
		Name: "modcluster_negative_merges_total",
		Help: "Merges applied with a negative modularity gain",
	})
	r.DeltaQ = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "modcluster_merge_delta_q",
		Help:    "Modularity gain of each applied merge",
		Buckets: []float64{-0.1, -0.01, -0.001, 0, 0.001, 0.01, 0.1},
	})
	r.CurrentQ = f.NewGauge(prometheus.GaugeOpts{
		Name: "modcluster_current_q",
		Help: "Modularity of the live partition",
	})
	r.BestQ = f.NewGauge(prometheus.GaugeOpts{
		Name: "modcluster_best_q",
		Help: "Best modularity seen in the run",
	})
	r.LiveCommunities = f.NewGauge(prometheus.GaugeOpts{
		Name: "modcluster_live_communities",
		Help: "Number of communities in the live partition",
	})
	r.BestCommunities = f.NewGauge(prometheus.GaugeOpts{
		Name: "modcluster_best_communities",
		Help: "Number of communities in the best partition",
	})
	r.RunsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "modcluster_runs_total",
		Help: "Finished clustering runs by stop reason",
	}, []string{"reason"})
	r.LastRunPasses = f.NewGauge(prometheus.GaugeOpts{
		Name: "modcluster_last_run_passes",
		Help: "Number of merge passes in the last finished run",
	})

	return r
}

// Gatherer returns the underlying registry for exposition.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// MergeApplied records one merge.
func (r *Registry) MergeApplied(ev modularity.MergeEvent) {
	r.MergesTotal.Inc()
	if ev.DeltaQ < 0 {
		r.NegativeMerges.Inc()
	}
	r.DeltaQ.Observe(ev.DeltaQ)
	r.CurrentQ.Set(ev.Q)
	r.BestQ.Set(ev.BestQ)
	r.LiveCommunities.Set(float64(ev.LiveCommunities))
}

// Finished records the run summary.
func (r *Registry) Finished(s modularity.Summary) {
	r.RunsTotal.WithLabelValues(s.Reason.String()).Inc()
	r.CurrentQ.Set(s.FinalQ)
	r.BestQ.Set(s.BestQ)
	r.BestCommunities.Set(float64(s.BestCommunities))
	r.LastRunPasses.Set(float64(s.Passes))
}

// WriteTextfile writes every metric to path in the text exposition format, for
// the node exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
