// Package pipeline runs a full clustering job: load the edge list, cluster,
// optionally verify, filter and export.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
	"github.com/gilchrisn/modularity-clustering/pkg/metrics"
	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
	"github.com/gilchrisn/modularity-clustering/pkg/output"
	"github.com/gilchrisn/modularity-clustering/pkg/parser"
	"github.com/gilchrisn/modularity-clustering/pkg/utils"
	"github.com/gilchrisn/modularity-clustering/pkg/validation"
)

// Pipeline runs one clustering job from validated settings.
type Pipeline struct {
	Settings modularity.Settings
	Logger   zerolog.Logger
	RunID    string
	Writer   output.OutputWriter
}

// PipelineResult contains the complete pipeline output
type PipelineResult struct {
	RunID        string
	Graph        *graph.WeightedGraph
	Header       []string
	Cluster      *modularity.Result
	Exported     modularity.Partition
	Removed      int
	Verification *validation.Report
	Files        []string

	TotalRuntimeMS int64
}

// NewPipeline resolves cfg into a pipeline. The logger carries the run id.
func NewPipeline(cfg *modularity.Config, runID string) (*Pipeline, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Settings: settings,
		Logger:   cfg.CreateLogger().With().Str("run_id", runID).Logger(),
		RunID:    runID,
		Writer:   output.NewFileWriter(),
	}, nil
}

// Run executes the pipeline on inputFile.
func (p *Pipeline) Run(inputFile string) (*PipelineResult, error) {
	startTime := time.Now()
	s := p.Settings
	logger := p.Logger

	if s.Directed {
		logger.Warn().Msg("Directed input requested; edges are treated as undirected")
	}

	// Step 1: Load the edge list
	g, parsed, err := parser.LoadGraph(inputFile, parser.Options{Format: s.InputFormat, SkipHeader: s.SkipHeader})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Info().
		Str("input", inputFile).
		Int("records", len(parsed.Records)).
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Float64("total_weight", g.TotalWeight()).
		Msg("Graph loaded")

	// Step 2: Cluster
	observers := modularity.Observers{modularity.NewLogObserver(logger, s.ProgressInterval, s.EnableProgress)}

	var registry *metrics.Registry
	if s.MetricsFile != "" {
		registry = metrics.NewRegistry()
		observers = append(observers, registry)
	}

	var tracker *utils.MergeTracker
	if s.TrackMergesFile != "" {
		tracker, err = utils.NewMergeTracker(s.TrackMergesFile, p.RunID)
		if err != nil {
			return nil, err
		}
		defer tracker.Close()
		observers = append(observers, tracker)
	}

	clusterResult, err := modularity.Cluster(g, modularity.Options{
		StopAtFirstNegativeDeltaQ: s.StopAtFirstNegativeDeltaQ,
		Logger:                    logger,
		Observer:                  observers,
	})
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	if tracker != nil {
		if err := tracker.Close(); err != nil {
			return nil, fmt.Errorf("failed to write merge log: %w", err)
		}
		logger.Info().Str("file", s.TrackMergesFile).Msg("Merge log written")
	}
	if registry != nil {
		if err := registry.WriteTextfile(s.MetricsFile); err != nil {
			return nil, err
		}
		logger.Info().Str("file", s.MetricsFile).Msg("Metrics written")
	}

	result := &PipelineResult{
		RunID:   p.RunID,
		Graph:   g,
		Header:  parsed.Header,
		Cluster: clusterResult,
	}

	// Step 3: Verify
	if s.Verify {
		report, err := validation.VerifyResult(g, clusterResult.BestPartition, clusterResult.BestQ, 0)
		if err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		result.Verification = report
		logger.Info().
			Float64("reported_q", report.ReportedQ).
			Float64("recomputed_q", report.RecomputedQ).
			Float64("difference", report.Difference).
			Msg("Best partition verified")
	}

	// Step 4: Filter and export
	result.Exported = clusterResult.BestPartition
	if s.MinClusterSize > 1 {
		result.Exported, result.Removed = clusterResult.BestPartition.FilterMinSize(s.MinClusterSize)
		logger.Info().
			Int("min_size", s.MinClusterSize).
			Int("removed", result.Removed).
			Int("remaining", result.Exported.Len()).
			Msg("Removed small clusters")
	}

	if s.OutputRoot != "" {
		if err := validation.ValidateOutputDirectory(s.OutputRoot); err != nil {
			return nil, err
		}
		files, err := p.Writer.WriteAll(result.Exported, g, s.OutputRoot, s.OutputFormats)
		if err != nil {
			return nil, fmt.Errorf("output generation failed: %w", err)
		}

		summaryPath := s.OutputRoot + "_summary.txt"
		if err := p.writeSummary(result, summaryPath); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
		result.Files = append(files, summaryPath)

		logger.Info().Strs("files", result.Files).Msg("Outputs written")
	}

	result.TotalRuntimeMS = time.Since(startTime).Milliseconds()
	logger.Info().
		Float64("best_q", clusterResult.BestQ).
		Int("communities", clusterResult.BestPartition.Len()).
		Int("passes", len(clusterResult.Merges)).
		Str("reason", clusterResult.Reason.String()).
		Int64("runtime_ms", result.TotalRuntimeMS).
		Msg("Pipeline complete")

	return result, nil
}

// writeSummary creates a summary file with run statistics
func (p *Pipeline) writeSummary(result *PipelineResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := result.Cluster
	fmt.Fprintf(file, "=== Modularity Clustering Summary ===\n\n")
	fmt.Fprintf(file, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(file, "Mode: %s\n", modeName(p.Settings.StopAtFirstNegativeDeltaQ))
	if len(result.Header) > 0 {
		fmt.Fprintf(file, "Input header: %v\n", result.Header)
	}
	fmt.Fprintf(file, "\nGraph:\n")
	fmt.Fprintf(file, "  Nodes: %d\n", result.Graph.NumNodes())
	fmt.Fprintf(file, "  Edges: %d\n", result.Graph.NumEdges())
	fmt.Fprintf(file, "  Total Weight: %g\n", result.Graph.TotalWeight())

	fmt.Fprintf(file, "\nClustering Results:\n")
	fmt.Fprintf(file, "  Initial Modularity: %.6f\n", r.InitialQ)
	fmt.Fprintf(file, "  Best Modularity: %.6f (pass %d)\n", r.BestQ, r.BestPass)
	fmt.Fprintf(file, "  Final Modularity: %.6f\n", r.FinalQ)
	fmt.Fprintf(file, "  Passes: %d\n", len(r.Merges))
	fmt.Fprintf(file, "  Stop Reason: %s\n", r.Reason)
	fmt.Fprintf(file, "  Communities: %d\n", r.BestPartition.Len())
	if result.Removed > 0 {
		fmt.Fprintf(file, "  Communities Exported: %d (%d removed below size %d)\n",
			result.Exported.Len(), result.Removed, p.Settings.MinClusterSize)
	}
	if result.Verification != nil {
		fmt.Fprintf(file, "  Verified Modularity: %.6f\n", result.Verification.RecomputedQ)
	}
	fmt.Fprintf(file, "  Runtime: %v\n", r.Runtime)

	return file.Close()
}

func modeName(stopAtNegative bool) string {
	if stopAtNegative {
		return "greedy"
	}
	return "exhaustive"
}
