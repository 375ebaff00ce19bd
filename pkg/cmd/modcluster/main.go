package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
	"github.com/gilchrisn/modularity-clustering/pkg/parser"
	"github.com/gilchrisn/modularity-clustering/pkg/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"stop-at-negative":  "algorithm.stop_at_first_negative_delta_q",
	"log-level":         "logging.level",
	"progress":          "logging.enable_progress",
	"progress-interval": "logging.progress_interval",
	"format":            "input.format",
	"skip-header":       "input.skip_header",
	"directed":          "input.directed",
	"output":            "output.root",
	"export":            "output.formats",
	"min-cluster-size":  "output.min_cluster_size",
	"metrics-file":      "metrics.file",
	"track-merges":      "analysis.track_merges",
	"verify":            "analysis.verify",
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "modcluster",
		Short:        "Greedy agglomerative modularity clustering of weighted edge lists",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd(), newQueryCmd(), newGenerateCmd())
	return rootCmd
}

func addInputFlags(fs *pflag.FlagSet) {
	fs.String("format", parser.FormatCSV, "Input format: csv or whitespace")
	fs.Bool("skip-header", false, "Skip the first record of the input")
	fs.Bool("directed", false, "Accepted for compatibility; edges are always undirected")
	fs.Bool("stop-at-negative", false, "Stop at the first merge that would lower modularity")
	fs.String("log-level", "info", "Log level")
	fs.Bool("progress", true, "Log progress while merging")
	fs.Int("progress-interval", 50, "Merges between progress lines")
}

// loadConfig builds a Config from the optional file and every flag of cmd that
// has a configuration key.
func loadConfig(cmd *cobra.Command, configPath string) (*modularity.Config, error) {
	cfg := modularity.NewConfig()
	cfg.SetLogOutput(cmd.ErrOrStderr())
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = cfg.BindFlag(key, f)
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var (
		inputPath  string
		configPath string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Cluster an edge list and write the best partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			if cfg.OutputRoot() == "" {
				return fmt.Errorf("an output root is required (--output or output.root)")
			}
			return runPipeline(cmd.OutOrStdout(), cfg, inputPath)
		},
	}

	fs := runCmd.Flags()
	fs.StringVar(&inputPath, "input", "", "Input edge list")
	fs.StringVar(&configPath, "config", "", "Config file path")
	addInputFlags(fs)
	fs.String("output", "", "Output root; each format adds its own extension")
	fs.StringSlice("export", []string{"json", "tsv", "mr"}, "Export formats: json, yaml, tsv, mr, members")
	fs.Int("min-cluster-size", 0, "Drop communities smaller than this before export")
	fs.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	fs.String("track-merges", "", "Write every merge as JSON lines to this file")
	fs.Bool("verify", false, "Recompute the best partition's modularity with gonum")
	_ = runCmd.MarkFlagRequired("input")

	return runCmd
}

func runPipeline(out io.Writer, cfg *modularity.Config, inputPath string) error {
	p, err := pipeline.NewPipeline(cfg, uuid.NewString())
	if err != nil {
		return err
	}
	res, err := p.Run(inputPath)
	if err != nil {
		return err
	}

	r := res.Cluster
	fmt.Fprintf(out, "run_id: %s\n", res.RunID)
	fmt.Fprintf(out, "best_q: %.6f\n", r.BestQ)
	fmt.Fprintf(out, "best_pass: %d\n", r.BestPass)
	fmt.Fprintf(out, "communities: %d\n", r.BestPartition.Len())
	fmt.Fprintf(out, "exported: %d\n", res.Exported.Len())
	for _, f := range res.Files {
		fmt.Fprintf(out, "wrote: %s\n", f)
	}
	return nil
}

func newQueryCmd() *cobra.Command {
	var (
		inputPath  string
		configPath string
		nodes      []string
	)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Cluster an edge list and report the community of the given nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			cfg.Set("output.root", "")
			cfg.Set("analysis.track_merges", "")
			cfg.Set("metrics.file", "")

			p, err := pipeline.NewPipeline(cfg, uuid.NewString())
			if err != nil {
				return err
			}
			res, err := p.Run(inputPath)
			if err != nil {
				return err
			}
			return printMembership(cmd.OutOrStdout(), res.Cluster.BestPartition, nodes)
		},
	}

	fs := queryCmd.Flags()
	fs.StringVar(&inputPath, "input", "", "Input edge list")
	fs.StringVar(&configPath, "config", "", "Config file path")
	fs.StringArrayVar(&nodes, "node", nil, "Node to look up (repeatable; two nodes also report whether they share a community)")
	addInputFlags(fs)
	_ = queryCmd.MarkFlagRequired("input")
	_ = queryCmd.MarkFlagRequired("node")

	return queryCmd
}

func printMembership(out io.Writer, p modularity.Partition, nodes []string) error {
	for _, node := range nodes {
		id, ok := p.CommunityOf(node)
		if !ok {
			return fmt.Errorf("node %q is not in the graph", node)
		}
		fmt.Fprintf(out, "%s -> %d\n", node, id)
	}
	if len(nodes) == 2 {
		same, err := p.SameCommunity(nodes[0], nodes[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "same community: %t\n", same)
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	var (
		outputPath string
		format     string
	)
	params := parser.DefaultSampleParams()

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a planted-partition sample graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validator.New().Struct(params); err != nil {
				return fmt.Errorf("invalid sample parameters: %w", err)
			}
			edges := parser.GenerateSample(params)
			if err := parser.SaveEdges(edges, outputPath, format); err != nil {
				return fmt.Errorf("failed to write sample: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d edges to %s\n", len(edges), outputPath)
			return nil
		},
	}

	fs := generateCmd.Flags()
	fs.StringVar(&outputPath, "output", "", "Output edge list")
	fs.StringVar(&format, "format", parser.FormatCSV, "Output format: csv or whitespace")
	fs.IntVar(&params.Groups, "groups", params.Groups, "Number of planted communities")
	fs.IntVar(&params.GroupSize, "size", params.GroupSize, "Nodes per community")
	fs.Float64Var(&params.PIn, "p-in", params.PIn, "Edge probability inside a community")
	fs.Float64Var(&params.POut, "p-out", params.POut, "Edge probability between communities")
	fs.IntVar(&params.MaxWeight, "max-weight", params.MaxWeight, "Largest integer edge weight")
	fs.Int64Var(&params.Seed, "seed", params.Seed, "Random seed")
	_ = generateCmd.MarkFlagRequired("output")

	return generateCmd
}
