package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/waygraph"
	"github.com/hupe1980/waygraph/prommetrics"
	"github.com/hupe1980/waygraph/resource"
)

type runFlags struct {
	workers     int
	format      string
	logLevel    string
	metrics     bool
	memoryLimit int64
	maxSearches int64
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "waygraph",
		Short:         "Run pathfinding scenarios on a dynamic waypoint graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario.yaml]",
		Short: "Check a scenario file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			queries := 0
			for _, p := range s.Phases {
				queries += len(p.Queries)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges, %d phases, %d queries\n",
				len(s.Nodes), len(s.Edges), len(s.Phases), queries)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Build the scenario graph and run its phases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			return run(cmd, s, f)
		},
	}
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 4, "concurrent queries per phase")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "output format (text|yaml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "print Prometheus metrics after the run")
	cmd.Flags().Int64Var(&f.memoryLimit, "memory-limit", 0, "pool memory limit in bytes (0 = unlimited)")
	cmd.Flags().Int64Var(&f.maxSearches, "max-searches", 0, "concurrent search slots (0 = unlimited)")
	return cmd
}

func run(cmd *cobra.Command, s *Scenario, f runFlags) error {
	if f.format != "text" && f.format != "yaml" {
		return fmt.Errorf("unknown format %q", f.format)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := prommetrics.New(reg, "")
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:      f.memoryLimit,
		MaxConcurrentSearches: f.maxSearches,
	})

	pf, err := waygraph.New(func(o *waygraph.Options) {
		s.Options.Apply(o)
		o.Resources = rc
		o.Logger = waygraph.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
			WithSampling(10, 20)
		o.MetricsCollector = collector
	})
	if err != nil {
		return err
	}
	sp := waygraph.NewSync(pf)
	defer sp.Close()

	results, err := NewRunner(sp, f.workers).Run(cmd.Context(), s)
	if werr := writeResults(cmd.OutOrStdout(), f.format, results); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}

	if f.metrics {
		collector.ObserveCacheStats(sp.CacheStats())
		collector.ObserveMemory(rc.MemoryUsage())
		return writeMetrics(cmd.OutOrStdout(), reg)
	}
	return nil
}

func writeResults(w io.Writer, format string, results []Result) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s/%s %s: error: %s\n", r.Phase, r.Query, r.Kind, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s/%s %s: cost=%g nodes=%v cached=%t", r.Phase, r.Query, r.Kind, r.Cost, r.Nodes, r.Cached)
		if r.Entry != nil {
			fmt.Fprintf(w, " entry=(%g,%g)", r.Entry.X, r.Entry.Y)
		}
		if r.Exit != nil {
			fmt.Fprintf(w, " exit=(%g,%g)", r.Exit.X, r.Exit.Y)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
