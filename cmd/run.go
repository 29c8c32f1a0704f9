package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/snakefit/internal/contour"
	"github.com/cwbudde/snakefit/internal/fit"
	"github.com/cwbudde/snakefit/internal/trace"
	"github.com/spf13/cobra"
)

// runOptions holds the flags of the run command
type runOptions struct {
	contourPath string
	outPath     string
	tracePath   string
	traceNodes  bool
	maxCycles   int

	preSearch      bool
	preSearchIters int
	popSize        int
	seed           int64

	// patience > 0 enables stall detection
	patience  int
	threshold float64
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fit a contour once and write the result",
	Long: `Loads a contour description (JSON or YAML), minimizes its energy and
writes the fitted contour. Press Ctrl-C to stop early; the best configuration
reached so far is still written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runFit(ctx, cmd, runOpts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOpts.contourPath, "contour", "", "Contour description path, .json or .yaml (required)")
	runCmd.Flags().StringVar(&runOpts.outPath, "out", "", "Output path for the fitted contour (default: print summary only)")
	runCmd.Flags().StringVar(&runOpts.tracePath, "trace", "", "Write a JSONL trace of improving steps to this path")
	runCmd.Flags().BoolVar(&runOpts.traceNodes, "trace-nodes", false, "Include node positions in trace entries")
	runCmd.Flags().IntVar(&runOpts.maxCycles, "max-cycles", 0, "Maximum steepest-descent restarts (0 = unbounded)")
	runCmd.Flags().BoolVar(&runOpts.preSearch, "presearch", false, "Seed the fit with a mayfly global search")
	runCmd.Flags().IntVar(&runOpts.preSearchIters, "presearch-iters", 50, "Pre-search iterations")
	runCmd.Flags().IntVar(&runOpts.popSize, "pop", 20, "Pre-search population size")
	runCmd.Flags().Int64Var(&runOpts.seed, "seed", 42, "Pre-search random seed")
	runCmd.Flags().IntVar(&runOpts.patience, "patience", 0, "Stop after this many steps without significant improvement (0 = off)")
	runCmd.Flags().Float64Var(&runOpts.threshold, "threshold", 1e-6, "Relative improvement that counts as significant")

	runCmd.MarkFlagRequired("contour")
	rootCmd.AddCommand(runCmd)
}

func (o runOptions) fitConfig() fit.Config {
	cfg := fit.DefaultConfig()
	cfg.MaxCycles = o.maxCycles
	cfg.TraceNodes = o.traceNodes

	if o.preSearch {
		cfg.PreSearch.Enabled = true
		cfg.PreSearch.Iters = o.preSearchIters
		cfg.PreSearch.PopSize = o.popSize
		cfg.PreSearch.Seed = o.seed
	}

	if o.patience > 0 {
		cfg.Convergence = fit.DefaultConvergenceConfig()
		cfg.Convergence.Patience = o.patience
		cfg.Convergence.Threshold = o.threshold
	}
	return cfg
}

// fitFile loads the contour description and fits it
func fitFile(ctx context.Context, o runOptions) (*contour.File, *fit.OptimizationResult, error) {
	file, err := contour.Load(o.contourPath)
	if err != nil {
		return nil, nil, err
	}

	c, err := file.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid contour %s: %w", o.contourPath, err)
	}

	cfg := o.fitConfig()
	if o.tracePath != "" {
		tw, err := trace.NewWriter(o.tracePath, false)
		if err != nil {
			return nil, nil, err
		}
		defer tw.Close()
		cfg.Trace = tw
	}

	slog.Info("Loaded contour", "path", o.contourPath, "nodes", len(file.Nodes), "free", file.Nodes.Free())

	result, err := fit.Run(ctx, c, nil, cfg)
	if err != nil {
		return nil, nil, err
	}
	return file, result, nil
}

func runFit(ctx context.Context, cmd *cobra.Command, o runOptions) error {
	file, result, err := fitFile(ctx, o)
	if err != nil {
		return err
	}

	if o.outPath != "" {
		file.Nodes = result.Nodes
		if err := file.Save(o.outPath); err != nil {
			return err
		}
	}

	status := "converged"
	switch {
	case result.Cancelled:
		status = "interrupted"
	case result.Stalled:
		status = "stalled"
	case !result.Converged:
		status = "stopped"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: energy %.6g -> %.6g (%d evaluations, %d cycles, %s)\n",
		status, result.InitialEnergy, result.Energy,
		result.Stats.Evaluations, result.Stats.Cycles, result.Elapsed.Round(time.Millisecond))
	if o.outPath != "" {
		fmt.Fprintf(out, "Wrote %s\n", o.outPath)
	}
	return nil
}
