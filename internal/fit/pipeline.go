package fit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/snakefit/internal/opt"
	"github.com/cwbudde/snakefit/internal/snake"
	"github.com/cwbudde/snakefit/internal/trace"
)

// Config configures a fit.
type Config struct {
	PreSearch   PreSearchConfig
	Convergence ConvergenceConfig

	// MaxCycles bounds the optimizer's steepest-descent restarts (0 = unbounded)
	MaxCycles int

	// Trace, if set, receives one entry per improving step
	Trace *trace.Writer
	// TraceNodes includes the node configuration in every trace entry
	TraceNodes bool

	// Progress, if set, is called after every improving step
	Progress func(snake.Step)
}

// DefaultConfig returns a plain conjugate-gradient fit without pre-search
// or stall detection.
func DefaultConfig() Config {
	return Config{
		PreSearch:   DefaultPreSearchConfig(),
		Convergence: DisabledConvergenceConfig(),
	}
}

// OptimizationResult holds the output of a fit
type OptimizationResult struct {
	Nodes         snake.NodeSet `json:"nodes"`
	Energy        float64       `json:"energy"`
	InitialEnergy float64       `json:"initialEnergy"`
	BestEnergy    float64       `json:"bestEnergy"`
	Converged     bool          `json:"converged"`
	Cancelled     bool          `json:"cancelled"`
	Stalled       bool          `json:"stalled"`
	PreSearched   bool          `json:"preSearched"`
	Stats         snake.Stats   `json:"stats"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Run fits the contour starting from nodes (or c.Nodes() when nil). The run
// stops early when ctx is cancelled; that is reported through
// OptimizationResult.Cancelled rather than as an error.
func Run(ctx context.Context, c snake.Contour, nodes snake.NodeSet, cfg Config) (*OptimizationResult, error) {
	if nodes == nil {
		nodes = c.Nodes()
	}
	start := time.Now()

	token := snake.NewCancellationToken()
	stop := token.Bind(ctx)
	defer stop()
	if ctx.Err() != nil {
		token.Cancel()
	}

	c.SetNodes(nodes)
	initialEnergy := c.Energy()
	slog.Info("Starting snake fit", "nodes", len(nodes), "free", nodes.Free(), "initial_energy", initialEnergy)

	startNodes := nodes
	preSearched := false
	if cfg.PreSearch.Enabled && nodes.Free() > 0 {
		optimizer := opt.NewMayfly(cfg.PreSearch.Iters, cfg.PreSearch.PopSize, cfg.PreSearch.Seed)
		best, energy, ok := PreSearch(c, nodes, optimizer, cfg.PreSearch.Margin, token)
		if ok {
			startNodes = best
			preSearched = true
			slog.Info("Seeding from pre-search", "energy", energy)
		}
	}

	tracker := NewConvergenceTracker(cfg.Convergence)
	stalled := false
	opts := snake.Options{
		MaxCycles: cfg.MaxCycles,
		Observer: func(step snake.Step) {
			if cfg.Trace != nil {
				if err := cfg.Trace.Write(trace.FromStep(step, cfg.TraceNodes)); err != nil {
					slog.Warn("Failed to write trace entry", "error", err)
				}
			}
			if cfg.Progress != nil {
				cfg.Progress(step)
			}
			if !stalled && tracker.Update(step.Energy) {
				stalled = true
				token.Cancel()
			}
		},
	}

	res, err := snake.New(opts).Optimize(c, startNodes, token)
	if cfg.Trace != nil {
		if ferr := cfg.Trace.Flush(); ferr != nil {
			slog.Warn("Failed to flush trace", "error", ferr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("snake fit failed: %w", err)
	}

	result := &OptimizationResult{
		Nodes:         res.Nodes,
		Energy:        res.Energy,
		InitialEnergy: initialEnergy,
		BestEnergy:    min(res.BestEnergy, initialEnergy),
		Converged:     res.Converged,
		Cancelled:     res.Cancelled && !stalled,
		Stalled:       stalled,
		PreSearched:   preSearched,
		Stats:         res.Stats,
		Elapsed:       time.Since(start),
	}

	slog.Info("Snake fit complete",
		"converged", result.Converged,
		"cancelled", result.Cancelled,
		"stalled", result.Stalled,
		"initial_energy", result.InitialEnergy,
		"energy", result.Energy,
		"cycles", result.Stats.Cycles,
		"evaluations", result.Stats.Evaluations,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
