package snake

import (
	"fmt"
	"log/slog"
	"math"
)

// Options configures an Optimizer.
type Options struct {
	// MaxCycles bounds the number of steepest-descent restarts.
	// 0 means unbounded: the run ends only on convergence or cancellation.
	MaxCycles int

	// Observer, if set, is called after every line search that lowered the
	// energy. It runs on the optimizer's goroutine and must not touch the
	// contour.
	Observer func(Step)
}

// DefaultOptions returns an unbounded configuration without observer.
func DefaultOptions() Options {
	return Options{}
}

// Step describes one improving line search.
type Step struct {
	Cycle        int     `json:"cycle"`
	Iteration    int     `json:"iteration"`
	Energy       float64 `json:"energy"`
	Displacement float64 `json:"displacement"`
	Nodes        NodeSet `json:"nodes"`
}

// Stats counts the work done by one run.
type Stats struct {
	Evaluations  int `json:"evaluations"`
	Gradients    int `json:"gradients"`
	LineSearches int `json:"lineSearches"`
	Cycles       int `json:"cycles"`
}

// Result is the outcome of Optimize.
type Result struct {
	Converged bool    `json:"converged"`
	Cancelled bool    `json:"cancelled"`
	Nodes     NodeSet `json:"nodes"`
	// Energy is the energy of Nodes as last measured by the line search.
	Energy float64 `json:"energy"`
	// BestEnergy is the lowest energy seen during the run.
	BestEnergy float64 `json:"bestEnergy"`
	Stats      Stats   `json:"stats"`
}

// Optimizer minimizes a contour's energy by Polak–Ribière conjugate gradients
// with a restart to steepest descent after every 2K+1 line searches.
type Optimizer struct {
	opts Options
}

// New creates an optimizer.
func New(opts Options) *Optimizer {
	return &Optimizer{opts: opts}
}

// Optimize is shorthand for New(DefaultOptions()).Optimize that only reports
// convergence.
func Optimize(c Contour, initial NodeSet, token *CancellationToken) (bool, error) {
	res, err := New(DefaultOptions()).Optimize(c, initial, token)
	if err != nil {
		return false, err
	}
	return res.Converged, nil
}

// Optimize fits the contour starting from initial, or from c.Nodes() when
// initial is nil. The caller's slice is not modified. On every exit after
// validation the final configuration is pushed to the contour with SetNodes
// exactly once, after all evaluation traffic.
//
// Cancellation is reported through Result.Cancelled, not as an error.
// Errors are contract violations (see ErrEmptyContour and friends).
func (o *Optimizer) Optimize(c Contour, initial NodeSet, token *CancellationToken) (*Result, error) {
	if initial == nil {
		initial = c.Nodes()
	}
	x := initial.Clone()
	f0, err := validate(c, x)
	if err != nil {
		return nil, fmt.Errorf("invalid contour: %w", err)
	}

	res := &Result{Energy: f0, BestEnergy: f0}
	eval := newEvaluator(c, token, &res.Stats)
	ls := newLineSearch(eval)

	finish := func(converged, cancelled bool) *Result {
		c.SetNodes(x.Clone())
		res.Converged = converged
		res.Cancelled = cancelled
		res.Nodes = x
		slog.Debug("Snake optimization finished",
			"converged", converged,
			"cancelled", cancelled,
			"energy", res.Energy,
			"cycles", res.Stats.Cycles,
			"evaluations", res.Stats.Evaluations,
		)
		return res
	}
	fail := func(err error) (*Result, error) {
		finish(false, false)
		return nil, fmt.Errorf("gradient evaluation: %w", err)
	}

	k := len(x)
	g0, out, err := eval.gradient(x)
	if err != nil {
		return fail(err)
	}
	if out == Cancelled {
		return finish(false, true), nil
	}

	v := make(Vector, k)
	for cycle := 1; ; cycle++ {
		if o.opts.MaxCycles > 0 && cycle > o.opts.MaxCycles {
			return finish(false, false), nil
		}
		res.Stats.Cycles = cycle

		for i := range v {
			v[i] = Vec2{X: -g0[i].X, Y: -g0[i].Y}
		}
		gg0 := g0.Norm2()
		if gg0 <= sqrtEps {
			return finish(true, false), nil
		}

		var total float64
		for iter := 0; iter < 2*k+1; iter++ {
			dx, f, out := ls.minimize(x, v)
			o.record(res, cycle, iter, f, dx, x)
			if out == Cancelled {
				return finish(false, true), nil
			}
			total += dx

			g1, out, err := eval.gradient(x)
			if err != nil {
				return fail(err)
			}
			if out == Cancelled {
				return finish(false, true), nil
			}
			gg1 := g1.Norm2()
			if gg1 <= sqrtEps {
				return finish(true, false), nil
			}

			beta := (gg1 - g1.Dot(g0)) / gg0
			for i := range v {
				v[i].X = beta*v[i].X - g1[i].X
				v[i].Y = beta*v[i].Y - g1[i].Y
			}
			if v.Norm2() <= sqrtEps {
				return finish(true, false), nil
			}
			g0, gg0 = g1, gg1
		}

		if total <= sqrtEps {
			return finish(true, false), nil
		}
		slog.Debug("Restarting along steepest descent",
			"cycle", cycle,
			"displacement", total,
			"energy", res.Energy,
		)
	}
}

// record updates the energy bookkeeping after a line search and notifies the
// observer when the energy went down.
func (o *Optimizer) record(res *Result, cycle, iter int, f, dx float64, x NodeSet) {
	if math.IsInf(f, 1) {
		return
	}
	improved := f < res.Energy
	res.Energy = f
	if f < res.BestEnergy {
		res.BestEnergy = f
	}
	if improved && o.opts.Observer != nil {
		o.opts.Observer(Step{
			Cycle:        cycle,
			Iteration:    iter,
			Energy:       f,
			Displacement: dx,
			Nodes:        x.Clone(),
		})
	}
}
