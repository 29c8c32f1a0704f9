package snake

import (
	"fmt"
	"math"
)

// Outcome distinguishes a completed evaluation from a cancelled one.
type Outcome int

const (
	Done Outcome = iota
	Cancelled
)

func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "done"
}

var (
	// sqrtEps is the square root of float64 machine epsilon. It serves as the
	// finite-difference step, the initial line-search step, the relative
	// Brent tolerance and the convergence threshold.
	sqrtEps = math.Sqrt(0x1p-52)
)

// evaluator is the only code that talks to the contour during a run. Each
// call bundles a configuration with the query and polls the token right
// after the contour has been used.
type evaluator struct {
	contour Contour
	token   *CancellationToken
	stats   *Stats
	work    NodeSet
}

func newEvaluator(c Contour, token *CancellationToken, stats *Stats) *evaluator {
	return &evaluator{contour: c, token: token, stats: stats}
}

// energy evaluates the contour at nodes. Non-finite energies are reported as
// +Inf so that comparisons in the line search reject the point.
func (e *evaluator) energy(nodes NodeSet) (float64, Outcome) {
	e.contour.SetNodes(nodes)
	f := e.contour.Energy()
	e.stats.Evaluations++
	if !e.token.Active() {
		return 0, Cancelled
	}
	if math.IsNaN(f) {
		f = math.Inf(1)
	}
	return f, Done
}

// along evaluates the energy at x + t·v.
func (e *evaluator) along(x NodeSet, v Vector, t float64) (float64, Outcome) {
	if len(e.work) != len(x) {
		e.work = make(NodeSet, len(x))
	}
	copy(e.work, x)
	e.work.advance(v, t)
	return e.energy(e.work)
}

// gradient returns the energy gradient at x with frozen components zeroed.
// The analytic gradient is used when the contour offers one; otherwise a
// central finite difference is taken over free nodes. The contour is left at
// the last evaluated configuration.
func (e *evaluator) gradient(x NodeSet) (Vector, Outcome, error) {
	e.stats.Gradients++
	e.contour.SetNodes(x)
	if !e.token.Active() {
		return nil, Cancelled, nil
	}

	if g, ok := e.contour.EnergyGradient(); ok {
		if len(g) != len(x) {
			return nil, Done, fmt.Errorf("got %d components for %d nodes: %w", len(g), len(x), ErrGradientLength)
		}
		out := make(Vector, len(g))
		copy(out, g)
		out.maskFrozen(x)
		if !out.Finite() {
			return nil, Done, ErrNonFiniteGradient
		}
		return out, Done, nil
	}

	g := make(Vector, len(x))
	probe := x.Clone()
	h := sqrtEps
	for i := range probe {
		if probe[i].Frozen {
			continue
		}

		x0 := probe[i].X
		probe[i].X = x0 + h
		fp, out := e.energy(probe)
		if out == Cancelled {
			return nil, Cancelled, nil
		}
		probe[i].X = x0 - h
		fm, out := e.energy(probe)
		if out == Cancelled {
			return nil, Cancelled, nil
		}
		probe[i].X = x0
		g[i].X = (fp - fm) / (2 * h)

		y0 := probe[i].Y
		probe[i].Y = y0 + h
		fp, out = e.energy(probe)
		if out == Cancelled {
			return nil, Cancelled, nil
		}
		probe[i].Y = y0 - h
		fm, out = e.energy(probe)
		if out == Cancelled {
			return nil, Cancelled, nil
		}
		probe[i].Y = y0
		g[i].Y = (fp - fm) / (2 * h)
	}
	if !g.Finite() {
		return nil, Done, ErrNonFiniteGradient
	}
	return g, Done, nil
}

// validate rejects contours that break the contract before any optimization
// starts: empty or non-finite configurations, non-finite energy, and analytic
// gradients of the wrong length. It returns the initial energy.
func validate(c Contour, nodes NodeSet) (float64, error) {
	if len(nodes) == 0 {
		return 0, ErrEmptyContour
	}
	if !nodes.Finite() {
		return 0, ErrNonFiniteNode
	}
	c.SetNodes(nodes)
	f := c.Energy()
	if !finite(f) {
		return 0, fmt.Errorf("initial energy %v: %w", f, ErrNonFiniteEnergy)
	}
	if g, ok := c.EnergyGradient(); ok {
		if len(g) != len(nodes) {
			return 0, fmt.Errorf("got %d components for %d nodes: %w", len(g), len(nodes), ErrGradientLength)
		}
		masked := make(Vector, len(g))
		copy(masked, g)
		masked.maskFrozen(nodes)
		if !masked.Finite() {
			return 0, ErrNonFiniteGradient
		}
	}
	return f, nil
}
