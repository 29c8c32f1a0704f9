package fit

import (
	"log/slog"
	"math"

	"github.com/cwbudde/snakefit/internal/opt"
	"github.com/cwbudde/snakefit/internal/snake"
)

// PreSearchConfig configures the global search that seeds the conjugate
// gradient refinement.
type PreSearchConfig struct {
	Enabled bool
	Iters   int
	PopSize int
	Seed    int64

	// Margin widens the search box around the initial nodes by this
	// fraction of the box's larger side.
	Margin float64
}

// DefaultPreSearchConfig returns a disabled pre-search with usable settings.
func DefaultPreSearchConfig() PreSearchConfig {
	return PreSearchConfig{
		Iters:   50,
		PopSize: opt.MinPopulation,
		Seed:    42,
		Margin:  0.5,
	}
}

// searchBox returns per-coordinate bounds for the free nodes, packed as
// x0, y0, x1, y1, ...
func searchBox(nodes snake.NodeSet, margin float64) (lower, upper []float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	pad := margin * math.Max(math.Max(maxX-minX, maxY-minY), 1)

	for _, n := range nodes {
		if n.Frozen {
			continue
		}
		lower = append(lower, minX-pad, minY-pad)
		upper = append(upper, maxX+pad, maxY+pad)
	}
	return lower, upper
}

// unpack writes packed free-node coordinates into a copy of base.
func unpack(base snake.NodeSet, params []float64) snake.NodeSet {
	out := base.Clone()
	j := 0
	for i := range out {
		if out[i].Frozen {
			continue
		}
		out[i].X, out[i].Y = params[j], params[j+1]
		j += 2
	}
	return out
}

// PreSearch runs a derivative-free global search over the free-node
// coordinates and returns the best configuration found with its energy.
// ok is false when the search found nothing better than the start. The
// token is polled after every evaluation; once cleared, the remaining
// evaluations return +Inf without touching the contour.
func PreSearch(c snake.Contour, nodes snake.NodeSet, optimizer opt.Optimizer, margin float64, token *snake.CancellationToken) (best snake.NodeSet, energy float64, ok bool) {
	c.SetNodes(nodes)
	start := c.Energy()
	if nodes.Free() == 0 {
		return nodes.Clone(), start, false
	}

	lower, upper := searchBox(nodes, margin)
	evals := 0
	eval := func(params []float64) float64 {
		if !token.Active() {
			return math.Inf(1)
		}
		c.SetNodes(unpack(nodes, params))
		evals++
		return c.Energy()
	}

	params, energy := optimizer.Run(eval, lower, upper, len(lower))
	slog.Info("Pre-search complete",
		"evaluations", evals,
		"start_energy", start,
		"best_energy", energy,
	)

	if !token.Active() || math.IsNaN(energy) || energy >= start {
		return nodes.Clone(), start, false
	}
	return unpack(nodes, params), energy, true
}
