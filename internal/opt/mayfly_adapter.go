package opt

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinPopulation is the smallest population the mayfly library accepts.
const MinPopulation = 20

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter. Population sizes below
// MinPopulation are raised to it.
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  max(popSize, MinPopulation),
		seed:     seed,
	}
}

// Run executes the Mayfly optimization using the external library.
//
// The library only supports one scalar bound for every dimension, so the
// search runs on the unit cube and each coordinate is mapped onto its own
// [lower[i], upper[i]] before eval sees it.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	scaled := make([]float64, dim)
	denormalize := func(unit []float64) []float64 {
		out := make([]float64, dim)
		for i := 0; i < dim; i++ {
			out[i] = lower[i] + clamp01(unit[i])*(upper[i]-lower[i])
		}
		return out
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(unit []float64) float64 {
		for i := 0; i < dim; i++ {
			scaled[i] = lower[i] + clamp01(unit[i])*(upper[i]-lower[i])
		}
		cost := eval(scaled)
		if math.IsNaN(cost) {
			return math.Inf(1)
		}
		return cost
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Fall back to the box centre if the library rejects the setup
		slog.Warn("Mayfly optimization failed", "error", err)
		centre := make([]float64, dim)
		for i := range centre {
			centre[i] = 0.5
		}
		best := denormalize(centre)
		return best, eval(best)
	}

	best := denormalize(result.GlobalBest.Position)
	return best, result.GlobalBest.Cost
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
