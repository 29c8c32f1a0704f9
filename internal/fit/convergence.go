package fit

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines when a fit is considered stalled
type ConvergenceConfig struct {
	// Enabled controls whether stall detection is active
	Enabled bool

	// Patience is the number of consecutive improving steps without a
	// significant energy decrease before the fit is stopped
	Patience int

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (lastSignificant - energy) / max(|lastSignificant|, AbsFloor)
	Threshold float64

	// AbsFloor keeps the relative improvement defined when energies approach zero
	AbsFloor float64
}

// DefaultConvergenceConfig returns sensible defaults for stall detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  10,
		Threshold: 1e-6,
		AbsFloor:  1e-12,
	}
}

// DisabledConvergenceConfig returns a config with stall detection disabled.
// The optimizer then stops only on its own convergence tests.
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker keeps the running best energy of a session and detects
// stalls. The best energy is tracked even when detection is disabled.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestEnergy      float64
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestEnergy:      math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new energy and returns true if the fit has stalled
func (c *ConvergenceTracker) Update(energy float64) bool {
	c.history = append(c.history, energy)
	if energy < c.bestEnergy {
		c.bestEnergy = energy
	}

	if !c.config.Enabled {
		return false
	}

	if len(c.history) == 1 {
		c.lastSignificant = energy
		return false
	}

	scale := math.Max(math.Abs(c.lastSignificant), c.config.AbsFloor)
	improvement := (c.lastSignificant - energy) / scale

	if improvement >= c.config.Threshold {
		c.lastSignificant = energy
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant energy improvement",
		"energy", energy,
		"last_significant", c.lastSignificant,
		"relative_improvement", improvement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Fit stalled - stopping early",
			"stale_count", c.staleCount,
			"best_energy", c.bestEnergy,
		)
		return true
	}
	return false
}

// BestEnergy returns the lowest energy seen so far
func (c *ConvergenceTracker) BestEnergy() float64 {
	return c.bestEnergy
}

// History returns a copy of every recorded energy
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of steps without significant improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.history = nil
	c.bestEnergy = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
