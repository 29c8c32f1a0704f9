// Package opt wraps derivative-free global optimizers behind a flat-vector
// interface. The snake pipeline uses it to pick a starting configuration
// before the conjugate-gradient refinement.
package opt

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes eval over the box [lower, upper] of dimension dim and
	// returns the best parameters and their cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
