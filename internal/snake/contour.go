// Package snake fits deformable contours by nonlinear conjugate-gradient
// descent over node coordinates.
//
// The energy functional is supplied by the contour. The optimizer owns the
// contour for the duration of a run and is the only caller of SetNodes,
// Energy and EnergyGradient, so every evaluation is a (SetNodes, read) pair
// that never interleaves with another caller.
package snake

// Contour is the capability contract consumed by the optimizer.
type Contour interface {
	// Nodes returns the current configuration.
	Nodes() NodeSet

	// SetNodes establishes the configuration that subsequent Energy and
	// EnergyGradient calls evaluate.
	SetNodes(nodes NodeSet)

	// Energy evaluates the last configuration passed to SetNodes.
	// It must be deterministic and finite for any configuration the
	// optimizer may pass.
	Energy() float64

	// EnergyGradient returns the analytic gradient of the last configuration
	// passed to SetNodes. ok=false selects the finite-difference fallback.
	EnergyGradient() (gradient Vector, ok bool)
}
