package snake

import "errors"

// Contract violations detected before (or, for gradients, during) a run.
// Check with errors.Is.
var (
	ErrEmptyContour      = errors.New("snake: contour has no nodes")
	ErrNonFiniteNode     = errors.New("snake: node coordinate is not finite")
	ErrNonFiniteEnergy   = errors.New("snake: energy is not finite")
	ErrGradientLength    = errors.New("snake: gradient length differs from node count")
	ErrNonFiniteGradient = errors.New("snake: gradient is not finite")
)
