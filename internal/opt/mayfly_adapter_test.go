package opt

import (
	"math"
	"testing"
)

// Sphere function shifted to (1, -2, 3)
func shiftedSphere(x []float64) float64 {
	centre := []float64{1, -2, 3}
	var sum float64
	for i, v := range x {
		d := v - centre[i]
		sum += d * d
	}
	return sum
}

func TestMayflyAdapterOnShiftedSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42) // maxIters, popSize, seed

	dim := 3
	lower := []float64{-10, -10, 0}
	upper := []float64{10, 5, 20}

	best, cost := optimizer.Run(shiftedSphere, lower, upper, dim)

	if len(best) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(best))
	}

	if cost > 0.5 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}

	for i, v := range best {
		if v < lower[i] || v > upper[i] {
			t.Errorf("Parameter %d = %f outside [%f, %f]", i, v, lower[i], upper[i])
		}
	}

	if math.Abs(best[0]-1) > 1.0 || math.Abs(best[1]+2) > 1.0 || math.Abs(best[2]-3) > 1.0 {
		t.Errorf("Best %v not near (1, -2, 3)", best)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	dim := 2
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	optimizer1 := NewMayfly(50, 20, 123)
	_, cost1 := optimizer1.Run(shiftedSphere, lower, upper, dim)

	optimizer2 := NewMayfly(50, 20, 123)
	_, cost2 := optimizer2.Run(shiftedSphere, lower, upper, dim)

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestNewMayflyRaisesPopulation(t *testing.T) {
	m := NewMayfly(10, 5, 1)
	if m.popSize != MinPopulation {
		t.Errorf("Expected population %d, got %d", MinPopulation, m.popSize)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-0.5, 0},
		{0.25, 0.25},
		{1.5, 1},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
