// Package contour provides reference contours for the snake optimizer: nodes
// attracted to fixed targets and held together by an elastic term.
package contour

import "github.com/cwbudde/snakefit/internal/snake"

// Targets pulls every node toward its target and penalizes stretched edges:
//
//	E = attraction·Σ|pᵢ − tᵢ|² + elasticity·Σ|pⱼ − pᵢ|²
//
// where the second sum runs over consecutive nodes (and the closing edge when
// Closed is set).
type Targets struct {
	nodes      snake.NodeSet
	targets    []snake.Vec2
	attraction float64
	elasticity float64
	closed     bool
	analytic   bool
}

// NewTargets creates a target contour. With analytic=false EnergyGradient
// reports no gradient and the optimizer falls back to finite differences.
func NewTargets(nodes snake.NodeSet, targets []snake.Vec2, attraction, elasticity float64, closed, analytic bool) *Targets {
	return &Targets{
		nodes:      nodes.Clone(),
		targets:    append([]snake.Vec2(nil), targets...),
		attraction: attraction,
		elasticity: elasticity,
		closed:     closed,
		analytic:   analytic,
	}
}

// Nodes returns a copy of the current configuration.
func (t *Targets) Nodes() snake.NodeSet {
	return t.nodes.Clone()
}

// SetNodes replaces the current configuration.
func (t *Targets) SetNodes(nodes snake.NodeSet) {
	t.nodes = nodes.Clone()
}

// Targets returns the attraction points.
func (t *Targets) Targets() []snake.Vec2 {
	return append([]snake.Vec2(nil), t.targets...)
}

func (t *Targets) edges(fn func(i, j int)) {
	n := len(t.nodes)
	for i := 0; i+1 < n; i++ {
		fn(i, i+1)
	}
	if t.closed && n > 2 {
		fn(n-1, 0)
	}
}

// Energy evaluates the current configuration.
func (t *Targets) Energy() float64 {
	var e float64
	for i, p := range t.nodes {
		dx, dy := p.X-t.targets[i].X, p.Y-t.targets[i].Y
		e += t.attraction * (dx*dx + dy*dy)
	}
	t.edges(func(i, j int) {
		dx := t.nodes[j].X - t.nodes[i].X
		dy := t.nodes[j].Y - t.nodes[i].Y
		e += t.elasticity * (dx*dx + dy*dy)
	})
	return e
}

// EnergyGradient returns the analytic gradient when enabled.
func (t *Targets) EnergyGradient() (snake.Vector, bool) {
	if !t.analytic {
		return nil, false
	}
	g := make(snake.Vector, len(t.nodes))
	for i, p := range t.nodes {
		g[i].X = 2 * t.attraction * (p.X - t.targets[i].X)
		g[i].Y = 2 * t.attraction * (p.Y - t.targets[i].Y)
	}
	t.edges(func(i, j int) {
		dx := t.nodes[j].X - t.nodes[i].X
		dy := t.nodes[j].Y - t.nodes[i].Y
		g[i].X -= 2 * t.elasticity * dx
		g[i].Y -= 2 * t.elasticity * dy
		g[j].X += 2 * t.elasticity * dx
		g[j].Y += 2 * t.elasticity * dy
	})
	return g, true
}
