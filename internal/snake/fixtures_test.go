package snake

import "math"

// quadContour pulls every node toward a target under the metric A:
// E = Σ dᵢᵀ A dᵢ with dᵢ = pᵢ − tᵢ.
type quadContour struct {
	nodes    NodeSet
	targets  []Vec2
	a        [2][2]float64
	analytic bool

	sets int
}

func newQuadContour(nodes NodeSet, targets []Vec2, analytic bool) *quadContour {
	return &quadContour{
		nodes:    nodes.Clone(),
		targets:  targets,
		a:        [2][2]float64{{1, 0}, {0, 1}},
		analytic: analytic,
	}
}

func (c *quadContour) Nodes() NodeSet { return c.nodes.Clone() }

func (c *quadContour) SetNodes(nodes NodeSet) {
	c.sets++
	c.nodes = nodes.Clone()
}

func (c *quadContour) Energy() float64 {
	var e float64
	for i, n := range c.nodes {
		dx, dy := n.X-c.targets[i].X, n.Y-c.targets[i].Y
		e += c.a[0][0]*dx*dx + (c.a[0][1]+c.a[1][0])*dx*dy + c.a[1][1]*dy*dy
	}
	return e
}

func (c *quadContour) EnergyGradient() (Vector, bool) {
	if !c.analytic {
		return nil, false
	}
	g := make(Vector, len(c.nodes))
	for i, n := range c.nodes {
		dx, dy := n.X-c.targets[i].X, n.Y-c.targets[i].Y
		g[i] = Vec2{
			X: 2*c.a[0][0]*dx + (c.a[0][1]+c.a[1][0])*dy,
			Y: (c.a[0][1]+c.a[1][0])*dx + 2*c.a[1][1]*dy,
		}
	}
	return g, true
}

// wavyContour is a smooth non-quadratic functional with neighbour coupling.
type wavyContour struct {
	nodes    NodeSet
	analytic bool
}

func (c *wavyContour) Nodes() NodeSet         { return c.nodes.Clone() }
func (c *wavyContour) SetNodes(nodes NodeSet) { c.nodes = nodes.Clone() }

func (c *wavyContour) Energy() float64 {
	var e float64
	for i, n := range c.nodes {
		e += math.Sin(n.X)*math.Cos(n.Y) + 0.1*(n.X*n.Y)*(n.X*n.Y)
		if i+1 < len(c.nodes) {
			dx := c.nodes[i+1].X - n.X
			dy := c.nodes[i+1].Y - n.Y
			e += 0.5 * (dx*dx + dy*dy)
		}
	}
	return e
}

func (c *wavyContour) EnergyGradient() (Vector, bool) {
	if !c.analytic {
		return nil, false
	}
	g := make(Vector, len(c.nodes))
	for i, n := range c.nodes {
		g[i].X += math.Cos(n.X)*math.Cos(n.Y) + 0.2*n.X*n.Y*n.Y
		g[i].Y += -math.Sin(n.X)*math.Sin(n.Y) + 0.2*n.X*n.X*n.Y
		if i+1 < len(c.nodes) {
			dx := c.nodes[i+1].X - n.X
			dy := c.nodes[i+1].Y - n.Y
			g[i].X -= dx
			g[i].Y -= dy
			g[i+1].X += dx
			g[i+1].Y += dy
		}
	}
	return g, true
}

// cancelAfter clears the token from inside the n-th energy evaluation.
type cancelAfter struct {
	Contour
	token *CancellationToken
	n     int
	calls int
}

func (c *cancelAfter) Energy() float64 {
	c.calls++
	if c.calls == c.n {
		c.token.Cancel()
	}
	return c.Contour.Energy()
}

// brokenContour misbehaves in configurable ways.
type brokenContour struct {
	nodes    NodeSet
	energy   float64
	gradient Vector
}

func (c *brokenContour) Nodes() NodeSet         { return c.nodes.Clone() }
func (c *brokenContour) SetNodes(nodes NodeSet) { c.nodes = nodes.Clone() }
func (c *brokenContour) Energy() float64        { return c.energy }
func (c *brokenContour) EnergyGradient() (Vector, bool) {
	return c.gradient, c.gradient != nil
}
