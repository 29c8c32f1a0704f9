package snake

import "math"

// Node is a single control point of a contour.
// Frozen nodes never move and are excluded from gradients and directions.
// Hidden only affects display.
type Node struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Frozen bool    `json:"frozen,omitempty" yaml:"frozen,omitempty"`
	Hidden bool    `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// NodeSet is the ordered configuration of a contour.
type NodeSet []Node

// Clone returns an independent copy of the node set.
func (ns NodeSet) Clone() NodeSet {
	if ns == nil {
		return nil
	}
	out := make(NodeSet, len(ns))
	copy(out, ns)
	return out
}

// Free returns the number of nodes that are not frozen.
func (ns NodeSet) Free() int {
	n := 0
	for _, node := range ns {
		if !node.Frozen {
			n++
		}
	}
	return n
}

// Finite reports whether every coordinate is a finite number.
func (ns NodeSet) Finite() bool {
	for _, node := range ns {
		if !finite(node.X) || !finite(node.Y) {
			return false
		}
	}
	return true
}

// Vec2 is a 2D vector attached to a node (gradient or direction component).
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vector is an index-aligned sequence of per-node 2D vectors.
type Vector []Vec2

// Dot computes the dot product over all node components.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	for i := range v {
		sum += v[i].X*o[i].X + v[i].Y*o[i].Y
	}
	return sum
}

// Norm2 returns the squared Euclidean norm.
func (v Vector) Norm2() float64 {
	return v.Dot(v)
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Norm2())
}

// Finite reports whether every component is a finite number.
func (v Vector) Finite() bool {
	for _, c := range v {
		if !finite(c.X) || !finite(c.Y) {
			return false
		}
	}
	return true
}

// maskFrozen zeroes the components of frozen nodes.
func (v Vector) maskFrozen(nodes NodeSet) {
	for i := range v {
		if nodes[i].Frozen {
			v[i] = Vec2{}
		}
	}
}

// advance moves every free node by t·v in place.
func (ns NodeSet) advance(v Vector, t float64) {
	for i := range ns {
		if ns[i].Frozen {
			continue
		}
		ns[i].X += t * v[i].X
		ns[i].Y += t * v[i].Y
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
