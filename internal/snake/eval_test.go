package snake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradient_FiniteDifferenceAgreesWithAnalytic(t *testing.T) {
	configs := []NodeSet{
		{{X: 0.3, Y: 0.2}, {X: 1.1, Y: -0.4}, {X: 2, Y: 0.9}},
		{{X: -1.5, Y: 2.5}, {X: 0, Y: 0}, {X: 0.7, Y: -1.2}, {X: 3, Y: 3}},
	}

	for _, nodes := range configs {
		var sa, sn Stats
		analytic := newEvaluator(&wavyContour{nodes: nodes, analytic: true}, NewCancellationToken(), &sa)
		numeric := newEvaluator(&wavyContour{nodes: nodes}, NewCancellationToken(), &sn)

		ga, out, err := analytic.gradient(nodes)
		require.NoError(t, err)
		require.Equal(t, Done, out)
		gn, out, err := numeric.gradient(nodes)
		require.NoError(t, err)
		require.Equal(t, Done, out)

		for i := range nodes {
			assert.InDelta(t, ga[i].X, gn[i].X, 1e-5, "node %d x", i)
			assert.InDelta(t, ga[i].Y, gn[i].Y, 1e-5, "node %d y", i)
		}
		assert.Equal(t, 4*len(nodes), sn.Evaluations)
		assert.Zero(t, sa.Evaluations)
	}
}

func TestGradient_FrozenComponentsAreZero(t *testing.T) {
	nodes := NodeSet{{X: 0.3, Y: 0.2, Frozen: true}, {X: 1.1, Y: -0.4}, {X: 2, Y: 0.9, Frozen: true}}

	for _, analytic := range []bool{true, false} {
		var stats Stats
		e := newEvaluator(&wavyContour{nodes: nodes, analytic: analytic}, NewCancellationToken(), &stats)

		g, _, err := e.gradient(nodes)
		require.NoError(t, err)
		assert.Equal(t, Vec2{}, g[0])
		assert.Equal(t, Vec2{}, g[2])
		assert.NotEqual(t, Vec2{}, g[1])
		if !analytic {
			assert.Equal(t, 4, stats.Evaluations, "frozen nodes cost no evaluations")
		}
	}
}

func TestGradient_Cancelled(t *testing.T) {
	nodes := NodeSet{{X: 0, Y: 0}, {X: 1, Y: 1}}
	token := NewCancellationToken()
	c := &cancelAfter{Contour: &wavyContour{nodes: nodes}, token: token, n: 3}

	var stats Stats
	g, out, err := newEvaluator(c, token, &stats).gradient(nodes)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, out)
	assert.Nil(t, g)
	assert.Equal(t, 3, c.calls)
}
