package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/snakefit/internal/contour"
	"github.com/cwbudde/snakefit/internal/snake"
	"github.com/cwbudde/snakefit/internal/trace"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContour(t *testing.T, name string) string {
	t.Helper()
	f := &contour.File{
		Nodes: snake.NodeSet{
			{X: 0.3, Y: -0.2}, {X: 1.2, Y: 0.3}, {X: 0.8, Y: 1.4, Frozen: true}, {X: -0.1, Y: 0.7},
		},
		Targets:    []snake.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Elasticity: 0.2,
		Closed:     true,
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.Save(path))
	return path
}

func TestFitFile(t *testing.T) {
	path := writeContour(t, "square.yaml")

	file, result, err := fitFile(context.Background(), runOptions{contourPath: path})
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Less(t, result.Energy, result.InitialEnergy)
	assert.Len(t, file.Nodes, 4)
	// Frozen node stays put
	assert.Equal(t, file.Nodes[2], result.Nodes[2])
}

func TestFitFile_Interrupted(t *testing.T) {
	path := writeContour(t, "square.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, result, err := fitFile(ctx, runOptions{contourPath: path})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.False(t, result.Converged)
	assert.True(t, result.Nodes.Finite())
}

func TestFitFile_Errors(t *testing.T) {
	_, _, err := fitFile(context.Background(), runOptions{contourPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	bad := &contour.File{Nodes: snake.NodeSet{{X: 0, Y: 0}}}
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, bad.Save(path))

	_, _, err = fitFile(context.Background(), runOptions{contourPath: path})
	var verr *contour.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRunFit_WritesOutputAndTrace(t *testing.T) {
	path := writeContour(t, "square.yaml")
	dir := t.TempDir()
	opts := runOptions{
		contourPath: path,
		outPath:     filepath.Join(dir, "fitted.json"),
		tracePath:   filepath.Join(dir, "trace", "fit.jsonl"),
		traceNodes:  true,
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runFit(context.Background(), cmd, opts))
	assert.True(t, strings.HasPrefix(out.String(), "converged:"), out.String())
	assert.Contains(t, out.String(), "Wrote "+opts.outPath)

	fitted, err := contour.Load(opts.outPath)
	require.NoError(t, err)
	original, err := contour.Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Targets, fitted.Targets)
	assert.NotEqual(t, original.Nodes, fitted.Nodes)

	reader, err := trace.Open(opts.tracePath)
	require.NoError(t, err)
	defer reader.Close()
	entries, err := reader.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i].Energy, entries[i-1].Energy)
	}
	assert.Len(t, entries[len(entries)-1].Nodes, 4)
}

func TestRunOptions_FitConfig(t *testing.T) {
	cfg := runOptions{}.fitConfig()
	assert.False(t, cfg.PreSearch.Enabled)
	assert.False(t, cfg.Convergence.Enabled)

	cfg = runOptions{
		maxCycles:      3,
		preSearch:      true,
		preSearchIters: 7,
		popSize:        25,
		seed:           9,
		patience:       4,
		threshold:      1e-3,
	}.fitConfig()
	assert.Equal(t, 3, cfg.MaxCycles)
	assert.True(t, cfg.PreSearch.Enabled)
	assert.Equal(t, 7, cfg.PreSearch.Iters)
	assert.Equal(t, 25, cfg.PreSearch.PopSize)
	assert.Equal(t, int64(9), cfg.PreSearch.Seed)
	assert.True(t, cfg.Convergence.Enabled)
	assert.Equal(t, 4, cfg.Convergence.Patience)
	assert.Equal(t, 1e-3, cfg.Convergence.Threshold)
}
