package contour

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/snakefit/internal/snake"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlContour = `
nodes:
  - {x: 0, y: 0}
  - {x: 5, y: 5, frozen: true}
targets:
  - {x: 3, y: 4}
  - {x: 8, y: 9}
elasticity: 0.1
numeric: true
`

const jsonContour = `{
  "nodes": [{"x": 0, "y": 0}, {"x": 5, "y": 5, "frozen": true}],
  "targets": [{"x": 3, "y": 4}, {"x": 8, "y": 9}],
  "elasticity": 0.1,
  "numeric": true
}`

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"a.yaml":  FormatYAML,
		"a.YML":   FormatYAML,
		"a.json":  FormatJSON,
		"contour": FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestParse_JSONAndYAMLAgree(t *testing.T) {
	fy, err := Parse([]byte(yamlContour), FormatYAML)
	require.NoError(t, err)
	fj, err := Parse([]byte(jsonContour), FormatJSON)
	require.NoError(t, err)

	if d := cmp.Diff(fj, fy); d != "" {
		t.Errorf("yaml and json differ (-json +yaml):\n%s", d)
	}
	assert.True(t, fy.Nodes[1].Frozen)
	assert.True(t, fy.Numeric)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{"), FormatJSON)
	assert.Error(t, err)
	_, err = Parse([]byte("nodes: [unclosed"), FormatYAML)
	assert.Error(t, err)
	_, err = Parse([]byte("{}"), Format("toml"))
	assert.Error(t, err)
}

func TestFile_Validate(t *testing.T) {
	valid := func() *File {
		return &File{
			Nodes:   snake.NodeSet{{X: 0, Y: 0}},
			Targets: []snake.Vec2{{X: 1, Y: 1}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*File)
		field  string
	}{
		{"no nodes", func(f *File) { f.Nodes = nil }, "nodes"},
		{"target count", func(f *File) { f.Targets = nil }, "targets"},
		{"negative attraction", func(f *File) { f.Attraction = -1 }, "attraction"},
		{"negative elasticity", func(f *File) { f.Elasticity = -1 }, "elasticity"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(f)

			err := f.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestFile_BuildDefaults(t *testing.T) {
	f, err := Parse([]byte(jsonContour), FormatJSON)
	require.NoError(t, err)

	c, err := f.Build()
	require.NoError(t, err)

	_, ok := c.EnergyGradient()
	assert.False(t, ok, "numeric files hide the analytic gradient")
	assert.Equal(t, 1.0, c.attraction)
}

func TestFile_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	f, err := Parse([]byte(yamlContour), FormatYAML)
	require.NoError(t, err)

	for _, name := range []string{"out.json", "out.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, f.Save(path))

		_, err := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temp file left behind")

		loaded, err := Load(path)
		require.NoError(t, err)
		if d := cmp.Diff(f, loaded); d != "" {
			t.Errorf("%s round trip mismatch (-want +got):\n%s", name, d)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
