package contour

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/snakefit/internal/snake"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of a contour description.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension; anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// File describes a target contour on disk.
type File struct {
	Nodes   snake.NodeSet `json:"nodes" yaml:"nodes"`
	Targets []snake.Vec2  `json:"targets" yaml:"targets"`

	// Attraction weights the pull toward targets. Zero means 1.
	Attraction float64 `json:"attraction,omitempty" yaml:"attraction,omitempty"`

	// Elasticity weights the squared edge lengths.
	Elasticity float64 `json:"elasticity,omitempty" yaml:"elasticity,omitempty"`

	// Closed adds an edge from the last node back to the first.
	Closed bool `json:"closed,omitempty" yaml:"closed,omitempty"`

	// Numeric hides the analytic gradient so the optimizer differentiates
	// the energy numerically.
	Numeric bool `json:"numeric,omitempty" yaml:"numeric,omitempty"`
}

// ValidationError reports an invalid field of a contour description.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// Validate checks the description before it is turned into a contour.
func (f *File) Validate() error {
	if len(f.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Reason: "cannot be empty"}
	}
	if len(f.Targets) != len(f.Nodes) {
		return &ValidationError{
			Field:  "targets",
			Reason: fmt.Sprintf("length mismatch: got %d targets for %d nodes", len(f.Targets), len(f.Nodes)),
		}
	}
	if !f.Nodes.Finite() {
		return &ValidationError{Field: "nodes", Reason: "must be finite"}
	}
	for i, t := range f.Targets {
		if math.IsNaN(t.X) || math.IsNaN(t.Y) || math.IsInf(t.X, 0) || math.IsInf(t.Y, 0) {
			return &ValidationError{Field: fmt.Sprintf("targets[%d]", i), Reason: "must be finite"}
		}
	}
	if f.Attraction < 0 {
		return &ValidationError{Field: "attraction", Reason: "cannot be negative"}
	}
	if f.Elasticity < 0 {
		return &ValidationError{Field: "elasticity", Reason: "cannot be negative"}
	}
	return nil
}

// Build validates the description and creates the contour.
func (f *File) Build() (*Targets, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	attraction := f.Attraction
	if attraction == 0 {
		attraction = 1
	}
	return NewTargets(f.Nodes, f.Targets, attraction, f.Elasticity, f.Closed, !f.Numeric), nil
}

// Parse decodes a contour description.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode yaml contour: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode json contour: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown contour format: %s", format)
	}
	return &f, nil
}

// Load reads a contour description from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contour: %w", err)
	}
	return Parse(data, FormatFor(path))
}

// Marshal encodes the description.
func (f *File) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	default:
		return nil, fmt.Errorf("unknown contour format: %s", format)
	}
}

// Save writes the description to path using a temp file and rename.
func (f *File) Save(path string) error {
	data, err := f.Marshal(FormatFor(path))
	if err != nil {
		return fmt.Errorf("failed to encode contour: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp contour file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename contour file: %w", err)
	}
	return nil
}
