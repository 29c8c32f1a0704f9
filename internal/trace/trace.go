// Package trace records the energy history of a snake fit as JSON lines.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/snakefit/internal/snake"
)

// Entry represents a single improving line search.
// Each entry is serialized as one JSON line.
type Entry struct {
	// Cycle is the steepest-descent restart the step belongs to
	Cycle int `json:"cycle"`

	// Iteration is the line-search index within the cycle
	Iteration int `json:"iteration"`

	// Energy after the step
	Energy float64 `json:"energy"`

	// Displacement is the distance travelled by the step
	Displacement float64 `json:"displacement"`

	// Timestamp records when this entry was created
	Timestamp time.Time `json:"timestamp"`

	// Nodes is the configuration after the step (optional, nil to save space)
	Nodes snake.NodeSet `json:"nodes,omitempty"`
}

// FromStep converts an optimizer step to a trace entry.
func FromStep(step snake.Step, withNodes bool) Entry {
	e := Entry{
		Cycle:        step.Cycle,
		Iteration:    step.Iteration,
		Energy:       step.Energy,
		Displacement: step.Displacement,
		Timestamp:    time.Now(),
	}
	if withNodes {
		e.Nodes = step.Nodes.Clone()
	}
	return e
}

// Writer writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewWriter creates a trace writer at path, creating parent directories.
// If append is true, new entries are appended to an existing file.
func NewWriter(path string, append bool) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends an entry. It is buffered until Flush or Close.
func (tw *Writer) Write(entry Entry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (tw *Writer) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the trace file.
func (tw *Writer) Path() string {
	return tw.path
}

// Reader reads trace entries from a JSONL stream.
type Reader struct {
	closer  io.Closer
	scanner *bufio.Scanner
}

// NewReader reads entries from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	// Lines carrying node sets can be long
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	tr := &Reader{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		tr.closer = c
	}
	return tr
}

// Open opens the trace file at path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return NewReader(file), nil
}

// Read returns the next entry or io.EOF.
func (tr *Reader) Read() (*Entry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads every remaining entry.
func (tr *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying stream if it is closable.
func (tr *Reader) Close() error {
	if tr.closer == nil {
		return nil
	}
	if err := tr.closer.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}
