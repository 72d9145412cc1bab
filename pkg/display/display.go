// Package display holds the text elements the stream viewer writes to.
package display

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Element identifiers
const (
	ConnectionStatus     = "connection-status"
	LiveTranscription    = "live-transcription"
	CleanedTranscription = "cleaned-transcription"
)

// ErrMissingElement is returned when writing to an element that does not exist
var ErrMissingElement = errors.New("display element not found")

// Elements returns the element ids every display is expected to provide
func Elements() []string {
	return []string{ConnectionStatus, LiveTranscription, CleanedTranscription}
}

// IsElement reports whether id is one of the standard elements
func IsElement(id string) bool {
	for _, e := range Elements() {
		if e == id {
			return true
		}
	}
	return false
}

// Display is a set of named text elements
type Display interface {
	// SetText replaces the text of the element with the given id
	SetText(id, text string) error
}

// Memory is an in-memory Display, safe for concurrent use
type Memory struct {
	mu       sync.RWMutex
	elements map[string]string
}

// NewMemory creates a Memory display with the given elements.
// With no ids it provides the standard three elements.
func NewMemory(ids ...string) *Memory {
	if len(ids) == 0 {
		ids = Elements()
	}
	m := &Memory{elements: make(map[string]string, len(ids))}
	for _, id := range ids {
		m.elements[id] = ""
	}
	return m
}

func (m *Memory) SetText(id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.elements[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingElement, id)
	}
	m.elements[id] = text
	return nil
}

// Text returns the current text of an element
func (m *Memory) Text(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.elements[id]
	return text, ok
}

// Snapshot returns a copy of all elements
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.elements))
	for id, text := range m.elements {
		out[id] = text
	}
	return out
}

// Writer prints every element update as an "id: text" line
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer display for the standard elements
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) SetText(id, text string) error {
	if !IsElement(id) {
		return fmt.Errorf("%w: %s", ErrMissingElement, id)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.w, "%s: %s\n", id, text)
	return err
}

// Multi fans every update out to all of its displays
type Multi []Display

// SetText writes to every display, even if an earlier one failed
func (m Multi) SetText(id, text string) error {
	var errs []error
	for _, d := range m {
		if err := d.SetText(id, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
