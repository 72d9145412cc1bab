package history

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"example.com/stream_viewer/pkg/transcript"
)

// DefaultLimit is the number of entries kept when no limit is given
const DefaultLimit = 100

// Entry is one finalized transcription
type Entry struct {
	Transcription        string    `json:"transcription"`
	CleanedTranscription string    `json:"cleaned_transcription"`
	Timestamp            time.Time `json:"timestamp"`
}

// Store keeps the most recent final transcriptions in memory
type Store struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry
}

// New creates a Store holding at most limit entries
func New(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit}
}

// Record appends a transcription, dropping the oldest entry when full
func (s *Store) Record(msg transcript.Message, at time.Time) Entry {
	entry := entryFrom(msg)
	entry.Timestamp = at

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.limit {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, entry)
	return entry
}

// entryFrom maps the transcription fields of a message onto an Entry
func entryFrom(msg transcript.Message) Entry {
	var entry Entry
	if err := copier.Copy(&entry, &msg); err != nil {
		return Entry{
			Transcription:        msg.Transcription,
			CleanedTranscription: msg.CleanedTranscription,
		}
	}
	return entry
}

// List returns the entries oldest first
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Limit returns the capacity of the store
func (s *Store) Limit() int {
	return s.limit
}
