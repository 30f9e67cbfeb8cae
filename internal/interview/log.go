package interview

import (
	"sync"
	"time"
)

// Log is the append-only transcript store for one interview session. Entries
// keep their insertion order; nothing is ever reordered or deduplicated.
type Log struct {
	mu      sync.RWMutex
	entries []TranscriptEntry
}

func NewLog() *Log {
	return &Log{}
}

// Append records one utterance and returns the stored entry. A zero timestamp
// is stamped at append time; entries arriving with a timestamp keep it.
func (l *Log) Append(entry TranscriptEntry) TranscriptEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return entry
}

// Snapshot returns a copy of the transcript. Callers may hand the copy to
// persistence or analysis without racing further appends.
func (l *Log) Snapshot() []TranscriptEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]TranscriptEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
