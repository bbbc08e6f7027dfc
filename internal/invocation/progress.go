package invocation

import (
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// MaxLogEntries caps the number of entries a ProgressLog keeps.
	MaxLogEntries = 1000
	// MaxLogMessageSize caps a single message in bytes.
	MaxLogMessageSize = 4096
)

// LogEntry is one message written by the script.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Counts tallies records the script reported through batch operations.
type Counts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// RecordOp names a batch operation.
type RecordOp int

const (
	OpSave RecordOp = iota
	OpUpdate
	OpDelete
)

// Snapshot is a point-in-time copy of a ProgressLog.
type Snapshot struct {
	Counts  Counts     `json:"counts"`
	Logs    []LogEntry `json:"logs"`
	Dropped int        `json:"dropped,omitempty"`
}

// ProgressLog collects the script's log output and record counts. It is safe
// for concurrent use: a timed-out script may still be writing while the
// engine reads.
type ProgressLog struct {
	mu      sync.Mutex
	entries []LogEntry
	dropped int
	counts  Counts
	now     func() time.Time
}

// NewProgressLog creates an empty log.
func NewProgressLog() *ProgressLog {
	return &ProgressLog{now: time.Now}
}

// Log appends a message. Past MaxLogEntries messages are counted as dropped.
func (p *ProgressLog) Log(level, message string) {
	if len(message) > MaxLogMessageSize {
		message = truncate(message, MaxLogMessageSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) >= MaxLogEntries {
		p.dropped++
		return
	}
	p.entries = append(p.entries, LogEntry{Level: level, Message: message, Time: p.now()})
}

// Record adds n to the counter for op. Non-positive n is ignored.
func (p *ProgressLog) Record(op RecordOp, n int) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch op {
	case OpSave:
		p.counts.Added += n
	case OpUpdate:
		p.counts.Updated += n
	case OpDelete:
		p.counts.Deleted += n
	}
}

// Counts returns the current counters.
func (p *ProgressLog) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// Entries returns a copy of the log entries.
func (p *ProgressLog) Entries() []LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LogEntry(nil), p.entries...)
}

// Snapshot copies the whole log.
func (p *ProgressLog) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Counts:  p.counts,
		Logs:    append([]LogEntry{}, p.entries...),
		Dropped: p.dropped,
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
