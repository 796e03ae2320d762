package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ricesearch/relevance/internal/pkg/errors"
)

// LoggedEvent is one line of the event log.
type LoggedEvent struct {
	Topic    string    `json:"topic"`
	LoggedAt time.Time `json:"logged_at"`
	Event    Event     `json:"event"`
}

// EventLog appends published events to a JSON-lines file. It is the audit
// trail for weight changes and evaluation runs, and the source for replay.
type EventLog struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// OpenEventLog opens path for appending, creating it and its directory.
func OpenEventLog(path string) (*EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &EventLog{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the file the log appends to.
func (l *EventLog) Path() string { return l.path }

// Append writes one entry.
func (l *EventLog) Append(topic string, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return errors.New(errors.CodeUnavailable, "event log is closed")
	}
	if err := l.enc.Encode(LoggedEvent{Topic: topic, LoggedAt: time.Now().UTC(), Event: event}); err != nil {
		return fmt.Errorf("appending to event log: %w", err)
	}
	return nil
}

// Close closes the file. Further appends fail.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f, l.enc = nil, nil
	return err
}

// LogFilter selects entries from an event log. Zero fields match all.
type LogFilter struct {
	Since time.Time
	Topic string
	Limit int
}

func (f LogFilter) match(e LoggedEvent) bool {
	if f.Topic != "" && e.Topic != f.Topic {
		return false
	}
	return f.Since.IsZero() || e.LoggedAt.After(f.Since)
}

// maxLogLine bounds a single entry; evaluation reports are the largest.
const maxLogLine = 4 << 20

// ReadEventLog returns the entries of the log at path that pass f, oldest
// first. A missing file is an empty log. Malformed lines are skipped.
func ReadEventLog(path string, f LogFilter) ([]LoggedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer file.Close()

	entries := []LoggedEvent{}
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), maxLogLine)
	for sc.Scan() {
		var e LoggedEvent
		if json.Unmarshal(sc.Bytes(), &e) != nil || !f.match(e) {
			continue
		}
		entries = append(entries, e)
		if f.Limit > 0 && len(entries) >= f.Limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return entries, nil
}

// Replay republishes entries on target in order and returns how many were
// sent before the first failure.
func Replay(ctx context.Context, target Bus, entries []LoggedEvent) (int, error) {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := target.Publish(ctx, e.Topic, e.Event); err != nil {
			return i, fmt.Errorf("replaying event %s: %w", e.Event.ID, err)
		}
	}
	return len(entries), nil
}
