package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogHandlerSpy is a slog.Handler implementation that captures log records for testing.
type LogHandlerSpy struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
func NewLogHandlerSpy() *LogHandlerSpy {
	return &LogHandlerSpy{records: make([]slog.Record, 0)}
}

// Handle implements slog.Handler interface.
func (s *LogHandlerSpy) Handle(_ context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())
	return nil
}

// Enabled implements slog.Handler interface.
func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler interface.
func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

// WithGroup implements slog.Handler interface.
func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// RecordCount returns the number of captured log records.
func (s *LogHandlerSpy) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of all captured log records.
func (s *LogHandlerSpy) Records() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]slog.Record, len(s.records))
	copy(records, s.records)
	return records
}

// Messages returns the messages of all captured records, in order.
func (s *LogHandlerSpy) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]string, 0, len(s.records))
	for _, r := range s.records {
		msgs = append(msgs, r.Message)
	}
	return msgs
}

// RecordsWithMessage returns the records whose message equals msg.
func (s *LogHandlerSpy) RecordsWithMessage(msg string) []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []slog.Record
	for _, r := range s.records {
		if r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}

// IndexOf returns the position of the first record at level whose message
// contains substr, or -1.
func (s *LogHandlerSpy) IndexOf(level slog.Level, substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.Level == level && strings.Contains(r.Message, substr) {
			return i
		}
	}
	return -1
}

// Reset clears all captured log records.
func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// Attr returns the value of the attribute key, or the zero Value.
func Attr(record slog.Record, key string) slog.Value {
	var v slog.Value
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			v = attr.Value
			return false
		}
		return true
	})
	return v
}

// HasAttr reports whether record carries the attribute key.
func HasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
