package helper

import (
	"strings"
	"sync"
)

// Log levels as captured by the LoggerSpy.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// SpyLogEntry is one captured log call.
type SpyLogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// LoggerSpy is a Logger implementation that captures log calls for
// assertions in tests.
type LoggerSpy struct {
	mu      sync.Mutex
	entries []SpyLogEntry
}

// NewLoggerSpy creates a new LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

// Debug implements the Logger interface.
func (s *LoggerSpy) Debug(msg string, args ...any) {
	s.capture(LevelDebug, msg, args)
}

// Info implements the Logger interface.
func (s *LoggerSpy) Info(msg string, args ...any) {
	s.capture(LevelInfo, msg, args)
}

// Warn implements the Logger interface.
func (s *LoggerSpy) Warn(msg string, args ...any) {
	s.capture(LevelWarn, msg, args)
}

// Error implements the Logger interface.
func (s *LoggerSpy) Error(msg string, args ...any) {
	s.capture(LevelError, msg, args)
}

func (s *LoggerSpy) capture(level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	argsCopy := make([]any, len(args))
	copy(argsCopy, args)

	s.entries = append(s.entries, SpyLogEntry{Level: level, Msg: msg, Args: argsCopy})
}

// Entries returns a copy of all captured log entries.
func (s *LoggerSpy) Entries() []SpyLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]SpyLogEntry, len(s.entries))
	copy(entries, s.entries)

	return entries
}

// HasEntryContaining reports whether any captured message at the given
// level contains the substring.
func (s *LoggerSpy) HasEntryContaining(level, substring string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.Level == level && strings.Contains(entry.Msg, substring) {
			return true
		}
	}

	return false
}

// CountEntriesContaining counts captured messages at the given level that
// contain the substring.
func (s *LoggerSpy) CountEntriesContaining(level, substring string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.entries {
		if entry.Level == level && strings.Contains(entry.Msg, substring) {
			count++
		}
	}

	return count
}

// Reset clears all captured log entries.
func (s *LoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.entries[:0]
}
