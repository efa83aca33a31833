// Package logstore is the structured logging facade of the service: every
// entry goes to zerolog and, when a durable store is attached, into the
// log history queryable by session and level.
package logstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sbozic/woosync/internal/platform/models"
)

// Log levels, ordered.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
)

var levelRank = map[string]int{
	LevelDebug:    0,
	LevelInfo:     1,
	LevelWarning:  2,
	LevelError:    3,
	LevelCritical: 4,
}

// Store persists log entries.
type Store interface {
	InsertEntry(ctx context.Context, entry models.LogEntry) error
	EntriesBySession(ctx context.Context, sessionID string, limit int) ([]models.LogEntry, error)
	EntriesByLevel(ctx context.Context, level string, limit int) ([]models.LogEntry, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Logger writes structured log lines tagged with the current sync session.
// A nil store degrades to console-only logging.
type Logger struct {
	zl       zerolog.Logger
	store    Store
	mu       sync.RWMutex
	session  string
	minLevel string
}

// NewLogger returns a Logger over zl and store.
func NewLogger(zl zerolog.Logger, store Store) *Logger {
	return &Logger{
		zl:       zl,
		store:    store,
		minLevel: LevelDebug,
	}
}

// SetMinLevel drops entries below level.
func (l *Logger) SetMinLevel(level string) {
	if _, known := levelRank[level]; !known {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// SetSession tags subsequent entries with the given session id.
func (l *Logger) SetSession(sessionID string) {
	l.mu.Lock()
	l.session = sessionID
	l.mu.Unlock()
}

// Session returns the currently tagged session id.
func (l *Logger) Session() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.session
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(LevelDebug, msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(LevelInfo, msg, fields)
}

// Warning logs at warning level.
func (l *Logger) Warning(msg string, fields map[string]any) {
	l.log(LevelWarning, msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields map[string]any) {
	l.log(LevelError, msg, fields)
}

// Critical logs at the highest level; used for run-aborting failures.
func (l *Logger) Critical(msg string, fields map[string]any) {
	l.log(LevelCritical, msg, fields)
}

func (l *Logger) log(level, msg string, fields map[string]any) {
	l.mu.RLock()
	session := l.session
	minLevel := l.minLevel
	l.mu.RUnlock()

	if levelRank[level] < levelRank[minLevel] {
		return
	}

	event := l.zl.WithLevel(zerologLevel(level)).Str("session", session)
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)

	if l.store == nil {
		return
	}

	entry := models.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   msg,
		Context:   fields,
		SessionID: session,
	}

	// A failing log store must never fail the operation being logged.
	// Persistence is not tied to the caller's context: failure logs
	// written during shutdown still need to land.
	if err := l.store.InsertEntry(context.Background(), entry); err != nil {
		l.zl.Warn().Err(err).Msg("can't persist log entry")
	}
}

func zerologLevel(level string) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
