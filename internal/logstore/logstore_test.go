package logstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sbozic/woosync/internal/logstore"
	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []models.LogEntry
	err     error
}

func (s *fakeStore) InsertEntry(_ context.Context, entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) EntriesBySession(_ context.Context, _ string, _ int) ([]models.LogEntry, error) {
	return nil, nil
}

func (s *fakeStore) EntriesByLevel(_ context.Context, _ string, _ int) ([]models.LogEntry, error) {
	return nil, nil
}

func (s *fakeStore) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeStore) stored() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LogEntry(nil), s.entries...)
}

func TestUnitLoggerPersistsEntries(t *testing.T) {
	store := &fakeStore{}
	logger := logstore.NewLogger(zerolog.Nop(), store)

	logger.Info("sync started", map[string]any{"manual": true})

	entries := store.stored()
	require.Len(t, entries, 1)
	assert.Equal(t, logstore.LevelInfo, entries[0].Level)
	assert.Equal(t, "sync started", entries[0].Message)
	assert.Equal(t, true, entries[0].Context["manual"])
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestUnitLoggerTagsSession(t *testing.T) {
	store := &fakeStore{}
	logger := logstore.NewLogger(zerolog.Nop(), store)

	logger.SetSession("sync_1")
	logger.Error("can't process item", nil)
	logger.SetSession("")
	logger.Warning("untagged", nil)

	entries := store.stored()
	require.Len(t, entries, 2)
	assert.Equal(t, "sync_1", entries[0].SessionID)
	assert.Empty(t, entries[1].SessionID)
	assert.Empty(t, logger.Session())
}

func TestUnitLoggerMinLevel(t *testing.T) {
	store := &fakeStore{}
	logger := logstore.NewLogger(zerolog.Nop(), store)
	logger.SetMinLevel(logstore.LevelWarning)

	logger.Debug("dropped", nil)
	logger.Info("dropped too", nil)
	logger.Warning("kept", nil)
	logger.Critical("kept too", nil)

	entries := store.stored()
	require.Len(t, entries, 2)
	assert.Equal(t, logstore.LevelWarning, entries[0].Level)
	assert.Equal(t, logstore.LevelCritical, entries[1].Level)
}

func TestUnitLoggerIgnoresUnknownMinLevel(t *testing.T) {
	store := &fakeStore{}
	logger := logstore.NewLogger(zerolog.Nop(), store)

	logger.SetMinLevel("verbose")
	logger.Debug("still logged", nil)

	assert.Len(t, store.stored(), 1, "an unknown level must not change filtering")
}

func TestUnitLoggerToleratesStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection lost")}
	logger := logstore.NewLogger(zerolog.Nop(), store)

	assert.NotPanics(t, func() {
		logger.Info("best effort", nil)
	}, "a failing store must never fail the operation being logged")
}

func TestUnitLoggerWithoutStore(t *testing.T) {
	logger := logstore.NewLogger(zerolog.Nop(), nil)

	assert.NotPanics(t, func() {
		logger.Info("console only", map[string]any{"key": "value"})
	})
}
