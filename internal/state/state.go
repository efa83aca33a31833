// Package state is the ephemeral keyed storage the sync engine shares
// between batch invocations: current status, progress snapshot, batch
// offset, final stats and pre-update product backups. Entries carry a TTL;
// everything run-scoped is cleared together on terminal states.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/sbozic/woosync/internal/platform/models"
)

// TTLs match the lifetime the data is useful for: run-scoped keys expire
// after an hour of silence, final stats and backups survive a day.
const (
	RunTTL    = time.Hour
	StatsTTL  = 24 * time.Hour
	BackupTTL = 24 * time.Hour
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process TTL key/value store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entries: map[string]entry{},
		now:     time.Now,
	}
}

const (
	keyStatus   = "sync_status"
	keyProgress = "sync_progress"
	keyOffset   = "batch_offset"
	keyStats    = "sync_stats"
	keySession  = "sync_session"
)

func (s *Store) set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
}

func (s *Store) get(key string) (any, bool) {
	s.mu.RLock()
	ent, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.now().After(ent.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return ent.value, true
}

func (s *Store) delete(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
}

// Status returns the current sync status, defaulting to idle.
func (s *Store) Status() string {
	if value, ok := s.get(keyStatus); ok {
		return value.(string)
	}
	return models.StatusIdle
}

// SetStatus records the current sync status.
func (s *Store) SetStatus(status string) {
	s.set(keyStatus, status, RunTTL)
}

// ClearStatus removes the status key; pollers then observe idle.
func (s *Store) ClearStatus() {
	s.delete(keyStatus)
}

// Offset returns the persisted batch offset; absence means start of feed.
func (s *Store) Offset() int {
	if value, ok := s.get(keyOffset); ok {
		return value.(int)
	}
	return 0
}

// SetOffset persists the batch cursor for the next scheduled invocation.
func (s *Store) SetOffset(offset int) {
	s.set(keyOffset, offset, RunTTL)
}

// ClearOffset removes the batch cursor.
func (s *Store) ClearOffset() {
	s.delete(keyOffset)
}

// SessionID returns the id of the session owning the current run state.
func (s *Store) SessionID() string {
	if value, ok := s.get(keySession); ok {
		return value.(string)
	}
	return ""
}

// SetSessionID records the session owning the current run state.
func (s *Store) SetSessionID(id string) {
	s.set(keySession, id, RunTTL)
}

// Progress returns the latest progress snapshot, if any.
func (s *Store) Progress() (models.Progress, bool) {
	if value, ok := s.get(keyProgress); ok {
		return value.(models.Progress), true
	}
	return models.Progress{}, false
}

// SetProgress stores a progress snapshot for polling.
func (s *Store) SetProgress(progress models.Progress) {
	s.set(keyProgress, progress, RunTTL)
}

// Stats returns the final stats of the last finished run, if still cached.
func (s *Store) Stats() (models.SyncStats, bool) {
	if value, ok := s.get(keyStats); ok {
		return value.(models.SyncStats), true
	}
	return models.SyncStats{}, false
}

// SetStats caches the final stats snapshot of a finished run.
func (s *Store) SetStats(stats models.SyncStats) {
	s.set(keyStats, stats, StatsTTL)
}

// ClearRun removes all run-scoped keys together: status, progress, offset
// and session ownership.
func (s *Store) ClearRun() {
	s.delete(keyStatus, keyProgress, keyOffset, keySession)
}

// SetBackup stores a pre-update product backup.
func (s *Store) SetBackup(backup models.ProductBackup) {
	s.set(backupKey(backup.ProductID), backup, BackupTTL)
}

// Backup returns the stored backup for a product, if any.
func (s *Store) Backup(productID int64) (models.ProductBackup, bool) {
	if value, ok := s.get(backupKey(productID)); ok {
		return value.(models.ProductBackup), true
	}
	return models.ProductBackup{}, false
}

// DeleteBackup drops a product backup after a successful restore.
func (s *Store) DeleteBackup(productID int64) {
	s.delete(backupKey(productID))
}

func backupKey(productID int64) string {
	return fmt.Sprintf("backup_%d", productID)
}
