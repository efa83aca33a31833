// Package storage is the Postgres persistence layer: sync sessions, the
// log history, operator category mappings and settings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/sbozic/woosync/internal/platform/models"
	"github.com/sbozic/woosync/internal/platform/storage/gen/postgres/public/table"

	pgmodels "github.com/sbozic/woosync/internal/platform/storage/gen/postgres/public/model"
	pg "github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
)

// ErrSessionNotFound is returned when a session id has no stored record.
var ErrSessionNotFound = errors.New("sync session not found")

// sessionRetention caps how many finished sessions are kept.
const sessionRetention = 50

// Postgres is storage for sync sessions, log entries, category mappings
// and settings.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns new Postgres.
func NewPostgres(db *sql.DB) Postgres {
	return Postgres{db: db}
}

// InsertSession stores a freshly started session and trims history beyond
// the retention cap.
func (p Postgres) InsertSession(ctx context.Context, session models.SyncSession) error {
	err := runInTransaction(ctx, p.db, func(tx *sql.Tx) error {
		_, err := table.SyncSession.INSERT(table.SyncSession.AllColumns).
			MODEL(toDBSession(session)).
			ExecContext(ctx, tx)
		if err != nil {
			return fmt.Errorf("can't insert session: %w", err)
		}

		keep := table.SyncSession.SELECT(table.SyncSession.ID).
			ORDER_BY(table.SyncSession.StartedAt.DESC()).
			LIMIT(sessionRetention)

		_, err = table.SyncSession.DELETE().
			WHERE(table.SyncSession.ID.NOT_IN(keep)).
			ExecContext(ctx, tx)
		if err != nil {
			return fmt.Errorf("can't trim session history: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("can't add session: %w", err)
	}

	return nil
}

// FinishSession updates a session with its terminal status and stats.
func (p Postgres) FinishSession(ctx context.Context, session models.SyncSession) error {
	result, err := table.SyncSession.UPDATE(table.SyncSession.MutableColumns).
		MODEL(toDBSession(session)).
		WHERE(table.SyncSession.ID.EQ(pg.String(session.ID))).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't update session: %w", err)
	}

	if rowsAffected, err := result.RowsAffected(); rowsAffected == 0 || err != nil {
		return fmt.Errorf("can't update session: %w", ErrSessionNotFound)
	}

	return nil
}

// Session returns one session by id.
func (p Postgres) Session(ctx context.Context, id string) (models.SyncSession, error) {
	var session pgmodels.SyncSession
	err := table.SyncSession.SELECT(table.SyncSession.AllColumns).
		WHERE(table.SyncSession.ID.EQ(pg.String(id))).
		QueryContext(ctx, p.db, &session)

	if errors.Is(err, qrm.ErrNoRows) {
		return models.SyncSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.SyncSession{}, fmt.Errorf("can't get session: %w", err)
	}

	return toAppSession(&session), nil
}

// Sessions lists the most recent sessions, newest first.
func (p Postgres) Sessions(ctx context.Context, limit int) ([]models.SyncSession, error) {
	var sessions []pgmodels.SyncSession
	err := table.SyncSession.SELECT(table.SyncSession.AllColumns).
		ORDER_BY(table.SyncSession.StartedAt.DESC()).
		LIMIT(int64(limit)).
		QueryContext(ctx, p.db, &sessions)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't list sessions: %w", err)
	}

	return lo.Map(sessions, func(_ pgmodels.SyncSession, ix int) models.SyncSession {
		return toAppSession(&sessions[ix])
	}), nil
}

// InsertEntry stores one log entry.
func (p Postgres) InsertEntry(ctx context.Context, entry models.LogEntry) error {
	dbEntry, err := toDBLogEntry(entry)
	if err != nil {
		return fmt.Errorf("can't encode log entry: %w", err)
	}

	_, err = table.LogEntry.INSERT(table.LogEntry.MutableColumns).
		MODEL(dbEntry).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't insert log entry: %w", err)
	}

	return nil
}

// EntriesBySession returns log entries of one session, newest first.
func (p Postgres) EntriesBySession(ctx context.Context, sessionID string, limit int) ([]models.LogEntry, error) {
	return p.queryEntries(ctx, table.LogEntry.SessionID.EQ(pg.String(sessionID)), limit)
}

// EntriesByLevel returns log entries of one level, newest first.
func (p Postgres) EntriesByLevel(ctx context.Context, level string, limit int) ([]models.LogEntry, error) {
	return p.queryEntries(ctx, table.LogEntry.Level.EQ(pg.String(level)), limit)
}

func (p Postgres) queryEntries(ctx context.Context, condition pg.BoolExpression, limit int) ([]models.LogEntry, error) {
	var entries []pgmodels.LogEntry
	err := table.LogEntry.SELECT(table.LogEntry.AllColumns).
		WHERE(condition).
		ORDER_BY(table.LogEntry.Timestamp.DESC()).
		LIMIT(int64(limit)).
		QueryContext(ctx, p.db, &entries)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't query log entries: %w", err)
	}

	return lo.Map(entries, func(_ pgmodels.LogEntry, ix int) models.LogEntry {
		return toAppLogEntry(&entries[ix])
	}), nil
}

// Purge deletes log entries older than the cutoff and returns how many
// were removed.
func (p Postgres) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := table.LogEntry.DELETE().
		WHERE(table.LogEntry.Timestamp.LT(pg.TimestampzT(olderThan))).
		ExecContext(ctx, p.db)
	if err != nil {
		return 0, fmt.Errorf("can't purge log entries: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("can't purge log entries: %w", err)
	}

	return purged, nil
}

// Mappings returns all category mappings keyed by source name. Rows whose
// payload can't be decoded are skipped.
func (p Postgres) Mappings(ctx context.Context) (map[string]models.CategoryMapping, error) {
	var rows []pgmodels.CategoryMapping
	err := table.CategoryMapping.SELECT(table.CategoryMapping.AllColumns).
		QueryContext(ctx, p.db, &rows)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't query category mappings: %w", err)
	}

	mappings := make(map[string]models.CategoryMapping, len(rows))
	for ix := range rows {
		if mapping, ok := toAppMapping(&rows[ix]); ok {
			mappings[mapping.From] = mapping
		}
	}

	return mappings, nil
}

// SaveMapping upserts one category mapping.
func (p Postgres) SaveMapping(ctx context.Context, mapping models.CategoryMapping) error {
	row, err := toDBMapping(mapping)
	if err != nil {
		return fmt.Errorf("can't encode category mapping: %w", err)
	}

	_, err = table.CategoryMapping.INSERT(table.CategoryMapping.AllColumns).
		MODEL(row).
		ON_CONFLICT(table.CategoryMapping.Source).
		DO_UPDATE(pg.SET(
			table.CategoryMapping.Payload.SET(table.CategoryMapping.EXCLUDED.Payload),
		)).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't upsert category mapping: %w", err)
	}

	return nil
}

// DeleteMapping removes one mapping by source name; it reports whether a
// row was deleted.
func (p Postgres) DeleteMapping(ctx context.Context, from string) (bool, error) {
	result, err := table.CategoryMapping.DELETE().
		WHERE(table.CategoryMapping.Source.EQ(pg.String(from))).
		ExecContext(ctx, p.db)
	if err != nil {
		return false, fmt.Errorf("can't delete category mapping: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("can't delete category mapping: %w", err)
	}

	return deleted > 0, nil
}

// LoadAll returns all persisted settings.
func (p Postgres) LoadAll(ctx context.Context) (map[string]string, error) {
	var rows []pgmodels.Setting
	err := table.Setting.SELECT(table.Setting.AllColumns).
		QueryContext(ctx, p.db, &rows)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		return nil, fmt.Errorf("can't query settings: %w", err)
	}

	values := make(map[string]string, len(rows))
	for ix := range rows {
		values[rows[ix].Key] = rows[ix].Value
	}

	return values, nil
}

// Save upserts one setting value.
func (p Postgres) Save(ctx context.Context, key, value string) error {
	_, err := table.Setting.INSERT(table.Setting.AllColumns).
		MODEL(&pgmodels.Setting{Key: key, Value: value}).
		ON_CONFLICT(table.Setting.Key).
		DO_UPDATE(pg.SET(
			table.Setting.Value.SET(table.Setting.EXCLUDED.Value),
		)).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't upsert setting: %w", err)
	}

	return nil
}

func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var (
		tx  *sql.Tx
		err error
	)

	if tx, err = db.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("can't rollback transaction: %w (rollback reason: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}
