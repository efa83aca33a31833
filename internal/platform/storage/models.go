package storage

import (
	"encoding/json"
	"strconv"

	"github.com/sbozic/woosync/internal/platform/models"

	pgmodels "github.com/sbozic/woosync/internal/platform/storage/gen/postgres/public/model"
)

//go:generate make -C ../../../ generate-db

func toDBSession(session models.SyncSession) *pgmodels.SyncSession {
	return &pgmodels.SyncSession{
		ID:         session.ID,
		Status:     session.Status,
		Manual:     session.Manual,
		TotalItems: int32(session.Stats.TotalItems),
		Processed:  int32(session.Stats.Processed),
		Created:    int32(session.Stats.Created),
		Updated:    int32(session.Stats.Updated),
		Skipped:    int32(session.Stats.Skipped),
		Errors:     int32(session.Stats.Errors),
		PeakMemory: int64(session.PeakMemory),
		StartedAt:  session.StartedAt,
		FinishedAt: session.FinishedAt,
	}
}

func toAppSession(session *pgmodels.SyncSession) models.SyncSession {
	return models.SyncSession{
		ID:     session.ID,
		Status: session.Status,
		Manual: session.Manual,
		Stats: models.SyncStats{
			TotalItems: int(session.TotalItems),
			Processed:  int(session.Processed),
			Created:    int(session.Created),
			Updated:    int(session.Updated),
			Skipped:    int(session.Skipped),
			Errors:     int(session.Errors),
		},
		StartedAt:  session.StartedAt,
		FinishedAt: session.FinishedAt,
		PeakMemory: uint64(session.PeakMemory),
	}
}

func toDBLogEntry(entry models.LogEntry) (*pgmodels.LogEntry, error) {
	context := ""
	if len(entry.Context) > 0 {
		encoded, err := json.Marshal(entry.Context)
		if err != nil {
			return nil, err
		}
		context = string(encoded)
	}

	return &pgmodels.LogEntry{
		Timestamp: entry.Timestamp,
		Level:     entry.Level,
		Message:   entry.Message,
		Context:   context,
		SessionID: entry.SessionID,
	}, nil
}

func toAppLogEntry(entry *pgmodels.LogEntry) models.LogEntry {
	var context map[string]any
	if entry.Context != "" {
		// Unparsable context is kept as raw text rather than dropped.
		if err := json.Unmarshal([]byte(entry.Context), &context); err != nil {
			context = map[string]any{"raw": entry.Context}
		}
	}

	return models.LogEntry{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Level:     entry.Level,
		Message:   entry.Message,
		Context:   context,
		SessionID: entry.SessionID,
	}
}

func toDBMapping(mapping models.CategoryMapping) (*pgmodels.CategoryMapping, error) {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}

	return &pgmodels.CategoryMapping{
		Source:  mapping.From,
		Payload: string(payload),
	}, nil
}

// toAppMapping decodes a stored mapping. Rows written by earlier releases
// hold a bare category id instead of a JSON object; those are upgraded to
// the full shape on read.
func toAppMapping(row *pgmodels.CategoryMapping) (models.CategoryMapping, bool) {
	var mapping models.CategoryMapping
	if err := json.Unmarshal([]byte(row.Payload), &mapping); err == nil && mapping.To != 0 {
		mapping.From = row.Source
		return mapping, true
	}

	if id, err := strconv.ParseInt(row.Payload, 10, 64); err == nil && id != 0 {
		return models.CategoryMapping{From: row.Source, To: id}, true
	}

	return models.CategoryMapping{}, false
}
