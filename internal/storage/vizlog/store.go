// Package vizlog implements VizLogStore using BadgerHold.
// It keeps per-command extraction records: the raw payload as the model
// emitted it, the repaired payload, and the warnings the repair pipeline
// produced along the way.
package vizlog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// Store implements interfaces.VizLogStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new VizLogStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vizlog path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vizlog at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("VizLog opened")
	return &Store{db: db, logger: logger}, nil
}

// SaveRecord upserts one extraction record.
func (s *Store) SaveRecord(_ context.Context, record *models.VizRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record ID is required")
	}
	if err := s.db.Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save record '%s': %w", record.ID, err)
	}
	s.logger.Debug().
		Str("record_id", record.ID).
		Str("session_id", record.SessionID).
		Bool("recovered", record.Recovered).
		Msg("Extraction record saved")
	return nil
}

// GetRecord fetches one extraction record by ID.
func (s *Store) GetRecord(_ context.Context, id string) (*models.VizRecord, error) {
	var record models.VizRecord
	if err := s.db.Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("record '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get record '%s': %w", id, err)
	}
	return &record, nil
}

// ListBySession returns all records for one session, oldest first.
func (s *Store) ListBySession(_ context.Context, sessionID string) ([]models.VizRecord, error) {
	var records []models.VizRecord
	if err := s.db.Find(&records, badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID")); err != nil {
		return nil, fmt.Errorf("failed to list records for session '%s': %w", sessionID, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]models.VizRecord, error) {
	var records []models.VizRecord
	if err := s.db.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// DeleteSession removes all records for one session.
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	if err := s.db.DeleteMatching(&models.VizRecord{}, badgerhold.Where("SessionID").Eq(sessionID)); err != nil {
		return fmt.Errorf("failed to delete records for session '%s': %w", sessionID, err)
	}
	s.logger.Debug().Str("session_id", sessionID).Msg("Session records deleted")
	return nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}
