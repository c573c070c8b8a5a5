// Package interfaces defines service, storage, and client contracts
package interfaces

import (
	"context"

	"github.com/4rankng/paper-trading-sub001/internal/models"
)

// VizLogStore persists extraction records for diagnostics. Repair
// warnings are recovered silently at extraction time; this store is where
// they are retained.
type VizLogStore interface {
	SaveRecord(ctx context.Context, record *models.VizRecord) error
	GetRecord(ctx context.Context, id string) (*models.VizRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.VizRecord, error)
	ListRecent(ctx context.Context, limit int) ([]models.VizRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}
