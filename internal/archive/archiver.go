// internal/archive/archiver.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planetquant/quant-engine/internal/core"
	"go.uber.org/zap"
)

// Archiver persists completed analyses to a storage backend. Saves happen
// off the request path, so failures are logged rather than returned to
// callers.
type Archiver struct {
	storage Storage
	logger  *zap.Logger
}

// NewArchiver creates an archiver on top of the given storage backend.
func NewArchiver(storage Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{storage: storage, logger: logger}
}

// record is the archived document: the response plus when it was stored.
type record struct {
	ArchivedAt time.Time            `json:"archived_at"`
	Analysis   core.AnalyzeResponse `json:"analysis"`
}

// Save writes an analysis under analyses/<date>/<uuid>.json and returns the
// storage path.
func (a *Archiver) Save(ctx context.Context, resp core.AnalyzeResponse) (string, error) {
	now := time.Now().UTC()
	path := fmt.Sprintf("analyses/%s/%s.json", now.Format("2006-01-02"), uuid.NewString())

	data, err := json.Marshal(record{ArchivedAt: now, Analysis: resp})
	if err != nil {
		return "", fmt.Errorf("marshaling analysis: %w", err)
	}

	if err := a.storage.Write(ctx, path, data); err != nil {
		a.logger.Warn("archive write failed",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("writing analysis: %w", err)
	}

	a.logger.Debug("analysis archived", zap.String("path", path))
	return path, nil
}

// List returns the archived analysis paths for a given day.
func (a *Archiver) List(ctx context.Context, day time.Time) ([]string, error) {
	return a.storage.List(ctx, "analyses/"+day.UTC().Format("2006-01-02"))
}
