// Package store persists normalized records and computed metric results.
// SQLite backs the single-site CLI workflow; Postgres backs shared
// deployments. Both speak the same Store interface.
package store

import (
	"context"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// RecordFilter narrows a record listing. Zero values match everything.
type RecordFilter struct {
	Source model.SourceType `json:"source,omitempty"`
	UnitID string           `json:"unit_id,omitempty"`
	Window *model.Window    `json:"window,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Records. ReplaceRecords swaps out the full dataset for a source type;
	// ingest is idempotent per source.
	ReplaceRecords(ctx context.Context, source model.SourceType, records []model.Record) (int, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)

	// Results. SaveResults upserts on (unit, window); recomputing a window
	// overwrites its previous results.
	SaveResults(ctx context.Context, results []model.MetricResult) error
	ListResults(ctx context.Context, w model.Window) ([]model.MetricResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
