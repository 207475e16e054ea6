// Package store persists the run catalog: one row per generation run plus
// a trace of postal-code bridge lookups for aggregate stats.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/model"
)

// ErrRunNotFound reports an unknown run ID. Matchable with errors.Is
// through wrap chains.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// LookupStats aggregates the bridge lookup trace.
type LookupStats struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
}

// Store defines the persistence interface for the run catalog.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.RunParams) (*model.GenerationRun, error)
	CompleteRun(ctx context.Context, runID string, recordCount int) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.GenerationRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.GenerationRun, error)

	// Bridge lookup trace
	RecordCEPLookup(ctx context.Context, lookup model.CEPLookup) error
	CountCEPLookups(ctx context.Context) (LookupStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
