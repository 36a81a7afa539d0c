package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cafe-sync/internal/model"
)

// DefaultTable is the destination table for café records.
const DefaultTable = "berlin_cafes"

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = eris.New("store: not found")

// CafeFilter pages through stored cafés ordered by osm_id.
type CafeFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Pipeline string          `json:"pipeline,omitempty"`
	Status   model.RunStatus `json:"status,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// LoadResult reports the outcome of one InsertCafes batch.
type LoadResult struct {
	Attempted  int     `json:"attempted"`
	Inserted   int     `json:"inserted"`
	Skipped    int     `json:"skipped"`
	SkippedIDs []int64 `json:"skipped_ids,omitempty"`
}

// Store defines the persistence interface for the café pipeline.
type Store interface {
	// Schema
	EnsureSchema(ctx context.Context) error

	// Cafes
	InsertCafes(ctx context.Context, cafes []model.Cafe) (*LoadResult, error)
	GetCafe(ctx context.Context, osmID int64) (*model.Cafe, error)
	ListCafes(ctx context.Context, filter CafeFilter) ([]model.Cafe, error)
	CountCafes(ctx context.Context) (int, error)

	// Run log
	StartRun(ctx context.Context, pipeline string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	LastSuccess(ctx context.Context, pipeline string) (*time.Time, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Close() error
}

const (
	defaultCafeLimit = 100
	defaultRunLimit  = 20
)

func (f CafeFilter) limit() int {
	if f.Limit <= 0 {
		return defaultCafeLimit
	}
	return f.Limit
}

func (f CafeFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultRunLimit
	}
	return f.Limit
}

// newLoadResult maps skipped row indices back to osm_ids.
func newLoadResult(cafes []model.Cafe, inserted int, skipped []int) *LoadResult {
	res := &LoadResult{
		Attempted: len(cafes),
		Inserted:  inserted,
		Skipped:   len(skipped),
	}
	for _, i := range skipped {
		res.SkippedIDs = append(res.SkippedIDs, cafes[i].OSMID)
	}
	return res
}

func cafeRows(cafes []model.Cafe) [][]any {
	rows := make([][]any, len(cafes))
	for i, c := range cafes {
		rows[i] = c.Values()
	}
	return rows
}
