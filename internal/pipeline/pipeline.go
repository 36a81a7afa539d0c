// Package pipeline drives one extract → load run of the café sync.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/model"
	"github.com/sells-group/cafe-sync/internal/store"
)

// Extractor produces the batch of café records for one run.
type Extractor interface {
	Extract(ctx context.Context) ([]model.Cafe, error)
}

// Loader persists a batch with insert-or-skip semantics.
type Loader interface {
	InsertCafes(ctx context.Context, cafes []model.Cafe) (*store.LoadResult, error)
}

// Extract runs the extract step.
func Extract(ctx context.Context, ex Extractor) ([]model.Cafe, error) {
	cafes, err := ex.Extract(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}
	return cafes, nil
}

// Load runs the load step. Skipped rows are reported, not treated as errors.
func Load(ctx context.Context, l Loader, cafes []model.Cafe) (*store.LoadResult, error) {
	log := zap.L().With(zap.String("component", "pipeline.load"))

	res, err := l.InsertCafes(ctx, cafes)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load")
	}

	log.Info("load complete",
		zap.Int("attempted", res.Attempted),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	if res.Skipped > 0 {
		log.Debug("skipped existing rows", zap.Int64s("osm_ids", res.SkippedIDs))
	}
	return res, nil
}

// RunOpts controls a single pipeline run.
type RunOpts struct {
	Force  bool // ignore the daily due-check
	DryRun bool // extract only; nothing is written
}

// Result summarises a pipeline run.
type Result struct {
	RunID    string            `json:"run_id,omitempty"`
	NotDue   bool              `json:"not_due,omitempty"`
	Cafes    []model.Cafe      `json:"-"`
	Load     *store.LoadResult `json:"load,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// Pipeline composes Extract and Load with the run log.
type Pipeline struct {
	name      string
	area      string
	extractor Extractor
	store     store.Store
	now       func() time.Time
}

// New creates a Pipeline. name keys the run log; area is recorded in run
// metadata.
func New(name, area string, ex Extractor, st store.Store) *Pipeline {
	return &Pipeline{
		name:      name,
		area:      area,
		extractor: ex,
		store:     st,
		now:       time.Now,
	}
}

// Run executes ensure schema → due-check → start run → extract → load →
// complete run. Any failure after the run starts marks it failed.
func (p *Pipeline) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("pipeline", p.name),
	)

	if opts.DryRun {
		cafes, err := Extract(ctx, p.extractor)
		if err != nil {
			return nil, err
		}
		log.Info("dry run: nothing written", zap.Int("extracted", len(cafes)))
		return &Result{Cafes: cafes, Metadata: RunMetadata(p.area, cafes, nil)}, nil
	}

	if err := p.store.EnsureSchema(ctx); err != nil {
		return nil, eris.Wrap(err, "pipeline: ensure schema")
	}

	if !opts.Force {
		last, err := p.store.LastSuccess(ctx, p.name)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: check last run for %s", p.name)
		}
		if !DailySchedule(p.now().UTC(), last) {
			log.Info("skipping: already ran today", zap.Timep("last_success", last))
			return &Result{NotDue: true}, nil
		}
	}

	run, err := p.store.StartRun(ctx, p.name)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: start run for %s", p.name)
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("run started")

	start := time.Now()
	res, err := p.execute(ctx, run.ID)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if logErr := p.store.FailRun(ctx, run.ID, err.Error()); logErr != nil {
			log.Error("failed to record run failure", zap.Error(logErr))
		}
		return nil, err
	}

	if err := p.store.CompleteRun(ctx, run.ID, &model.RunResult{
		Extracted: len(res.Cafes),
		Inserted:  res.Load.Inserted,
		Skipped:   res.Load.Skipped,
		Metadata:  res.Metadata,
	}); err != nil {
		err = eris.Wrapf(err, "pipeline: complete run %s", run.ID)
		log.Error("failed to record run completion", zap.Error(err))
		if logErr := p.store.FailRun(ctx, run.ID, err.Error()); logErr != nil {
			log.Error("failed to record run failure", zap.Error(logErr))
		}
		return nil, err
	}

	log.Info("run complete",
		zap.Int("extracted", len(res.Cafes)),
		zap.Int("inserted", res.Load.Inserted),
		zap.Int("skipped", res.Load.Skipped),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string) (*Result, error) {
	cafes, err := Extract(ctx, p.extractor)
	if err != nil {
		return nil, err
	}

	loaded, err := Load(ctx, p.store, cafes)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:    runID,
		Cafes:    cafes,
		Load:     loaded,
		Metadata: RunMetadata(p.area, cafes, loaded),
	}, nil
}

// RunMetadata builds the metadata recorded on a run row.
func RunMetadata(area string, cafes []model.Cafe, loaded *store.LoadResult) map[string]any {
	meta := map[string]any{
		"area":      area,
		"extracted": len(cafes),
	}
	if bbox := BatchBounds(cafes); bbox != nil {
		meta["bbox"] = bbox
	}
	if loaded != nil && len(loaded.SkippedIDs) > 0 {
		meta["skipped_ids"] = loaded.SkippedIDs
	}
	return meta
}
