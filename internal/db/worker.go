package db

import (
	"context"
	"time"

	"github.com/skarn-data/alteration.report/internal/analysis"
	"github.com/skarn-data/alteration.report/internal/monitoring"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// AnalysisWorker periodically claims pending runs and executes them
// through the engine registry. One worker drains up to BatchSize runs
// per tick; multiple workers can share a store because claiming is
// transactional.
type AnalysisWorker struct {
	Store     *RunStore
	Registry  *analysis.Registry
	Interval  time.Duration // how often to poll (e.g., 2s)
	BatchSize int           // max runs claimed per tick
	StopChan  chan struct{}
}

// NewAnalysisWorker creates a worker with the default poll interval.
func NewAnalysisWorker(store *RunStore, registry *analysis.Registry) *AnalysisWorker {
	return &AnalysisWorker{
		Store:     store,
		Registry:  registry,
		Interval:  2 * time.Second,
		BatchSize: 4,
		StopChan:  make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine.
func (w *AnalysisWorker) Start() {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.RunOnce(context.Background()); err != nil {
					monitoring.Logf("analysis worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *AnalysisWorker) Stop() {
	close(w.StopChan)
}

// RunOnce claims one batch of pending runs and executes each to
// completion. Execution failures fail the run but not the batch.
func (w *AnalysisWorker) RunOnce(ctx context.Context) error {
	runs, err := w.Store.ClaimPending(ctx, w.BatchSize)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if err := w.process(ctx, run); err != nil {
			monitoring.Logf("run %s (%s) failed: %v", run.RunID, run.Operation, err)
			if failErr := w.Store.FailRun(ctx, run.RunID, err.Error()); failErr != nil {
				monitoring.Logf("run %s: record failure: %v", run.RunID, failErr)
			}
		}
	}
	return nil
}

func (w *AnalysisWorker) process(ctx context.Context, run *AnalysisRun) error {
	r, err := raster.LoadFile(run.SourcePath, run.SourceFormat, run.Rows, run.Cols, run.Bands)
	if err != nil {
		return err
	}

	res, err := w.Registry.Operate(run.Operation, r, nil, run.Options)
	if err != nil {
		return err
	}

	doc, err := res.MarshalDocument()
	if err != nil {
		return err
	}

	if err := w.Store.CompleteRun(ctx, run.RunID, doc); err != nil {
		return err
	}
	monitoring.Logf("run %s (%s) completed: %dx%d", run.RunID, run.Operation, res.Rows, res.Cols)
	return nil
}
