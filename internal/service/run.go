package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hrqc/internal/recording"
	"hrqc/internal/store"
)

// QCService runs batch QC over a data root and persists every result
type QCService struct {
	store  *store.Store
	batch  *Batch
	logger *slog.Logger
}

// NewQCService creates a QC service
func NewQCService(st *store.Store, batch *Batch, logger *slog.Logger) *QCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QCService{store: st, batch: batch, logger: logger}
}

// RunResult contains the outcome of a batch run
type RunResult struct {
	Run     *store.Run
	Results []store.FileResult
}

// RunAll discovers recordings under root, runs QC on them and stores the
// results under a new run. A cancelled context still stores what finished.
func (s *QCService) RunAll(ctx context.Context, root string, progress chan<- Progress) (*RunResult, error) {
	sources, err := recording.Discover(root)
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, fmt.Errorf("discovering recordings: %w", err)
	}
	s.logger.Info("discovered recordings", "root", root, "count", len(sources))

	run, err := s.store.CreateRun(ctx, root, len(sources))
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, fmt.Errorf("creating run: %w", err)
	}

	results, batchErr := s.batch.Run(ctx, sources, progress)

	// persist with a fresh context so a cancelled run keeps its finished files
	saveCtx := context.WithoutCancel(ctx)
	for _, r := range results {
		if err := s.store.SaveFileResult(saveCtx, run.ID, r); err != nil {
			return nil, fmt.Errorf("saving result for %s: %w", r.Path, err)
		}
	}
	if err := s.store.FinishRun(saveCtx, run.ID); err != nil {
		return nil, fmt.Errorf("finishing run: %w", err)
	}

	s.logger.Info("qc run finished", "run", run.ID, "processed", len(results), "of", len(sources))
	return &RunResult{Run: run, Results: results}, batchErr
}

// LoadRun returns a stored run and its results. An empty id loads the latest run.
func (s *QCService) LoadRun(ctx context.Context, id string) (*RunResult, error) {
	var (
		run *store.Run
		err error
	)
	if id == "" {
		run, err = s.store.LatestRun(ctx)
	} else {
		run, err = s.store.GetRun(ctx, id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}

	results, err := s.store.ListFileResults(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	return &RunResult{Run: run, Results: results}, nil
}
