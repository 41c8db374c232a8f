// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"log/slog"

	"github.com/mdhender/snippet"
	"github.com/mdhender/snippet/model"
	"github.com/spf13/afero"
)

// IndexService runs both stages of the pipeline for a list of files:
// ingest queues each new source, then the worker drains the parse queue.
type IndexService struct {
	store  IndexStore
	ingest *IngestService
	worker *WorkerService
	logger *slog.Logger
}

// IndexStore is everything the two stages need, plus the run summary.
type IndexStore interface {
	IngestStore
	WorkerStore
	ResetFailedWork(ctx context.Context, stage string) (int, error)
	FailuresBySource(ctx context.Context, sourceID int64) ([]model.Failure, error)
	GetWorkSummaryByRun(ctx context.Context, runID string) (map[string]map[string]int, error)
}

// the full store can always back an index
var _ IndexStore = model.Store(nil)

// NewIndexService creates an IndexService that reads from the OS file system.
func NewIndexService(store IndexStore, logger *slog.Logger, options ...snippet.Option) *IndexService {
	logger = orDiscard(logger)
	return &IndexService{
		store:  store,
		ingest: NewIngestService(store, logger),
		worker: NewWorkerService(store, "", logger, options...),
		logger: logger,
	}
}

// SetFS sets the filesystem for testing.
func (s *IndexService) SetFS(fs afero.Fs) {
	s.ingest.SetFS(fs)
}

// IndexReport summarizes an index run.
type IndexReport struct {
	RunID     string
	Results   []IngestResult
	Processed int // jobs run by the worker
	Failed    int // jobs that ended with a syntax error
	Summary   map[string]map[string]int

	// Failures holds the recorded failures of every source named in the
	// run, including unchanged sources that failed in an earlier run.
	Failures []model.Failure
}

// Index ingests every path and parses every queued source.
// Sources queued by earlier runs that never finished are picked up too.
func (s *IndexService) Index(ctx context.Context, paths []string) (*IndexReport, error) {
	runID, results, err := s.ingest.IngestRun(ctx, paths)
	report := &IndexReport{RunID: runID, Results: results}
	if err != nil {
		return report, err
	}

	report.Processed, report.Failed, err = s.worker.Drain(ctx, model.WorkStageParse)
	if err != nil {
		return report, err
	}

	report.Summary, err = s.store.GetWorkSummaryByRun(ctx, runID)
	if err != nil {
		return report, &ErrDatabase{Op: "work summary", Err: err}
	}
	seen := map[int64]bool{}
	for _, result := range results {
		if seen[result.SourceID] {
			continue
		}
		seen[result.SourceID] = true
		failures, err := s.store.FailuresBySource(ctx, result.SourceID)
		if err != nil {
			return report, &ErrDatabase{Op: "failures by source", Err: err}
		}
		report.Failures = append(report.Failures, failures...)
	}
	s.logger.Info("index: done", "run", runID, "files", len(paths), "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

// Retry requeues failed parse jobs and drains the queue again.
func (s *IndexService) Retry(ctx context.Context) (processed, failed int, err error) {
	n, err := s.store.ResetFailedWork(ctx, model.WorkStageParse)
	if err != nil {
		return 0, 0, &ErrDatabase{Op: "reset failed work", Err: err}
	}
	s.logger.Info("index: retry", "jobs", n)
	return s.worker.Drain(ctx, model.WorkStageParse)
}
