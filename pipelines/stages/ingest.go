// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mdhender/snippet/model"
	"github.com/spf13/afero"
)

// IngestService reads source files and queues them for parsing.
type IngestService struct {
	store  IngestStore
	fs     afero.Fs
	logger *slog.Logger
}

// IngestStore defines the store operations needed by IngestService.
type IngestStore interface {
	GetSourceBySHA256(ctx context.Context, sha256 string) (*model.Source, error)
	InsertSource(ctx context.Context, src *model.Source) (int64, error)
	InsertWork(ctx context.Context, work *model.Work) (int64, error)
}

// NewIngestService creates a new IngestService that reads from the OS file system.
// A nil logger is replaced with a silent one.
func NewIngestService(store IngestStore, logger *slog.Logger) *IngestService {
	return &IngestService{
		store:  store,
		fs:     afero.NewOsFs(),
		logger: orDiscard(logger),
	}
}

// SetFS sets the filesystem for testing.
func (s *IngestService) SetFS(fs afero.Fs) {
	s.fs = fs
}

// IngestRequest contains the parameters for ingesting a file.
type IngestRequest struct {
	Path string // name recorded for the source
	Data []byte // file content
}

// IngestResult contains the result of an ingest operation.
type IngestResult struct {
	Path      string
	SourceID  int64
	WorkID    int64
	Duplicate bool // true if the content was already ingested (idempotent no-op)
}

// NewRunID returns a new identifier for an index run.
func NewRunID() string {
	return uuid.NewString()
}

// IngestPath reads the file at path and ingests it.
func (s *IngestService) IngestPath(ctx context.Context, runID, path string) (*IngestResult, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, &ErrReadFile{Op: "read", Path: path, Err: err}
	}
	return s.IngestFile(ctx, runID, IngestRequest{Path: path, Data: data})
}

// IngestFile records a single source and queues a parse job for it.
// Returns IngestResult with Duplicate=true if the content already exists (idempotent no-op).
func (s *IngestService) IngestFile(ctx context.Context, runID string, req IngestRequest) (*IngestResult, error) {
	hash := sha256.Sum256(req.Data)
	hashStr := hex.EncodeToString(hash[:])

	existing, err := s.store.GetSourceBySHA256(ctx, hashStr)
	if err != nil {
		return nil, &ErrDatabase{Op: "check duplicate", Err: err}
	}
	if existing != nil {
		s.logger.Info("ingest: duplicate", "path", req.Path, "source", existing.ID, "first", existing.Path)
		return &IngestResult{
			Path:      req.Path,
			SourceID:  existing.ID,
			Duplicate: true,
		}, nil
	}

	src := &model.Source{
		RunID:     runID,
		Path:      req.Path,
		SHA256:    hashStr,
		Size:      len(req.Data),
		Content:   req.Data,
		CreatedAt: time.Now().UTC(),
	}
	srcID, err := s.store.InsertSource(ctx, src)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert source", Err: err}
	}

	work := &model.Work{
		SourceID:    srcID,
		Stage:       model.WorkStageParse,
		Status:      model.WorkStatusQueued,
		Attempt:     0,
		AvailableAt: time.Now().UTC(),
	}
	workID, err := s.store.InsertWork(ctx, work)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert work", Err: err}
	}
	s.logger.Info("ingest: queued", "path", req.Path, "source", srcID, "work", workID)

	return &IngestResult{
		Path:     req.Path,
		SourceID: srcID,
		WorkID:   workID,
	}, nil
}

// IngestRun creates a run id and ingests every path under it.
// It stops at the first error and returns the results so far.
func (s *IngestService) IngestRun(ctx context.Context, paths []string) (string, []IngestResult, error) {
	runID := NewRunID()
	var results []IngestResult
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return runID, results, fmt.Errorf("ingest: %w", err)
		}
		result, err := s.IngestPath(ctx, runID, path)
		if err != nil {
			return runID, results, err
		}
		results = append(results, *result)
	}
	return runID, results, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
