// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import "context"

// Store is the persistence interface for the declaration index.
type Store interface {
	// sources

	InsertSource(ctx context.Context, src *Source) (int64, error)
	GetSourceByID(ctx context.Context, id int64) (*Source, error)
	GetSourceBySHA256(ctx context.Context, sha256 string) (*Source, error)
	SetSourceTokens(ctx context.Context, id int64, tokens int) error
	ClearSourceResults(ctx context.Context, sourceID int64) error

	// declarations and failures

	InsertDeclaration(ctx context.Context, decl *Declaration) (int64, error)
	InsertFailure(ctx context.Context, failure *Failure) (int64, error)
	DeclarationsBySource(ctx context.Context, sourceID int64) ([]Declaration, error)
	FailuresBySource(ctx context.Context, sourceID int64) ([]Failure, error)
	FindDeclarations(ctx context.Context, name string) ([]Declaration, error)
	SaveParseResult(ctx context.Context, result *ParseResult) (int, error)

	// stages

	InsertWork(ctx context.Context, work *Work) (int64, error)
	ClaimWork(ctx context.Context, stage, workerID string) (*Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	ResetFailedWork(ctx context.Context, stage string) (int, error)
	GetFailedWork(ctx context.Context, stage string) ([]Work, error)
	GetWorkSummaryByRun(ctx context.Context, runID string) (map[string]map[string]int, error)

	TableStats(ctx context.Context) (map[string]int64, error)
	Close() error
}
