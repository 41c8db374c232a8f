// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mdhender/snippet"
	"github.com/mdhender/snippet/model"
)

// WorkerService claims and executes pipeline jobs.
type WorkerService struct {
	store    WorkerStore
	workerID string
	options  []snippet.Option
	logger   *slog.Logger
}

// WorkerStore defines the store operations needed by WorkerService.
type WorkerStore interface {
	ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	GetSourceByID(ctx context.Context, id int64) (*model.Source, error)

	// SaveParseResult replaces a source's results atomically.
	SaveParseResult(ctx context.Context, result *model.ParseResult) (int, error)
}

// NewWorkerService creates a new WorkerService.
// The options are passed to the lexer and parser for every job.
func NewWorkerService(store WorkerStore, workerID string, logger *slog.Logger, options ...snippet.Option) *WorkerService {
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s:%d", hostname, os.Getpid())
	}
	return &WorkerService{
		store:    store,
		workerID: workerID,
		options:  options,
		logger:   orDiscard(logger),
	}
}

// ClaimJob takes the next queued job for stage, or returns nil when the
// queue is empty.
func (w *WorkerService) ClaimJob(ctx context.Context, stage string) (*model.Work, error) {
	return w.store.ClaimWork(ctx, stage, w.workerID)
}

// ExecuteParse tokenizes and parses a source and stores its declarations.
// Results from an earlier attempt are replaced in the same transaction.
// A source that does not parse gets a Failure row and an *ErrSyntax is
// returned.
func (w *WorkerService) ExecuteParse(ctx context.Context, job *model.Work, src *model.Source) error {
	options := append(append([]snippet.Option{}, w.options...), snippet.WithName(src.Path))
	tokens, root, parseErr := snippet.ParseSource(src.Content, options...)

	// tokens is nil after a lex error, which stores a count of zero
	result := &model.ParseResult{SourceID: src.ID, Tokens: len(tokens)}
	var syntaxErr *ErrSyntax
	if parseErr != nil {
		syntaxErr = &ErrSyntax{Path: src.Path, Err: parseErr}
		line, column := syntaxErr.Position()
		result.Failure = &model.Failure{
			SourceID: src.ID,
			Code:     ErrorCode(parseErr),
			Message:  parseErr.Error(),
			Line:     line,
			Column:   column,
		}
	} else {
		result.Declarations = declarationTrees(root.Children)
	}

	n, err := w.store.SaveParseResult(ctx, result)
	if err != nil {
		return &ErrDatabase{Op: "save parse result", Err: err}
	}
	if syntaxErr != nil {
		return syntaxErr
	}
	w.logger.Debug("worker: parsed", "job", job.ID, "path", src.Path, "tokens", len(tokens), "declarations", n)
	return nil
}

// declarationTrees converts the declaration nodes into the nested rows the
// store saves. Class members follow their class.
func declarationTrees(nodes []*snippet.Node) []model.DeclarationTree {
	var trees []model.DeclarationTree
	for _, node := range nodes {
		decl, ok := DeclarationFromNode(node)
		if !ok {
			continue
		}
		tree := model.DeclarationTree{Declaration: decl}
		if node.Production == snippet.ClassDecl && len(node.Children) > 1 {
			tree.Members = declarationTrees(node.Children[1:])
		}
		trees = append(trees, tree)
	}
	return trees
}

// DeclarationFromNode converts a ClassDecl or VarDecl node into a
// Declaration. It returns false for any other node.
func DeclarationFromNode(node *snippet.Node) (model.Declaration, bool) {
	decl := model.Declaration{
		Production: node.Production.String(),
		Name:       node.Child(0).Value,
		Line:       node.Span.Line,
		Column:     node.Span.Column,
	}
	switch node.Production {
	case snippet.ClassDecl:
		return decl, true
	case snippet.VarDecl:
		if typeDecl := node.Child(1); typeDecl != nil {
			decl.TypeName = typeDecl.Value
			if literal := typeDecl.Child(0); literal != nil {
				decl.Value = literal.Value
			}
		}
		return decl, true
	}
	return model.Declaration{}, false
}

// FinishJob closes a job. A nil jobErr marks it ok; otherwise the job is
// failed with the error's code and text.
func (w *WorkerService) FinishJob(ctx context.Context, job *model.Work, jobErr error) error {
	if jobErr == nil {
		return w.store.FinishWork(ctx, job.ID, model.WorkStatusOk, "", "")
	}
	return w.store.FinishWork(ctx, job.ID, model.WorkStatusFailed, ErrorCode(jobErr), jobErr.Error())
}

// ProcessJob runs one job for stage. It reports false when there was no
// job to run. A job that fails is still finished, and its error returned.
func (w *WorkerService) ProcessJob(ctx context.Context, stage string) (bool, error) {
	job, err := w.ClaimJob(ctx, stage)
	if err != nil {
		return false, &ErrDatabase{Op: "claim work", Err: err}
	} else if job == nil {
		return false, nil
	}

	jobErr := w.runJob(ctx, stage, job)
	if jobErr != nil {
		w.logger.Info("worker: failed", "job", job.ID, "attempt", job.Attempt, "code", ErrorCode(jobErr), "error", jobErr)
	}
	if err := w.FinishJob(ctx, job, jobErr); err != nil {
		return true, &ErrDatabase{Op: "finish work", Err: err}
	}
	return true, jobErr
}

func (w *WorkerService) runJob(ctx context.Context, stage string, job *model.Work) error {
	src, err := w.store.GetSourceByID(ctx, job.SourceID)
	if err != nil {
		return &ErrDatabase{Op: "get source", Err: err}
	} else if src == nil {
		return &ErrDatabase{Op: "get source", Err: fmt.Errorf("source %d: not found", job.SourceID)}
	}
	switch stage {
	case model.WorkStageParse:
		return w.ExecuteParse(ctx, job, src)
	}
	return fmt.Errorf("stage %q: no handler", stage)
}

// Drain processes jobs for the stage until the queue is empty.
// Syntax errors are counted and do not stop the drain; any other error does.
func (w *WorkerService) Drain(ctx context.Context, stage string) (processed, failed int, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}
		ok, err := w.ProcessJob(ctx, stage)
		if !ok {
			return processed, failed, err
		}
		processed++
		if err != nil {
			failed++
			var syntaxErr *ErrSyntax
			if !errors.As(err, &syntaxErr) {
				return processed, failed, err
			}
		}
	}
}
