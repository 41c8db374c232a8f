// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mdhender/snippet"
	"github.com/mdhender/snippet/model"
	"github.com/mdhender/snippet/pipelines/stages"
	store "github.com/mdhender/snippet/stores/sqlite"
	"github.com/spf13/afero"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	return sqlStore
}

func queueSource(t *testing.T, sqlStore *store.SQLiteStore, path, text string) int64 {
	t.Helper()
	result, err := stages.NewIngestService(sqlStore, nil).IngestFile(context.Background(), "run-test", stages.IngestRequest{Path: path, Data: []byte(text)})
	if err != nil {
		t.Fatalf("ingest %s: %v", path, err)
	}
	return result.SourceID
}

func TestWorkerService_ClaimJob_AtomicLocking(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	queueSource(t, sqlStore, "a.snip", "let a : Number = 1")

	const numWorkers = 10
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	claimedCount := 0
	var mu sync.Mutex

	for i := 0; i < numWorkers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		go func() {
			defer wg.Done()
			work, err := sqlStore.ClaimWork(ctx, model.WorkStageParse, workerID)
			if err != nil {
				t.Errorf("%s: claim error: %v", workerID, err)
				return
			}
			if work != nil {
				mu.Lock()
				claimedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claimedCount != 1 {
		t.Errorf("expected exactly 1 claim, got %d", claimedCount)
	}
}

func TestWorkerService_ProcessJob_StoresDeclarations(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	srcID := queueSource(t, sqlStore, "point.snip", `class Point {
  let x : Number = 1;
  let y : Number = 2
}
let origin : String = 0
`)

	w := stages.NewWorkerService(sqlStore, "worker-test", nil)
	ok, err := w.ProcessJob(ctx, model.WorkStageParse)
	if err != nil {
		t.Fatalf("process job: %v", err)
	}
	if !ok {
		t.Fatal("expected a job to be processed")
	}

	decls, err := sqlStore.DeclarationsBySource(ctx, srcID)
	if err != nil {
		t.Fatalf("declarations: %v", err)
	}
	if len(decls) != 4 {
		t.Fatalf("expected 4 declarations, got %d: %+v", len(decls), decls)
	}

	point := decls[0]
	if point.Production != "ClassDecl" || point.Name != "Point" || point.ParentID != nil {
		t.Errorf("expected top level class Point, got %+v", point)
	}
	if point.Line != 1 || point.Column != 1 {
		t.Errorf("expected Point at 1:1, got %d:%d", point.Line, point.Column)
	}
	for _, member := range decls[1:3] {
		if member.ParentID == nil || *member.ParentID != point.ID {
			t.Errorf("expected %s to be a member of Point, got parent %v", member.Name, member.ParentID)
		}
	}
	x := decls[1]
	if x.Name != "x" || x.TypeName != "Number" || x.Value != "1" || x.Line != 2 || x.Column != 3 {
		t.Errorf("unexpected x: %+v", x)
	}
	origin := decls[3]
	if origin.Name != "origin" || origin.TypeName != "String" || origin.ParentID != nil {
		t.Errorf("unexpected origin: %+v", origin)
	}

	src, err := sqlStore.GetSourceByID(ctx, srcID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if src.Tokens != 23 {
		t.Errorf("expected 23 tokens, got %d", src.Tokens)
	}

	// nothing left to claim
	ok, err = w.ProcessJob(ctx, model.WorkStageParse)
	if ok || err != nil {
		t.Errorf("expected empty queue, got %v, %v", ok, err)
	}
}

func TestWorkerService_ProcessJob_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	srcID := queueSource(t, sqlStore, "bad.snip", "let a : Number = 1\nlet ;\n")

	w := stages.NewWorkerService(sqlStore, "worker-test", nil)
	ok, err := w.ProcessJob(ctx, model.WorkStageParse)
	if !ok {
		t.Fatal("expected a job to be processed")
	}
	var syntaxErr *stages.ErrSyntax
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected *ErrSyntax, got %v", err)
	}
	if !errors.Is(err, snippet.ErrExpectedIdentifier) {
		t.Errorf("expected ErrExpectedIdentifier, got %v", err)
	}

	failures, err := sqlStore.FailuresBySource(ctx, srcID)
	if err != nil {
		t.Fatalf("failures: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if f := failures[0]; f.Code != stages.ErrCodeParseError || f.Line != 2 || f.Column != 5 {
		t.Errorf("unexpected failure: %+v", f)
	}
	if decls, _ := sqlStore.DeclarationsBySource(ctx, srcID); len(decls) != 0 {
		t.Errorf("expected no declarations for a failed source, got %d", len(decls))
	}

	failed, err := sqlStore.GetFailedWork(ctx, model.WorkStageParse)
	if err != nil {
		t.Fatalf("failed work: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(failed))
	}
	if failed[0].ErrorCode == nil || *failed[0].ErrorCode != stages.ErrCodeParseError {
		t.Errorf("expected error code %q, got %v", stages.ErrCodeParseError, failed[0].ErrorCode)
	}
	if failed[0].Attempt != 1 {
		t.Errorf("expected attempt 1, got %d", failed[0].Attempt)
	}
}

func TestWorkerService_ReparseReplacesResults(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	srcID := queueSource(t, sqlStore, "a.snip", "let a : Number = 1")

	ok, err := stages.NewWorkerService(sqlStore, "worker-1", nil).ProcessJob(ctx, model.WorkStageParse)
	if !ok || err != nil {
		t.Fatalf("first parse: %v, %v", ok, err)
	}
	if src, _ := sqlStore.GetSourceByID(ctx, srcID); src.Tokens != 6 {
		t.Errorf("expected 6 tokens, got %d", src.Tokens)
	}

	// queue the same source again for a worker that rejects it while tokenizing
	if _, err := sqlStore.InsertWork(ctx, &model.Work{
		SourceID:    srcID,
		Stage:       model.WorkStageParse,
		Status:      model.WorkStatusQueued,
		AvailableAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("insert work: %v", err)
	}
	strict := stages.NewWorkerService(sqlStore, "worker-2", nil, snippet.WithEOFPolicy(snippet.EOFError))
	ok, err = strict.ProcessJob(ctx, model.WorkStageParse)
	if !ok || !errors.Is(err, snippet.ErrNoTerminalFound) {
		t.Fatalf("second parse: %v, %v", ok, err)
	}

	src, err := sqlStore.GetSourceByID(ctx, srcID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if src.Tokens != 0 {
		t.Errorf("expected the token count to reset to 0, got %d", src.Tokens)
	}
	if decls, _ := sqlStore.DeclarationsBySource(ctx, srcID); len(decls) != 0 {
		t.Errorf("expected earlier declarations to be replaced, got %d", len(decls))
	}
	if failures, _ := sqlStore.FailuresBySource(ctx, srcID); len(failures) != 1 || failures[0].Code != stages.ErrCodeLexError {
		t.Errorf("expected one LEX_ERROR failure, got %+v", failures)
	}
}

func TestWorkerService_EOFPolicyOption(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	srcID := queueSource(t, sqlStore, "eof.snip", "let a : Number = 1")

	w := stages.NewWorkerService(sqlStore, "worker-test", nil, snippet.WithEOFPolicy(snippet.EOFError))
	_, err := w.ProcessJob(ctx, model.WorkStageParse)
	if !errors.Is(err, snippet.ErrNoTerminalFound) {
		t.Fatalf("expected ErrNoTerminalFound, got %v", err)
	}
	failures, _ := sqlStore.FailuresBySource(ctx, srcID)
	if len(failures) != 1 || failures[0].Code != stages.ErrCodeLexError {
		t.Errorf("expected one LEX_ERROR failure, got %+v", failures)
	}
}

func TestIndexService_Index(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/src/shapes.snip": "class Shape { let sides : Number = 0 }\nclass Square { let sides : Number = 4 }\n",
		"/src/broken.snip": "class Oops { let sides : Number = four }\n",
		"/src/vars.snip":   "let sides : Number = 3\n",
	}
	for path, text := range files {
		if err := afero.WriteFile(fs, path, []byte(text), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	svc := stages.NewIndexService(sqlStore, nil)
	svc.SetFS(fs)

	report, err := svc.Index(ctx, []string{"/src/shapes.snip", "/src/broken.snip", "/src/vars.snip"})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if report.Processed != 3 || report.Failed != 1 {
		t.Errorf("expected 3 processed and 1 failed, got %d and %d", report.Processed, report.Failed)
	}
	if got := report.Summary[model.WorkStageParse]; got[model.WorkStatusOk] != 2 || got[model.WorkStatusFailed] != 1 {
		t.Errorf("unexpected summary: %v", report.Summary)
	}

	if len(report.Failures) != 1 || report.Failures[0].Code != stages.ErrCodeParseError {
		t.Errorf("expected one PARSE_ERROR failure, got %+v", report.Failures)
	}

	sides, err := sqlStore.FindDeclarations(ctx, "sides")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(sides) != 3 {
		t.Fatalf("expected 3 declarations of sides, got %d", len(sides))
	}
	values := ""
	for _, d := range sides {
		values += d.Value
	}
	if values != "043" {
		t.Errorf("expected values in source order 0,4,3, got %q", values)
	}

	// re-indexing the same files is a no-op, but the broken file still reports its failure
	again, err := svc.Index(ctx, []string{"/src/shapes.snip", "/src/broken.snip", "/src/vars.snip"})
	if err != nil {
		t.Fatalf("re-index: %v", err)
	}
	if again.Processed != 0 {
		t.Errorf("expected no new jobs, got %d", again.Processed)
	}
	for _, result := range again.Results {
		if !result.Duplicate {
			t.Errorf("%s: expected duplicate", result.Path)
		}
	}
	if len(again.Failures) != 1 {
		t.Fatalf("expected the unchanged broken file to keep 1 failure, got %+v", again.Failures)
	}
	if f := again.Failures[0]; f.Code != stages.ErrCodeParseError || f.Line != 1 || f.Column != 35 {
		t.Errorf("unexpected failure: %+v", f)
	}

	stats, err := sqlStore.TableStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["sources"] != 3 || stats["declarations"] != 5 || stats["failures"] != 1 || stats["work"] != 3 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestIndexService_Retry(t *testing.T) {
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/a.snip", []byte("let a : Number = 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// the strict policy rejects the file; the retry runs with the default policy
	strict := stages.NewIndexService(sqlStore, nil, snippet.WithEOFPolicy(snippet.EOFError))
	strict.SetFS(fs)
	report, err := strict.Index(ctx, []string{"/a.snip"})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", report.Failed)
	}

	relaxed := stages.NewIndexService(sqlStore, nil)
	processed, failed, err := relaxed.Retry(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if processed != 1 || failed != 0 {
		t.Errorf("expected 1 processed and 0 failed, got %d and %d", processed, failed)
	}

	srcID := report.Results[0].SourceID
	if failures, _ := sqlStore.FailuresBySource(ctx, srcID); len(failures) != 0 {
		t.Errorf("expected the retry to clear old failures, got %+v", failures)
	}
	if decls, _ := sqlStore.DeclarationsBySource(ctx, srcID); len(decls) != 1 {
		t.Errorf("expected 1 declaration after retry, got %d", len(decls))
	}
}

func TestErrorCode(t *testing.T) {
	_, lexErr := snippet.Tokenize([]byte(`"open`))
	_, _, parseErr := snippet.ParseSource([]byte("let"))
	for _, tc := range []struct {
		err  error
		want string
	}{
		{&stages.ErrReadFile{Op: "read", Path: "x", Err: errors.New("boom")}, stages.ErrCodeReadFile},
		{&stages.ErrDatabase{Op: "insert", Err: errors.New("boom")}, stages.ErrCodeDatabase},
		{&stages.ErrSyntax{Path: "x", Err: lexErr}, stages.ErrCodeLexError},
		{&stages.ErrSyntax{Path: "x", Err: parseErr}, stages.ErrCodeParseError},
		{fmt.Errorf("wrapped: %w", parseErr), stages.ErrCodeParseError},
		{errors.New("other"), stages.ErrCodeUnknown},
	} {
		if got := stages.ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
