// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mdhender/snippet/model"
)

// InsertSource inserts a Source and returns its assigned ID.
func (s *SQLiteStore) InsertSource(ctx context.Context, src *model.Source) (int64, error) {
	const query = `
		INSERT INTO sources (run_id, path, sha256, size, content, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		src.RunID,
		src.Path,
		src.SHA256,
		src.Size,
		src.Content,
		src.Tokens,
		formatTime(src.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return result.LastInsertId()
}

// GetSourceByID returns the source with the given id, or nil if there is none.
func (s *SQLiteStore) GetSourceByID(ctx context.Context, id int64) (*model.Source, error) {
	const query = `
		SELECT id, run_id, path, sha256, size, content, tokens, created_at
		FROM sources
		WHERE id = ?
	`
	return scanSource(s.db.QueryRowContext(ctx, query, id))
}

// GetSourceBySHA256 returns the source with the given content hash, or nil if there is none.
func (s *SQLiteStore) GetSourceBySHA256(ctx context.Context, sha256 string) (*model.Source, error) {
	const query = `
		SELECT id, run_id, path, sha256, size, content, tokens, created_at
		FROM sources
		WHERE sha256 = ?
	`
	return scanSource(s.db.QueryRowContext(ctx, query, sha256))
}

// SetSourceTokens records the number of tokens scanned from a source.
func (s *SQLiteStore) SetSourceTokens(ctx context.Context, id int64, tokens int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sources SET tokens = ? WHERE id = ?`, tokens, id)
	if err != nil {
		return fmt.Errorf("set source tokens: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ClearSourceResults deletes the declarations and failures recorded for a
// source so that it can be parsed again.
func (s *SQLiteStore) ClearSourceResults(ctx context.Context, sourceID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearSourceResults(ctx, tx, sourceID); err != nil {
		return err
	}
	return tx.Commit()
}

func clearSourceResults(ctx context.Context, db execer, sourceID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM declarations WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete declarations: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM failures WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete failures: %w", err)
	}
	return nil
}

// SaveParseResult replaces the token count, declarations and failure of a
// source in one transaction and returns the number of declarations stored.
// On error nothing changes.
func (s *SQLiteStore) SaveParseResult(ctx context.Context, result *model.ParseResult) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearSourceResults(ctx, tx, result.SourceID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sources SET tokens = ? WHERE id = ?`, result.Tokens, result.SourceID); err != nil {
		return 0, fmt.Errorf("set source tokens: %w", err)
	}
	n, err := insertDeclarationTree(ctx, tx, result.SourceID, nil, result.Declarations)
	if err != nil {
		return 0, err
	}
	if result.Failure != nil {
		failure := *result.Failure
		failure.SourceID = result.SourceID
		if _, err := insertFailure(ctx, tx, &failure); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// insertDeclarationTree stores each declaration before its members so the
// members can point back at it.
func insertDeclarationTree(ctx context.Context, db execer, sourceID int64, parentID *int64, trees []model.DeclarationTree) (int, error) {
	count := 0
	for _, tree := range trees {
		decl := tree.Declaration
		decl.SourceID, decl.ParentID = sourceID, parentID
		id, err := insertDeclaration(ctx, db, &decl)
		if err != nil {
			return count, err
		}
		count++
		n, err := insertDeclarationTree(ctx, db, sourceID, &id, tree.Members)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// InsertDeclaration inserts a Declaration and returns its assigned ID.
func (s *SQLiteStore) InsertDeclaration(ctx context.Context, decl *model.Declaration) (int64, error) {
	return insertDeclaration(ctx, s.db, decl)
}

func insertDeclaration(ctx context.Context, db execer, decl *model.Declaration) (int64, error) {
	const query = `
		INSERT INTO declarations (source_id, parent_id, production, name, type_name, value, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query,
		decl.SourceID,
		nullInt64(decl.ParentID),
		decl.Production,
		decl.Name,
		nullString(decl.TypeName),
		nullString(decl.Value),
		decl.Line,
		decl.Column,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration: %w", err)
	}
	return result.LastInsertId()
}

// InsertFailure inserts a Failure and returns its assigned ID.
func (s *SQLiteStore) InsertFailure(ctx context.Context, failure *model.Failure) (int64, error) {
	return insertFailure(ctx, s.db, failure)
}

func insertFailure(ctx context.Context, db execer, failure *model.Failure) (int64, error) {
	const query = `
		INSERT INTO failures (source_id, code, message, line, col)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query,
		failure.SourceID,
		failure.Code,
		failure.Message,
		failure.Line,
		failure.Column,
	)
	if err != nil {
		return 0, fmt.Errorf("insert failure: %w", err)
	}
	return result.LastInsertId()
}

// DeclarationsBySource returns the declarations of a source in source order.
func (s *SQLiteStore) DeclarationsBySource(ctx context.Context, sourceID int64) ([]model.Declaration, error) {
	const query = `
		SELECT id, source_id, parent_id, production, name, type_name, value, line, col
		FROM declarations
		WHERE source_id = ?
		ORDER BY id
	`
	return s.queryDeclarations(ctx, query, sourceID)
}

// FindDeclarations returns every declaration with the given name, ordered
// by source and position.
func (s *SQLiteStore) FindDeclarations(ctx context.Context, name string) ([]model.Declaration, error) {
	const query = `
		SELECT id, source_id, parent_id, production, name, type_name, value, line, col
		FROM declarations
		WHERE name = ?
		ORDER BY source_id, line, col
	`
	return s.queryDeclarations(ctx, query, name)
}

// FailuresBySource returns the failures recorded for a source.
func (s *SQLiteStore) FailuresBySource(ctx context.Context, sourceID int64) ([]model.Failure, error) {
	const query = `
		SELECT id, source_id, code, message, line, col
		FROM failures
		WHERE source_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.ID, &f.SourceID, &f.Code, &f.Message, &f.Line, &f.Column); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

func (s *SQLiteStore) queryDeclarations(ctx context.Context, query string, args ...any) ([]model.Declaration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	var decls []model.Declaration
	for rows.Next() {
		var d model.Declaration
		var parentID sql.NullInt64
		var typeName, value sql.NullString
		if err := rows.Scan(&d.ID, &d.SourceID, &parentID, &d.Production, &d.Name, &typeName, &value, &d.Line, &d.Column); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		if parentID.Valid {
			d.ParentID = &parentID.Int64
		}
		d.TypeName, d.Value = typeName.String, value.String
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

func scanSource(row *sql.Row) (*model.Source, error) {
	var src model.Source
	var createdAt string
	if err := row.Scan(
		&src.ID,
		&src.RunID,
		&src.Path,
		&src.SHA256,
		&src.Size,
		&src.Content,
		&src.Tokens,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	src.CreatedAt = parseTime(createdAt)
	return &src, nil
}
