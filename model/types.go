// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import (
	"time"
)

// Source is one snippet source file submitted for indexing.
type Source struct {
	ID        int64     `json:"id"        db:"id"`
	RunID     string    `json:"runId"     db:"run_id"` // uuid of the index run that first saw the file
	Path      string    `json:"path"      db:"path"`
	SHA256    string    `json:"sha256"    db:"sha256"`
	Size      int       `json:"size"      db:"size"`
	Content   []byte    `json:"-"         db:"content"`
	Tokens    int       `json:"tokens"    db:"tokens"` // set once the source is parsed
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Declaration is a class or variable declared in a Source.
//
// Nested declarations point at their enclosing class through ParentID.
// Top level declarations have a nil ParentID.
type Declaration struct {
	ID         int64  `json:"id"                 db:"id"`
	SourceID   int64  `json:"sourceId"           db:"source_id"`
	ParentID   *int64 `json:"parentId,omitempty" db:"parent_id"`
	Production string `json:"production"         db:"production"` // ClassDecl | VarDecl
	Name       string `json:"name"               db:"name"`
	TypeName   string `json:"typeName,omitempty" db:"type_name"` // VarDecl only
	Value      string `json:"value,omitempty"    db:"value"`     // VarDecl only
	Line       int    `json:"line"               db:"line"`
	Column     int    `json:"column"             db:"col"`
}

// Failure records why a Source could not be indexed.
type Failure struct {
	ID       int64  `json:"id"       db:"id"`
	SourceID int64  `json:"sourceId" db:"source_id"`
	Code     string `json:"code"     db:"code"` // LEX_ERROR, PARSE_ERROR, ...
	Message  string `json:"message"  db:"message"`
	Line     int    `json:"line"     db:"line"`
	Column   int    `json:"column"   db:"col"`
}

// DeclarationTree is a declaration with the declarations nested in it.
// Members get their ParentID when the tree is saved.
type DeclarationTree struct {
	Declaration
	Members []DeclarationTree
}

// ParseResult is what one parse of a source leaves in the index. Saving it
// replaces whatever an earlier attempt stored for the source.
type ParseResult struct {
	SourceID     int64
	Tokens       int // 0 when the source did not tokenize
	Declarations []DeclarationTree
	Failure      *Failure
}

// Work is a queued pipeline job for a single Source.
type Work struct {
	ID           int64      `json:"id"                     db:"id"`
	SourceID     int64      `json:"sourceId"               db:"source_id"`
	Stage        string     `json:"stage"                  db:"stage"`
	Status       string     `json:"status"                 db:"status"`
	Attempt      int        `json:"attempt"                db:"attempt"`
	AvailableAt  time.Time  `json:"availableAt"            db:"available_at"`
	LockedBy     *string    `json:"lockedBy,omitempty"     db:"locked_by"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"     db:"locked_at"`
	StartedAt    *time.Time `json:"startedAt,omitempty"    db:"started_at"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"   db:"finished_at"`
	ErrorCode    *string    `json:"errorCode,omitempty"    db:"error_code"`
	ErrorMessage *string    `json:"errorMessage,omitempty" db:"error_message"`
}

const (
	WorkStageParse = "parse"
)

const (
	WorkStatusQueued  = "queued"
	WorkStatusRunning = "running"
	WorkStatusOk      = "ok"
	WorkStatusFailed  = "failed"
)
