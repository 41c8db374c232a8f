// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"errors"
	"fmt"

	"github.com/mdhender/snippet"
)

// ErrReadFile is returned when a source file can not be read.
type ErrReadFile struct {
	Op   string // stat, read
	Path string
	Err  error
}

func (e *ErrReadFile) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ErrReadFile) Unwrap() error {
	return e.Err
}

// ErrDatabase is returned when database operations fail.
type ErrDatabase struct {
	Op  string
	Err error
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ErrDatabase) Unwrap() error {
	return e.Err
}

// ErrSyntax is returned when a source fails to tokenize or parse.
// Err is the *snippet.LexError or *snippet.ParseError.
type ErrSyntax struct {
	Path string
	Err  error
}

func (e *ErrSyntax) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ErrSyntax) Unwrap() error {
	return e.Err
}

// Position returns the line and column of the syntax error, or zeros if
// the wrapped error does not carry a position.
func (e *ErrSyntax) Position() (line, column int) {
	var lexErr *snippet.LexError
	var parseErr *snippet.ParseError
	switch {
	case errors.As(e.Err, &lexErr):
		return lexErr.Line, lexErr.Column
	case errors.As(e.Err, &parseErr):
		return parseErr.Line, parseErr.Column
	}
	return 0, 0
}

// Error code constants for database storage.
const (
	ErrCodeReadFile   = "READ_FILE"
	ErrCodeDatabase   = "DATABASE"
	ErrCodeLexError   = "LEX_ERROR"
	ErrCodeParseError = "PARSE_ERROR"
	ErrCodeUnknown    = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	var readErr *ErrReadFile
	var dbErr *ErrDatabase
	var lexErr *snippet.LexError
	var parseErr *snippet.ParseError
	switch {
	case errors.As(err, &readErr):
		return ErrCodeReadFile
	case errors.As(err, &dbErr):
		return ErrCodeDatabase
	case errors.As(err, &lexErr):
		return ErrCodeLexError
	case errors.As(err, &parseErr):
		return ErrCodeParseError
	default:
		return ErrCodeUnknown
	}
}
