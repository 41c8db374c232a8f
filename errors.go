// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"errors"
	"fmt"
)

var (
	ErrUnterminatedString = errors.New("unterminated string")
	ErrNoTerminalFound    = errors.New("no terminal found before end of input")

	ErrExpectedIdentifier   = errors.New("expected identifier")
	ErrExpectedColon        = errors.New("expected ':'")
	ErrExpectedAssignment   = errors.New("expected '='")
	ErrExpectedNumber       = errors.New("expected numeric literal")
	ErrExpectedTypeName     = errors.New("expected type name")
	ErrExpectedLCurly       = errors.New("expected '{'")
	ErrExpectedDeclaration  = errors.New("expected declaration")
	ErrUnsupportedKeyword   = errors.New("keyword not supported")
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
)

// LexErrorKind identifies why the lexer stopped.
type LexErrorKind int

const (
	UnterminatedString LexErrorKind = iota + 1
	NoTerminalFound
)

func (k LexErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "UnterminatedString"
	case NoTerminalFound:
		return "NoTerminalFound"
	}
	return fmt.Sprintf("LexErrorKind(%d)", int(k))
}

// LexError is returned when the lexer can not produce a token.
// Line, Column and Offset point at the start of the failed token.
type LexError struct {
	Kind   LexErrorKind
	Name   string // name of the input source, may be empty
	Line   int
	Column int
	Offset int
}

func (e *LexError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d:%d: %v", e.Name, e.Line, e.Column, e.Unwrap())
	}
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Unwrap())
}

func (e *LexError) Unwrap() error {
	switch e.Kind {
	case UnterminatedString:
		return ErrUnterminatedString
	case NoTerminalFound:
		return ErrNoTerminalFound
	}
	return nil
}

// Span returns the location of the error as a zero-width span.
func (e *LexError) Span() Span {
	return Span{Start: e.Offset, End: e.Offset, Line: e.Line, Column: e.Column}
}

// ParseErrorKind identifies why the parser stopped.
type ParseErrorKind int

const (
	UnexpectedToken ParseErrorKind = iota + 1
	UnexpectedEndOfInput
	UnsupportedKeyword
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UnexpectedToken"
	case UnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case UnsupportedKeyword:
		return "UnsupportedKeyword"
	}
	return fmt.Sprintf("ParseErrorKind(%d)", int(k))
}

// ParseError is returned when the token stream does not match the grammar.
//
// Production is the rule the parser was attempting. Found is the offending
// token, or nil when the stream ran out. Err is one of the Err* sentinels
// and is what errors.Is matches against.
type ParseError struct {
	Kind       ParseErrorKind
	Production Production
	Expected   string
	Found      *Token
	Name       string
	Line       int
	Column     int
	Offset     int
	Err        error
}

func (e *ParseError) Error() string {
	var where string
	if e.Name != "" {
		where = fmt.Sprintf("%s:%d:%d", e.Name, e.Line, e.Column)
	} else {
		where = fmt.Sprintf("%d:%d", e.Line, e.Column)
	}
	switch e.Kind {
	case UnexpectedEndOfInput:
		return fmt.Sprintf("%s: %s: expected %s, found end of input", where, e.Production, e.Expected)
	case UnsupportedKeyword:
		return fmt.Sprintf("%s: %s: %s is not supported yet", where, e.Production, e.Found)
	}
	return fmt.Sprintf("%s: %s: expected %s, found %s", where, e.Production, e.Expected, e.Found)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Span returns the location of the offending token, or a zero-width
// span at the end of input.
func (e *ParseError) Span() Span {
	if e.Found != nil {
		return e.Found.Span()
	}
	return Span{Start: e.Offset, End: e.Offset, Line: e.Line, Column: e.Column}
}
