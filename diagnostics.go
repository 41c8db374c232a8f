// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Diagnostic represents a lexer or parser error/warning
// with a span in the original source.
type Diagnostic struct {
	Severity slog.Level // Error, Warning, Info
	Message  string     // "expected ':', found Symbol(SemiColon)"
	Span     Span       // where in the file it occurred
	Notes    []string   // optional additional help messages
}

// DiagnosticFromError converts a *LexError or *ParseError (possibly wrapped)
// into a Diagnostic. It returns false for any other error.
func DiagnosticFromError(err error) (Diagnostic, bool) {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		diag := Diagnostic{
			Severity: slog.LevelError,
			Message:  lexErr.Unwrap().Error(),
			Span:     lexErr.Span(),
		}
		if lexErr.Kind == UnterminatedString {
			diag.Notes = append(diag.Notes, "string literals end at the next '\"'; there are no escapes")
		}
		return diag, true
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		diag := Diagnostic{
			Severity: slog.LevelError,
			Span:     parseErr.Span(),
		}
		switch parseErr.Kind {
		case UnexpectedEndOfInput:
			diag.Message = fmt.Sprintf("%s: expected %s, found end of input", parseErr.Production, parseErr.Expected)
		case UnsupportedKeyword:
			diag.Message = fmt.Sprintf("%s: %s is not supported yet", parseErr.Production, parseErr.Found)
			diag.Notes = append(diag.Notes, "only 'class' and 'let' declarations are parsed")
		default:
			diag.Message = fmt.Sprintf("%s: expected %s, found %s", parseErr.Production, parseErr.Expected, parseErr.Found)
		}
		return diag, true
	}

	return Diagnostic{}, false
}

// PrintDiagnostic writes the diagnostic header, the source line, and a caret
// under the first character of the span.
//
// Only the first line of a multi-line span is shown.
func PrintDiagnostic(w io.Writer, diag Diagnostic, filename string, src []byte) {
	// Header: file:line:column: error: message
	span := diag.Span
	_, _ = fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
		filename, span.Line, span.Column,
		strings.ToLower(diag.Severity.String()), diag.Message)

	line, caret := SourceExcerpt(src, span)
	_, _ = fmt.Fprintf(w, "    %s\n", line)
	_, _ = fmt.Fprintf(w, "    %s\n", caret)

	// Notes
	for _, note := range diag.Notes {
		_, _ = fmt.Fprintf(w, "    note: %s\n", note)
	}
}

// SourceExcerpt returns the line containing the start of span and a caret
// line that points at the span's column. Tabs in the source are copied into
// the caret line so the caret lines up in a terminal.
func SourceExcerpt(src []byte, span Span) (line, caret string) {
	text := findLine(src, span.Start)

	var sb strings.Builder
	for column := 1; column < span.Column && len(text) != 0; column++ {
		// text is not empty, so DecodeRune will always return a width of 1 or more
		r, w := utf8.DecodeRune(text)
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
		text = text[w:]
	}
	// a span that starts at end of line (or end of input) still gets a caret
	for column := utf8.RuneCountInString(sb.String()) + 1; column < span.Column; column++ {
		sb.WriteByte(' ')
	}
	sb.WriteByte('^')

	return string(findLine(src, span.Start)), sb.String()
}

// findLine returns the line containing the byte at start, without the
// new-line (or CR+LF). A start at or past the end of src returns the last line.
func findLine(src []byte, start int) []byte {
	if start > len(src) {
		start = len(src)
	} else if start < 0 {
		start = 0
	}
	lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
	lineEnd := len(src)
	if i := bytes.IndexByte(src[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}
	return bytes.TrimSuffix(src[lineStart:lineEnd], []byte{'\r'})
}
