// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package renderer writes tokens, trees, index results and diagnostics
// as text, JSON or YAML.
package renderer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdhender/snippet"
	"github.com/mdhender/snippet/model"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown format")

// Format is an output format.
type Format int

const (
	Text Format = iota
	JSON
	YAML
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps "text", "json" and "yaml" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return Text, fmt.Errorf("%q: %w", name, ErrUnknownFormat)
}

type Renderer struct {
	format     Format
	color      bool
	sourceName string

	severityStyle lipgloss.Style
	caretStyle    lipgloss.Style
	noteStyle     lipgloss.Style
}

func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		sourceName:    "<input>",
		severityStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		caretStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		noteStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
	for _, option := range options {
		err := option(r)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// tokenRecord is the JSON and YAML shape of a token.
type tokenRecord struct {
	Index    int    `json:"index"    yaml:"index"`
	Kind     string `json:"kind"     yaml:"kind"`
	Token    string `json:"token"    yaml:"token"`
	Text     string `json:"text"     yaml:"text"`
	Line     int    `json:"line"     yaml:"line"`
	StartCol int    `json:"startCol" yaml:"startCol"`
	EndCol   int    `json:"endCol"   yaml:"endCol"`
}

// Tokens writes one entry per token. The text form is
//
//	name:line:col:   index  Token(...)  "lexeme"
func (r *Renderer) Tokens(w io.Writer, input []byte, tokens []snippet.Token) error {
	if r.format != Text {
		records := make([]tokenRecord, 0, len(tokens))
		for i, tok := range tokens {
			records = append(records, tokenRecord{
				Index:    i + 1,
				Kind:     tok.Kind.String(),
				Token:    tok.String(),
				Text:     tok.Text,
				Line:     tok.Line,
				StartCol: tok.StartCol,
				EndCol:   tok.EndCol,
			})
		}
		return r.encode(w, records)
	}
	for i, tok := range tokens {
		where := fmt.Sprintf("%s:%d:%d:", r.sourceName, tok.Line, tok.StartCol)
		if _, err := fmt.Fprintf(w, "%-35s %5d %-24s %q\n", where, i+1, tok.String(), tok.Lexeme(input)); err != nil {
			return err
		}
	}
	return nil
}

// Tree writes the declaration tree. The text form is the indented outline.
func (r *Renderer) Tree(w io.Writer, root *snippet.Node) error {
	if r.format != Text {
		return r.encode(w, root)
	}
	_, err := io.WriteString(w, root.String())
	return err
}

// Declarations writes index search results. paths maps source ids to file names.
func (r *Renderer) Declarations(w io.Writer, decls []model.Declaration, paths map[int64]string) error {
	if r.format != Text {
		if decls == nil {
			decls = []model.Declaration{}
		}
		return r.encode(w, decls)
	}
	for _, d := range decls {
		path, ok := paths[d.SourceID]
		if !ok {
			path = fmt.Sprintf("source-%d", d.SourceID)
		}
		var err error
		switch d.Production {
		case snippet.VarDecl.String():
			_, err = fmt.Fprintf(w, "%s:%d:%d: let %s : %s = %s\n", path, d.Line, d.Column, d.Name, d.TypeName, d.Value)
		default:
			_, err = fmt.Fprintf(w, "%s:%d:%d: class %s\n", path, d.Line, d.Column, d.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Diagnostic reports err against src. Lexer and parser errors get the
// source line and a caret; any other error is written as a single line.
func (r *Renderer) Diagnostic(w io.Writer, err error, src []byte) error {
	diag, ok := snippet.DiagnosticFromError(err)
	if !ok {
		_, err = fmt.Fprintf(w, "%s: %s: %v\n", r.sourceName, r.severity("error"), err)
		return err
	}
	if !r.color {
		snippet.PrintDiagnostic(w, diag, r.sourceName, src)
		return nil
	}

	var sb strings.Builder
	span := diag.Span
	fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", r.sourceName, span.Line, span.Column,
		r.severity(strings.ToLower(diag.Severity.String())), diag.Message)
	line, caret := snippet.SourceExcerpt(src, span)
	fmt.Fprintf(&sb, "    %s\n", line)
	fmt.Fprintf(&sb, "    %s%s\n", caret[:len(caret)-1], r.caretStyle.Render("^"))
	for _, note := range diag.Notes {
		fmt.Fprintf(&sb, "    %s %s\n", r.noteStyle.Render("note:"), note)
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

func (r *Renderer) severity(label string) string {
	if !r.color {
		return label
	}
	return r.severityStyle.Render(label)
}

func (r *Renderer) encode(w io.Writer, v any) error {
	switch r.format {
	case JSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return ErrUnknownFormat
}
