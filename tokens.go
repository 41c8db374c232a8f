// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"fmt"
	"strconv"
)

// Token represents a single lexical token from the input.
//
// Tokens are values. Once the lexer hands one out, nothing changes it.
type Token struct {
	Kind Kind

	// Text is the raw lexeme. For WORD tokens it is the text strictly
	// between the quotes, with no escape processing.
	Text string

	Number  int64   // payload for NUMBER
	Keyword Keyword // payload for KEYWORD
	Symbol  Symbol  // payload for SYMBOL
	Op      rune    // operator for BinOp and RelationalOp symbols

	Line     int // 1-based
	StartCol int // 1-based character column, inclusive
	EndCol   int // 1-based character column, exclusive

	// Start and End are byte offsets into the original input.
	// End is exclusive: input[Start:End] is the token's lexeme
	// (including the quotes for WORD tokens).
	Start int
	End   int
}

// Is reports whether tok.Kind matches the provided kind.
//
// It returns false if tok is nil.
func (tok *Token) Is(kind Kind) bool {
	if tok == nil {
		return false
	}
	return tok.Kind == kind
}

// IsOneOf reports whether tok.Kind matches any of the provided kinds.
//
// It returns false if tok is nil.
func (tok *Token) IsOneOf(kinds ...Kind) bool {
	if tok == nil {
		return false
	}
	for _, kind := range kinds {
		if tok.Kind == kind {
			return true
		}
	}
	return false
}

// IsNot reports whether tok.Kind does not match the provided kind.
// It is the opposite of Is(kind)
//
// It returns true if tok is nil.
func (tok *Token) IsNot(kind Kind) bool {
	return !tok.Is(kind)
}

// IsNotOneOf reports whether tok.Kind is not any of the provided kinds.
// It is the opposite of IsOneOf(kinds)
//
// Returns true if tok is nil.
func (tok *Token) IsNotOneOf(kinds ...Kind) bool {
	return !tok.IsOneOf(kinds...)
}

// IsKeyword reports whether tok is the keyword kw.
func (tok *Token) IsKeyword(kw Keyword) bool {
	return tok.Is(KEYWORD) && tok.Keyword == kw
}

// IsSymbol reports whether tok is the symbol sym.
func (tok *Token) IsSymbol(sym Symbol) bool {
	return tok.Is(SYMBOL) && tok.Symbol == sym
}

// Length is the length of the lexeme, in bytes.
func (tok *Token) Length() int {
	return tok.End - tok.Start
}

// Lexeme is a helper to return the original text of the token.
func (tok *Token) Lexeme(input []byte) []byte {
	return input[tok.Start:tok.End]
}

// Span returns the source range covered by the token.
func (tok *Token) Span() Span {
	return Span{
		Start:  tok.Start,
		End:    tok.End,
		Line:   tok.Line,
		Column: tok.StartCol,
	}
}

// String renders the token the way it shows up in messages,
// e.g. Keyword(class), Symbol(Colon), BinOp(+), Number(5).
func (tok Token) String() string {
	switch tok.Kind {
	case WORD:
		return fmt.Sprintf("Word(%s)", strconv.Quote(tok.Text))
	case NUMBER:
		return fmt.Sprintf("Number(%d)", tok.Number)
	case IDENTIFIER:
		return fmt.Sprintf("Identifier(%s)", tok.Text)
	case KEYWORD:
		return fmt.Sprintf("Keyword(%s)", tok.Keyword)
	case SYMBOL:
		if tok.Symbol == BinOp || tok.Symbol == RelationalOp {
			return fmt.Sprintf("%s(%c)", tok.Symbol, tok.Op)
		}
		return fmt.Sprintf("Symbol(%s)", tok.Symbol)
	}
	return fmt.Sprintf("Unknown(%s)", strconv.Quote(tok.Text))
}

// Span represents a range in the source: [Start, End).
type Span struct {
	// Byte offsets into the original input slice.
	// End is exclusive: input[Start:End] is the text of the span.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// 1-based line and column of the *start* of the span.
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Text is a helper to return the original text of the span.
func (s Span) Text(input []byte) []byte {
	return input[s.Start:s.End]
}

// spanFromTokens creates a Span from the first through the last token.
func spanFromTokens(first, last *Token) Span {
	return Span{
		Start:  first.Start,
		End:    last.End,
		Line:   first.Line,
		Column: first.StartCol,
	}
}
