// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"bytes"
	"log/slog"
	"strconv"
	"unicode/utf8"
)

// Lexer invariants and coordinate system
//
// The lexer treats input as an immutable UTF-8 byte slice.
//
// Fields:
//   input       - the original []byte
//   length      - len(input)
//
//   r           - the current rune, or EOF when we have read past the end.
//                 "\r\n" (CRLF) is seen as a single "\n" rune.
//
//   posCurrRune - index into input of the first byte of r,
//                 or length when r == EOF.
//   posNextRune - index into input of the first byte of the *next* rune,
//                 or length when r == EOF.
//   anchorPos   - index into input where the current token starts.
//   line        - line number of r; bumped when advance steps off a "\n".
//
// Invariants (must always hold):
//   0 <= posCurrRune <= posNextRune <= length
//
//   r == EOF  <=> posCurrRune == posNextRune == length
//
// Columns are never tracked. They are computed from the input and a byte
// offset by columnAt, so a token's columns depend only on where it starts
// and ends.
//
// Scanners that produce a token:
//   1. Call setAnchor() while r is the first rune of the token.
//   2. Call advance() while r belongs to the token. When the loop stops,
//      r is the first rune after the token (or EOF).
//   3. Slice the lexeme as input[anchorPos:posCurrRune].

type Lexer struct {
	name        string // name of the input source
	r           rune   // current rune
	line        int    // line number of current rune
	posCurrRune int    // position of current rune
	posNextRune int    // position of next rune
	length      int    // length of input buffer
	input       []byte

	anchorPos  int
	anchorLine int

	eofPolicy EOFPolicy

	logger     *slog.Logger
	tokenCount int
}

// NewLexer returns a lexer positioned at the first rune of input.
func NewLexer(input []byte, options ...Option) (*Lexer, error) {
	cfg, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	l := &Lexer{
		name:      cfg.name,
		input:     input,
		length:    len(input),
		line:      1,
		eofPolicy: cfg.eofPolicy,
		logger:    cfg.logger,
	}
	// read the first character to initialize the lexer.
	l.advance()
	return l, nil
}

// Tokenize scans the entire input and returns the tokens in source order.
// Empty input returns an empty slice.
func Tokenize(input []byte, options ...Option) ([]Token, error) {
	l, err := NewLexer(input, options...)
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, 0, len(input)/4)
	for {
		tok, err := l.Scan()
		if err != nil {
			l.debug("lexer: failed", "tokens", len(tokens), "error", err)
			return nil, err
		} else if tok == nil {
			break
		}
		tokens = append(tokens, *tok)
	}
	l.debug("lexer: done", "tokens", len(tokens), "lines", l.line)
	return tokens, nil
}

// Scan returns the next token from the input buffer.
// Newlines, comments, and characters that start no token are skipped.
//
// Once we reach end of input, Scan returns nil, nil.
func (l *Lexer) Scan() (*Token, error) {
	for !l.iseof() {
		l.setAnchor()

		ch := l.peekChar()
		if sym, ok := punctuation[ch]; ok {
			l.advance()
			return l.symbol(sym, 0), nil
		}

		switch ch {
		case LF:
			l.advance()
			continue
		case '<', '>':
			l.advance()
			return l.symbol(RelationalOp, ch), nil
		case '=':
			l.advance()
			if l.peekChar() == '=' {
				l.advance()
				return l.symbol(Comparison, 0), nil
			}
			return l.symbol(Assignment, 0), nil
		case '/':
			l.advance()
			if l.peekChar() == '/' {
				l.skipComment()
				continue
			}
			return l.symbol(BinOp, '/'), nil
		case '+', '-', '*':
			l.advance()
			return l.symbol(BinOp, ch), nil
		case '"':
			return l.scanString()
		}

		if isalnum(ch) {
			return l.scanWord()
		}

		// whitespace and anything we don't recognize
		l.advance()
	}
	return nil, nil
}

// scanString accepts a quoted string. The payload is everything strictly
// between the quotes; there are no escapes, so the first '"' closes it.
func (l *Lexer) scanString() (*Token, error) {
	l.advance() // opening quote
	for !l.iseof() && l.peekChar() != '"' {
		l.advance()
	}
	if l.iseof() {
		return nil, l.lexError(UnterminatedString)
	}
	text := string(l.input[l.anchorPos+1 : l.posCurrRune])
	l.advance() // closing quote

	tok := l.token(WORD)
	tok.Text = text
	return tok, nil
}

// scanWord accepts a run of non-terminals and classifies it.
func (l *Lexer) scanWord() (*Token, error) {
	for !l.iseof() && !isterminal(l.peekChar()) {
		l.advance()
	}
	text := string(l.input[l.anchorPos:l.posCurrRune])

	if l.iseof() {
		switch l.eofPolicy {
		case EOFUnknown:
			tok := l.token(UNKNOWN)
			tok.Text = text
			return tok, nil
		case EOFError:
			return nil, l.lexError(NoTerminalFound)
		}
	}

	tok := l.token(IDENTIFIER)
	tok.Text = text
	if kw, ok := LookupKeyword(text); ok {
		tok.Kind, tok.Keyword = KEYWORD, kw
	} else if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		tok.Kind, tok.Number = NUMBER, n
	}
	return tok, nil
}

// skipComment discards the rest of the line, including the new-line.
// On entry, r is the second '/'.
func (l *Lexer) skipComment() {
	for !l.iseof() && l.peekChar() != LF {
		l.advance()
	}
	if l.peekChar() == LF {
		l.advance()
	}
}

// token returns a token of the given kind that covers the input from the
// anchor up to (not including) the current rune.
func (l *Lexer) token(kind Kind) *Token {
	start, end := l.anchorPos, l.posCurrRune
	startCol := columnAt(l.input, start)
	l.tokenCount++
	return &Token{
		Kind:     kind,
		Line:     l.anchorLine,
		StartCol: startCol,
		EndCol:   endColumnAt(l.input, start, end, startCol),
		Start:    start,
		End:      end,
	}
}

func (l *Lexer) symbol(sym Symbol, op rune) *Token {
	tok := l.token(SYMBOL)
	tok.Symbol = sym
	tok.Op = op
	tok.Text = string(l.input[tok.Start:tok.End])
	return tok
}

func (l *Lexer) lexError(kind LexErrorKind) *LexError {
	return &LexError{
		Kind:   kind,
		Name:   l.name,
		Line:   l.anchorLine,
		Column: columnAt(l.input, l.anchorPos),
		Offset: l.anchorPos,
	}
}

// columnAt returns the 1-based character column of the byte at offset.
// It only looks at input, so it can be called for any offset in any order.
func columnAt(input []byte, offset int) int {
	lineStart := bytes.LastIndexByte(input[:offset], '\n') + 1
	return 1 + utf8.RuneCount(input[lineStart:offset])
}

// endColumnAt returns the exclusive end column of the span [start, end).
// A span that crosses a new-line (a multi-line string) ends at the last
// character on its first line.
func endColumnAt(input []byte, start, end, startCol int) int {
	if i := bytes.IndexByte(input[start:end], '\n'); i >= 0 {
		return startCol + utf8.RuneCount(bytes.TrimSuffix(input[start:start+i], []byte{'\r'}))
	}
	return columnAt(input, end)
}

// peekChar returns the current character without advancing the input.
func (l *Lexer) peekChar() rune {
	return l.r
}

// setAnchor marks the start of the current token.
func (l *Lexer) setAnchor() {
	l.anchorPos = l.posCurrRune
	l.anchorLine = l.line
}

// advance moves to the next rune and updates the line number.
// It normalizes "\r\n" into a single LF rune.
// On end of input, it sets r == EOF and both positions to length and returns.
func (l *Lexer) advance() {
	// stepping off a new-line starts the next line
	if l.r == LF {
		l.line++
	}

	// already at or past the end?
	if l.posNextRune >= l.length {
		l.posCurrRune, l.posNextRune = l.length, l.length
		l.r = EOF
		return
	}

	l.posCurrRune = l.posNextRune

	// read the next rune, optimizing for ASCII grammars.
	r, w := rune(l.input[l.posCurrRune]), 1
	if r == CR && l.posCurrRune+1 < l.length && l.input[l.posCurrRune+1] == '\n' {
		// merge CR+LF into a single LF rune, but consume both bytes
		r, w = LF, 2
	} else if r >= utf8.RuneSelf {
		// the current rune must be decoded
		r, w = utf8.DecodeRune(l.input[l.posCurrRune:])
	}
	l.posNextRune = l.posCurrRune + w
	l.r = r
}

func (l *Lexer) iseof() bool {
	return l.r == EOF
}

func (l *Lexer) debug(msg string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(msg, append([]any{"name", l.name}, args...)...)
}
