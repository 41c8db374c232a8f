// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"log/slog"
)

/*
Grammar:

	Program     := Declaration*
	Declaration := ClassDecl | LetDecl
	ClassDecl   := 'class' Identifier '{' Declaration* '}'
	LetDecl     := 'let' Identifier ':' TypeName '=' Literal ';'?
	TypeName    := Identifier in {"Number", "String"}
	Literal     := Number

Token cursor semantics:
  * The parser owns an index into an immutable token slice. It only moves
    forward and never rewinds, so there is no backtracking.
  * peek() returns the token to be consumed next, or nil at end of input.
  * advance() returns the current token and moves the index forward.
  * Once a production commits to a shape, any mismatch is returned as a
    *ParseError. There is no recovery.
*/

// Parser builds a declaration tree from a token slice.
type Parser struct {
	name   string
	tokens []Token
	pos    int // index of the lookahead token
	logger *slog.Logger
}

// NewParser returns a parser positioned at the first token.
func NewParser(tokens []Token, options ...Option) (*Parser, error) {
	cfg, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	return &Parser{
		name:   cfg.name,
		tokens: tokens,
		logger: cfg.logger,
	}, nil
}

// Parse parses the token slice and returns the ProgramRoot node.
func Parse(tokens []Token, options ...Option) (*Node, error) {
	p, err := NewParser(tokens, options...)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// Parse consumes the remaining tokens and returns the ProgramRoot node.
func (p *Parser) Parse() (*Node, error) {
	root := newNode(ProgramRoot, "", Span{Line: 1, Column: 1})
	first := p.peek()
	for !p.isAtEnd() {
		decl, err := p.parseDeclaration()
		if err != nil {
			p.debug("parser: failed", "error", err)
			return nil, err
		}
		root.Children = append(root.Children, decl)
	}
	if first != nil {
		root.Span = spanFromTokens(first, p.previous())
	}
	p.debug("parser: done", "declarations", len(root.Children))
	return root, nil
}

// parseDeclaration dispatches on the keyword that starts a declaration.
func (p *Parser) parseDeclaration() (*Node, error) {
	tok := p.peek()
	switch {
	case tok == nil:
		return nil, p.errorEndOfInput(Declaration, "declaration")
	case tok.IsKeyword(Class):
		return p.parseClassDecl()
	case tok.IsKeyword(Let):
		return p.parseLetDecl()
	case tok.Is(KEYWORD):
		return nil, p.errorUnsupported(Declaration, tok)
	}
	return nil, p.errorUnexpected(Declaration, "'class' or 'let'", tok, ErrExpectedDeclaration)
}

// parseClassDecl parses a class and its delimited body.
//
//	ClassDecl := 'class' Identifier '{' Declaration* '}'
//
// The node's first child is the class name; the rest are the body.
func (p *Parser) parseClassDecl() (*Node, error) {
	kw := p.advance()
	p.debug("parser: enter", "production", ClassDecl, "line", kw.Line)

	name, err := p.expectIdentifier(ClassDecl)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol(ClassDecl, LCurly, "'{'", ErrExpectedLCurly); err != nil {
		return nil, err
	}

	node := newNode(ClassDecl, "", Span{}, newNode(Ident, name.Text, name.Span()))
	for {
		tok := p.peek()
		if tok == nil {
			return nil, p.errorEndOfInput(ClassDecl, "'}'")
		}
		if closing := p.acceptSymbol(RCurly); closing != nil {
			node.Span = spanFromTokens(kw, closing)
			return node, nil
		}
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, decl)
	}
}

// parseLetDecl parses a typed variable binding.
//
//	LetDecl := 'let' Identifier ':' TypeName '=' Literal ';'?
//
// The node is a VarDecl with children [Ident, TypeDecl].
func (p *Parser) parseLetDecl() (*Node, error) {
	kw := p.advance()
	p.debug("parser: enter", "production", LetDecl, "line", kw.Line)

	name, err := p.expectIdentifier(LetDecl)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol(LetDecl, Colon, "':'", ErrExpectedColon); err != nil {
		return nil, err
	}
	typeDecl, err := p.parseTypeDecl()
	if err != nil {
		return nil, err
	}
	p.acceptSymbol(SemiColon)

	return newNode(VarDecl, "", spanFromTokens(kw, p.previous()),
		newNode(Ident, name.Text, name.Span()),
		typeDecl,
	), nil
}

// parseTypeDecl parses the type name and the value assigned to it.
// The TypeDecl node's value is the type name and its single child is the literal.
func (p *Parser) parseTypeDecl() (*Node, error) {
	tok := p.peek()
	if tok == nil {
		return nil, p.errorEndOfInput(TypeName, "type name")
	} else if tok.IsNot(IDENTIFIER) || !isTypeName(tok.Text) {
		return nil, p.errorUnexpected(TypeName, "type name (Number or String)", tok, ErrExpectedTypeName)
	}
	typeName := p.advance()

	if _, err := p.expectSymbol(LetDecl, Assignment, "'='", ErrExpectedAssignment); err != nil {
		return nil, err
	}
	literal, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return newNode(TypeDecl, typeName.Text, spanFromTokens(typeName, p.previous()), literal), nil
}

// parseLiteral accepts a numeric literal. String values are not assignable yet.
func (p *Parser) parseLiteral() (*Node, error) {
	tok, err := p.expect(Literal, "numeric literal", ErrExpectedNumber, func(tok *Token) bool {
		return tok.Is(NUMBER)
	})
	if err != nil {
		return nil, err
	}
	return newNode(Literal, tok.Text, tok.Span()), nil
}

func isTypeName(text string) bool {
	return text == "Number" || text == "String"
}

// peek returns the current lookahead token without consuming it.
// It returns nil at end of input.
func (p *Parser) peek() *Token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

// previous returns the most recently consumed token, or nil if there is none.
func (p *Parser) previous() *Token {
	if p.pos > 0 {
		return &p.tokens[p.pos-1]
	}
	return nil
}

// advance consumes and returns the current token.
// At end of input it returns nil and does not move.
func (p *Parser) advance() *Token {
	tok := p.peek()
	if tok != nil {
		p.pos++
	}
	return tok
}

// acceptSymbol consumes and returns the current token if it is sym.
// It returns nil if the current token does not match.
func (p *Parser) acceptSymbol(sym Symbol) *Token {
	if p.peek().IsSymbol(sym) {
		return p.advance()
	}
	return nil
}

// expect consumes and returns the current token if match accepts it.
// Otherwise it returns a ParseError for production.
func (p *Parser) expect(production Production, expected string, sentinel error, match func(tok *Token) bool) (*Token, error) {
	tok := p.peek()
	if tok == nil {
		return nil, p.errorEndOfInput(production, expected)
	} else if !match(tok) {
		return nil, p.errorUnexpected(production, expected, tok, sentinel)
	}
	return p.advance(), nil
}

func (p *Parser) expectIdentifier(production Production) (*Token, error) {
	return p.expect(production, "identifier", ErrExpectedIdentifier, func(tok *Token) bool {
		return tok.Is(IDENTIFIER)
	})
}

func (p *Parser) expectSymbol(production Production, sym Symbol, expected string, sentinel error) (*Token, error) {
	return p.expect(production, expected, sentinel, func(tok *Token) bool {
		return tok.IsSymbol(sym)
	})
}

// isAtEnd reports whether every token has been consumed.
func (p *Parser) isAtEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *Parser) errorUnexpected(production Production, expected string, tok *Token, sentinel error) *ParseError {
	found := *tok
	return &ParseError{
		Kind:       UnexpectedToken,
		Production: production,
		Expected:   expected,
		Found:      &found,
		Name:       p.name,
		Line:       tok.Line,
		Column:     tok.StartCol,
		Offset:     tok.Start,
		Err:        sentinel,
	}
}

func (p *Parser) errorUnsupported(production Production, tok *Token) *ParseError {
	err := p.errorUnexpected(production, "'class' or 'let'", tok, ErrUnsupportedKeyword)
	err.Kind = UnsupportedKeyword
	return err
}

// errorEndOfInput reports a production that ran out of tokens.
// The error points just past the last token.
func (p *Parser) errorEndOfInput(production Production, expected string) *ParseError {
	err := &ParseError{
		Kind:       UnexpectedEndOfInput,
		Production: production,
		Expected:   expected,
		Name:       p.name,
		Line:       1,
		Column:     1,
		Err:        ErrUnexpectedEndOfInput,
	}
	if last := p.previous(); last != nil {
		err.Line, err.Column, err.Offset = last.Line, last.EndCol, last.End
	}
	return err
}

func (p *Parser) debug(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(msg, append([]any{"name", p.name}, args...)...)
}
