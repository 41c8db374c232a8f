// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package snippet implements the front end for the snippet scripting
// language: a tokenizer that turns source text into positioned tokens and a
// recursive-descent parser that turns those tokens into a tree of class and
// variable declarations.
//
// Both stages are pure. They take their input, run to completion, and
// return either a result or a *LexError / *ParseError. Nothing panics or
// exits on malformed input.
package snippet

// ParseSource tokenizes input and parses the tokens. It returns the tokens
// even when parsing fails, so callers can report on them.
func ParseSource(input []byte, options ...Option) ([]Token, *Node, error) {
	tokens, err := Tokenize(input, options...)
	if err != nil {
		return nil, nil, err
	}
	root, err := Parse(tokens, options...)
	if err != nil {
		return tokens, nil, err
	}
	return tokens, root, nil
}
