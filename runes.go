// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"unicode"
	"unicode/utf8"
)

const (
	// CR and LF are control characters, respectively coded 0x0D (13 decimal) and 0x0A (10 decimal).
	// Windows uses CR + LF, Unix/Mac uses LF.
	// The lexer folds CR+LF into a single LF; a stray CR ends a word but is otherwise skipped.

	// CR is 0x0D or '\r'
	CR rune = rune(13)

	// LF is 0x0A or '\n'
	LF rune = rune(10)

	// EOF is a sentinel for end of input
	EOF rune = rune(-1)
)

func init() {
	for _, ch := range []byte{' ', ';', '\r', '\n', '(', ')', '"', ':', '~', '='} {
		terminals[ch] = true
	}
}

var (
	// terminals end a word or number scan without being part of it.
	terminals = [256]bool{}
)

func isterminal(ch rune) bool {
	if 0 <= ch && ch < utf8.RuneSelf {
		return terminals[byte(ch)]
	}
	return false
}

func isalnum(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
