// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

// Kind implements enums for tokens
type Kind int

const (
	UNKNOWN Kind = iota

	WORD       // quoted string literal
	NUMBER     // signed 64-bit decimal literal
	IDENTIFIER // run of text that isn't a keyword or a number
	KEYWORD
	SYMBOL
)

var kindNames = [...]string{
	UNKNOWN:    "Unknown",
	WORD:       "Word",
	NUMBER:     "Number",
	IDENTIFIER: "Identifier",
	KEYWORD:    "Keyword",
	SYMBOL:     "Symbol",
}

func (k Kind) String() string {
	if 0 <= k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Keyword is the payload of a KEYWORD token.
type Keyword int

const (
	NotAKeyword Keyword = iota
	If
	Return
	Else
	Class
	Let
	Print
	Section
	Snippet
)

var keywordNames = [...]string{
	NotAKeyword: "",
	If:          "if",
	Return:      "return",
	Else:        "else",
	Class:       "class",
	Let:         "let",
	Print:       "print",
	Section:     "section",
	Snippet:     "snippet",
}

func (k Keyword) String() string {
	if 0 <= k && int(k) < len(keywordNames) {
		return keywordNames[k]
	}
	return "Keyword(?)"
}

// keywords is the closed keyword table. It is checked before any attempt
// to read the text as a number.
var keywords = map[string]Keyword{
	"if":      If,
	"return":  Return,
	"else":    Else,
	"class":   Class,
	"let":     Let,
	"print":   Print,
	"section": Section,
	"snippet": Snippet,
}

// LookupKeyword returns the keyword for text, or NotAKeyword.
func LookupKeyword(text string) (Keyword, bool) {
	kw, ok := keywords[text]
	return kw, ok
}

// Symbol is the payload of a SYMBOL token.
type Symbol int

const (
	NotASymbol Symbol = iota
	LParen
	RParen
	LCurly
	RCurly
	Comma
	Colon
	SemiColon
	Assignment   // =
	Comparison   // ==
	ReturnType   // ~
	BinOp        // + - * /, operator is in Token.Op
	RelationalOp // < >, operator is in Token.Op
	And          // &
	Or           // |
)

var symbolNames = [...]string{
	NotASymbol:   "",
	LParen:       "LParen",
	RParen:       "RParen",
	LCurly:       "LCurly",
	RCurly:       "RCurly",
	Comma:        "Comma",
	Colon:        "Colon",
	SemiColon:    "SemiColon",
	Assignment:   "Assignment",
	Comparison:   "Comparison",
	ReturnType:   "ReturnType",
	BinOp:        "BinOp",
	RelationalOp: "RelationalOp",
	And:          "And",
	Or:           "Or",
}

func (s Symbol) String() string {
	if 0 <= s && int(s) < len(symbolNames) {
		return symbolNames[s]
	}
	return "Symbol(?)"
}

// punctuation maps the single-character symbols that never need lookahead.
var punctuation = map[rune]Symbol{
	'(': LParen,
	')': RParen,
	'{': LCurly,
	'}': RCurly,
	',': Comma,
	':': Colon,
	';': SemiColon,
	'~': ReturnType,
	'&': And,
	'|': Or,
}
