// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet_test

import (
	"errors"
	"testing"

	"github.com/mdhender/snippet"
)

func mustParse(t *testing.T, input string) *snippet.Node {
	t.Helper()
	_, root, err := snippet.ParseSource([]byte(input))
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return root
}

func TestParse_LetDecl(t *testing.T) {
	root := mustParse(t, "let x : Number = 5")
	if root.Production != snippet.ProgramRoot || len(root.Children) != 1 {
		t.Fatalf("root = %s", root)
	}
	decl := root.Child(0)
	if decl.Production != snippet.VarDecl || len(decl.Children) != 2 {
		t.Fatalf("decl = %s", decl)
	}
	if ident := decl.Child(0); ident.Production != snippet.Ident || ident.Value != "x" {
		t.Errorf("ident = %s, want Ident x", ident)
	}
	typeDecl := decl.Child(1)
	if typeDecl.Production != snippet.TypeDecl || typeDecl.Value != "Number" || len(typeDecl.Children) != 1 {
		t.Fatalf("type = %s, want TypeDecl Number with one child", typeDecl)
	}
	if lit := typeDecl.Child(0); lit.Production != snippet.Literal || lit.Value != "5" {
		t.Errorf("literal = %s, want Literal 5", lit)
	}
}

func TestParse_Outline(t *testing.T) {
	input := `class Point {
  let x : Number = 1;
  let y : Number = 2
}
let z : String = 3
`
	want := `ProgramRoot
  ClassDecl
    Ident Point
    VarDecl
      Ident x
      TypeDecl Number
        Literal 1
    VarDecl
      Ident y
      TypeDecl Number
        Literal 2
  VarDecl
    Ident z
    TypeDecl String
      Literal 3
`
	if got := mustParse(t, input).String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestParse_NestedClasses(t *testing.T) {
	root := mustParse(t, "class A { class B { } let a : Number = 1 }")
	classes := root.Find(snippet.ClassDecl)
	if len(classes) != 2 {
		t.Fatalf("classes = %d, want 2", len(classes))
	}
	a, b := classes[0], classes[1]
	if a.Child(0).Value != "A" || len(a.Children) != 3 {
		t.Errorf("A = %s", a)
	}
	if a.Child(1) != b {
		t.Errorf("B is not the first member of A")
	}
	if b.Child(0).Value != "B" || len(b.Children) != 1 {
		t.Errorf("B = %s", b)
	}
	if a.Child(2).Production != snippet.VarDecl {
		t.Errorf("A member 2 = %s, want VarDecl", a.Child(2))
	}
}

func TestParse_EmptyProgram(t *testing.T) {
	for _, input := range []string{"", "\n\n", "// only a comment\n"} {
		root := mustParse(t, input)
		if root.Production != snippet.ProgramRoot || len(root.Children) != 0 {
			t.Errorf("%q: root = %s, want empty ProgramRoot", input, root)
		}
		if root.Span.Line != 1 || root.Span.Column != 1 {
			t.Errorf("%q: root span = %+v, want line 1 column 1", input, root.Span)
		}
	}
}

func TestParse_Spans(t *testing.T) {
	input := "\nlet x : Number = 5;\nlet y : String = 6"
	root := mustParse(t, input)
	if got := string(root.Span.Text([]byte(input))); got != input[1:] {
		t.Errorf("root text = %q", got)
	}
	x := root.Child(0)
	if got := string(x.Span.Text([]byte(input))); got != "let x : Number = 5;" {
		t.Errorf("x text = %q", got)
	}
	if x.Span.Line != 2 || x.Span.Column != 1 {
		t.Errorf("x span = %+v, want line 2 column 1", x.Span)
	}
	y := root.Child(1)
	if got := string(y.Span.Text([]byte(input))); got != "let y : String = 6" {
		t.Errorf("y text = %q", got)
	}
	if tn := y.Child(1); string(tn.Span.Text([]byte(input))) != "String = 6" {
		t.Errorf("type text = %q", tn.Span.Text([]byte(input)))
	}
}

// The parser accepts hand-built token slices, not only lexer output.
func TestParse_LetFollowedBySemiColon(t *testing.T) {
	tokens := []snippet.Token{
		{Kind: snippet.KEYWORD, Keyword: snippet.Let, Text: "let", Line: 1, StartCol: 1, EndCol: 4, Start: 0, End: 3},
		{Kind: snippet.SYMBOL, Symbol: snippet.SemiColon, Text: ";", Line: 1, StartCol: 5, EndCol: 6, Start: 4, End: 5},
	}
	_, err := snippet.Parse(tokens)
	var parseErr *snippet.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if parseErr.Kind != snippet.UnexpectedToken {
		t.Errorf("kind = %s, want UnexpectedToken", parseErr.Kind)
	}
	if parseErr.Production != snippet.LetDecl {
		t.Errorf("production = %s, want LetDecl", parseErr.Production)
	}
	if !errors.Is(err, snippet.ErrExpectedIdentifier) {
		t.Errorf("errors.Is(err, ErrExpectedIdentifier) = false")
	}
	if !parseErr.Found.IsSymbol(snippet.SemiColon) {
		t.Errorf("found = %v, want Symbol(SemiColon)", parseErr.Found)
	}
	if got, want := err.Error(), "1:5: LetDecl: expected identifier, found Symbol(SemiColon)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, tc := range []struct {
		name       string
		input      string
		kind       snippet.ParseErrorKind
		production snippet.Production
		sentinel   error
		line, col  int
	}{
		{"missing colon", "let x Number = 5", snippet.UnexpectedToken, snippet.LetDecl, snippet.ErrExpectedColon, 1, 7},
		{"unknown type", "let x : Bool = 5", snippet.UnexpectedToken, snippet.TypeName, snippet.ErrExpectedTypeName, 1, 9},
		{"number as type", "let x : 5 = 5", snippet.UnexpectedToken, snippet.TypeName, snippet.ErrExpectedTypeName, 1, 9},
		{"missing assignment", "let x : Number 5", snippet.UnexpectedToken, snippet.LetDecl, snippet.ErrExpectedAssignment, 1, 16},
		{"identifier value", "let x : Number = y", snippet.UnexpectedToken, snippet.Literal, snippet.ErrExpectedNumber, 1, 18},
		{"string value", `let s : String = "abc"`, snippet.UnexpectedToken, snippet.Literal, snippet.ErrExpectedNumber, 1, 18},
		{"keyword as name", "let class : Number = 5", snippet.UnexpectedToken, snippet.LetDecl, snippet.ErrExpectedIdentifier, 1, 5},
		{"truncated let", "let x : Number =", snippet.UnexpectedEndOfInput, snippet.Literal, snippet.ErrUnexpectedEndOfInput, 1, 17},
		{"bare let", "let", snippet.UnexpectedEndOfInput, snippet.LetDecl, snippet.ErrUnexpectedEndOfInput, 1, 4},
		{"truncated type", "let x :", snippet.UnexpectedEndOfInput, snippet.TypeName, snippet.ErrUnexpectedEndOfInput, 1, 8},
		{"unclosed class", "class Foo {\n  let x : Number = 1", snippet.UnexpectedEndOfInput, snippet.ClassDecl, snippet.ErrUnexpectedEndOfInput, 2, 21},
		{"class without body", "class Foo let", snippet.UnexpectedToken, snippet.ClassDecl, snippet.ErrExpectedLCurly, 1, 11},
		{"class without name", "class { }", snippet.UnexpectedToken, snippet.ClassDecl, snippet.ErrExpectedIdentifier, 1, 7},
		{"unsupported keyword", "if", snippet.UnsupportedKeyword, snippet.Declaration, snippet.ErrUnsupportedKeyword, 1, 1},
		{"unsupported keyword in class", "class A { print }", snippet.UnsupportedKeyword, snippet.Declaration, snippet.ErrUnsupportedKeyword, 1, 11},
		{"stray identifier", "x", snippet.UnexpectedToken, snippet.Declaration, snippet.ErrExpectedDeclaration, 1, 1},
		{"stray brace", "let x : Number = 1 }", snippet.UnexpectedToken, snippet.Declaration, snippet.ErrExpectedDeclaration, 1, 20},
		{"double semicolon", "let x : Number = 1;;", snippet.UnexpectedToken, snippet.Declaration, snippet.ErrExpectedDeclaration, 1, 20},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := snippet.ParseSource([]byte(tc.input))
			var parseErr *snippet.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if parseErr.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", parseErr.Kind, tc.kind)
			}
			if parseErr.Production != tc.production {
				t.Errorf("production = %s, want %s", parseErr.Production, tc.production)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("err = %v, want %v", err, tc.sentinel)
			}
			if parseErr.Line != tc.line || parseErr.Column != tc.col {
				t.Errorf("position = %d:%d, want %d:%d", parseErr.Line, parseErr.Column, tc.line, tc.col)
			}
			if tc.kind == snippet.UnexpectedEndOfInput && parseErr.Found != nil {
				t.Errorf("found = %v, want nil at end of input", parseErr.Found)
			}
		})
	}
}

func TestParseSource_KeepsTokensOnParseError(t *testing.T) {
	tokens, root, err := snippet.ParseSource([]byte("let x : Number = y"), snippet.WithName("x.snip"))
	if err == nil || root != nil {
		t.Fatalf("root, err = %v, %v, want a parse error", root, err)
	}
	if len(tokens) != 6 {
		t.Errorf("tokens = %d, want 6", len(tokens))
	}
	if got, want := err.Error(), "x.snip:1:18: Literal: expected numeric literal, found Identifier(y)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseSource_LexErrorStopsParse(t *testing.T) {
	tokens, root, err := snippet.ParseSource([]byte(`let s : String = "abc`))
	if !errors.Is(err, snippet.ErrUnterminatedString) {
		t.Fatalf("err = %v, want ErrUnterminatedString", err)
	}
	if tokens != nil || root != nil {
		t.Errorf("tokens, root = %v, %v, want nil, nil", tokens, root)
	}
}

func TestProduction_Text(t *testing.T) {
	for _, p := range []snippet.Production{snippet.ProgramRoot, snippet.ClassDecl, snippet.VarDecl, snippet.Literal} {
		text, err := p.MarshalText()
		if err != nil {
			t.Fatalf("%v: marshal: %v", p, err)
		}
		var got snippet.Production
		if err := got.UnmarshalText(text); err != nil || got != p {
			t.Errorf("%s: round trip = %v, %v", text, got, err)
		}
	}
	var p snippet.Production
	if err := p.UnmarshalText([]byte("Nope")); err == nil {
		t.Errorf("UnmarshalText(Nope) did not fail")
	}
}
