// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mdhender/snippet"
)

func TestNode_WalkDepthAndPruning(t *testing.T) {
	root := mustParse(t, "class A { let a : Number = 1 }\nlet b : Number = 2")

	var visited []string
	root.Walk(func(n *snippet.Node, depth int) bool {
		visited = append(visited, strings.Repeat(".", depth)+n.Production.String())
		// do not descend into classes
		return n.Production != snippet.ClassDecl
	})
	want := []string{"ProgramRoot", ".ClassDecl", ".VarDecl", "..Ident", "..TypeDecl", "...Literal"}
	if got := strings.Join(visited, " "); got != strings.Join(want, " ") {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
}

func TestNode_Find(t *testing.T) {
	root := mustParse(t, "class A { let a : Number = 1 }\nlet b : Number = 2")

	var names []string
	for _, decl := range root.Find(snippet.VarDecl) {
		names = append(names, decl.Child(0).Value)
	}
	if got, want := strings.Join(names, ","), "a,b"; got != want {
		t.Fatalf("var names = %q, want %q", got, want)
	}
	if got := root.Find(snippet.FunctionDecl); len(got) != 0 {
		t.Fatalf("FunctionDecl = %d nodes, want 0", len(got))
	}
}

func TestNode_ChildOutOfRange(t *testing.T) {
	root := mustParse(t, "let a : Number = 1")
	if root.Child(-1) != nil || root.Child(1) != nil {
		t.Fatalf("out of range child is not nil")
	}
	var nilNode *snippet.Node
	if nilNode.Child(0) != nil {
		t.Fatalf("child of nil node is not nil")
	}
}

func TestNode_JSONUsesProductionNames(t *testing.T) {
	root := mustParse(t, "let a : Number = 1")
	data, err := json.Marshal(root.Child(0).Child(1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"production":"TypeDecl","value":"Number","span":{"start":8,"end":18,"line":1,"column":9},"children":[{"production":"Literal","value":"1","span":{"start":17,"end":18,"line":1,"column":18}}]}`
	if got := string(data); got != want {
		t.Fatalf("json\n got %s\nwant %s", got, want)
	}

	var back snippet.Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Production != snippet.TypeDecl || back.Child(0).Production != snippet.Literal {
		t.Fatalf("unmarshal = %s", &back)
	}
}
