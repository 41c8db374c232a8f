// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"fmt"
	"strings"
)

// Production names a grammar rule or tags an AST node.
type Production int

const (
	NoProduction Production = iota
	ProgramRoot
	Declaration
	ClassDecl
	BlockBody
	LetDecl
	VarDecl
	TypeDecl
	TypeName
	FunctionDecl
	Expression
	Ident
	Literal
)

var productionNames = [...]string{
	NoProduction: "",
	ProgramRoot:  "ProgramRoot",
	Declaration:  "Declaration",
	ClassDecl:    "ClassDecl",
	BlockBody:    "BlockBody",
	LetDecl:      "LetDecl",
	VarDecl:      "VarDecl",
	TypeDecl:     "TypeDecl",
	TypeName:     "TypeName",
	FunctionDecl: "FunctionDecl",
	Expression:   "Expression",
	Ident:        "Ident",
	Literal:      "Literal",
}

func (p Production) String() string {
	if 0 <= p && int(p) < len(productionNames) {
		return productionNames[p]
	}
	return fmt.Sprintf("Production(%d)", int(p))
}

// MarshalText lets encoders write productions by name.
func (p Production) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (p *Production) UnmarshalText(text []byte) error {
	for i, name := range productionNames {
		if name == string(text) {
			*p = Production(i)
			return nil
		}
	}
	return fmt.Errorf("unknown production %q", string(text))
}

// Node is a node in the declaration tree.
//
// Production is NoProduction for untagged nodes. Value and Operator are
// empty when the node has none. Each node owns its children; the tree has
// no back pointers.
type Node struct {
	Production Production `json:"production,omitempty" yaml:"production,omitempty"`
	Value      string     `json:"value,omitempty" yaml:"value,omitempty"`
	Operator   string     `json:"operator,omitempty" yaml:"operator,omitempty"`
	Span       Span       `json:"span" yaml:"span"`
	Children   []*Node    `json:"children,omitempty" yaml:"children,omitempty"`
}

func newNode(production Production, value string, span Span, children ...*Node) *Node {
	return &Node{
		Production: production,
		Value:      value,
		Span:       span,
		Children:   children,
	}
}

// Child returns the i'th child, or nil if there is none.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Walk calls fn for n and its descendants in source order.
// If fn returns false, the children of that node are skipped.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(n *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, ch := range n.Children {
		ch.walk(fn, depth+1)
	}
}

// Find returns every node tagged with production, in source order.
func (n *Node) Find(production Production) []*Node {
	var list []*Node
	n.Walk(func(node *Node, _ int) bool {
		if node.Production == production {
			list = append(list, node)
		}
		return true
	})
	return list
}

// String renders the subtree as an indented outline, one node per line.
func (n *Node) String() string {
	var sb strings.Builder
	n.Walk(func(node *Node, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(node.Production.String())
		if node.Value != "" {
			sb.WriteByte(' ')
			sb.WriteString(node.Value)
		}
		if node.Operator != "" {
			sb.WriteString(" op=")
			sb.WriteString(node.Operator)
		}
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
