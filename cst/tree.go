// Package cst builds the concrete syntax tree of a Python source text with
// tree-sitter. The grammar covers all of Python; rejecting unsupported
// constructs is left to the consumer of the tree.
package cst

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/strager/chocowat/diag"
)

// Tree is a parsed source text without syntax errors.
type Tree struct {
	Source string

	tree *sitter.Tree
	root *sitter.Node
}

// Parse builds the concrete syntax tree of source. The first ERROR or
// MISSING node tree-sitter recovered with is reported as a SyntaxError;
// it is flagged incomplete when more input could close the construct.
func Parse(source string) (*Tree, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, source)
	}
	return &Tree{Source: source, tree: tree, root: root}, nil
}

func syntaxError(root *sitter.Node, source string) error {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}
	span := spanOf(bad)
	if incomplete(root, source) {
		end := len(strings.TrimRight(source, " \t\r\n"))
		return diag.Incompletef(diag.Span{From: end, To: end}, "unexpected end of input")
	}
	if bad.IsMissing() {
		return diag.Errorf(diag.SyntaxError, span, "invalid syntax, expected %q", bad.Type())
	}
	return diag.Errorf(diag.SyntaxError, span, "invalid syntax")
}

// firstError returns the leftmost ERROR or MISSING node under n.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// incomplete reports whether source stops inside an open bracket or right
// after the colon that opens a block.
func incomplete(root *sitter.Node, source string) bool {
	if strings.HasSuffix(strings.TrimRight(source, " \t\r\n"), ":") {
		return true
	}
	return bracketDepth(root) > 0
}

func bracketDepth(n *sitter.Node) int {
	if n.ChildCount() == 0 {
		if n.IsMissing() {
			return 0
		}
		switch n.Type() {
		case "(", "[", "{":
			return 1
		case ")", "]", "}":
			return -1
		}
		return 0
	}
	depth := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		depth += bracketDepth(n.Child(i))
	}
	return depth
}

func spanOf(n *sitter.Node) diag.Span {
	return diag.Span{From: int(n.StartByte()), To: int(n.EndByte())}
}

func skipped(n *sitter.Node) bool {
	return n.Type() == "comment"
}

// String renders the named nodes of the tree as kind(child,child,...).
func (t *Tree) String() string {
	var sb strings.Builder
	write(&sb, t.root)
	return sb.String()
}

func write(sb *strings.Builder, n *sitter.Node) {
	sb.WriteString(n.Type())
	first := true
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if skipped(child) {
			continue
		}
		if first {
			sb.WriteByte('(')
			first = false
		} else {
			sb.WriteByte(',')
		}
		write(sb, child)
	}
	if !first {
		sb.WriteByte(')')
	}
}

// Cursor returns a cursor positioned on the module node.
func (t *Tree) Cursor() *Cursor {
	return &Cursor{tree: t, node: t.root}
}

// Cursor navigates a Tree. Comments are stepped over. Movement methods
// report whether they moved; a failed move leaves the cursor where it was.
type Cursor struct {
	tree *Tree
	node *sitter.Node
	path []step
}

// step is an ancestor of the current node and the index of the child that
// was taken from it.
type step struct {
	parent *sitter.Node
	index  int
}

// Name returns the node kind. Anonymous tokens are named by their text.
func (c *Cursor) Name() string { return c.node.Type() }

// IsNamed reports whether the node is a grammar node rather than a keyword
// or punctuation token.
func (c *Cursor) IsNamed() bool { return c.node.IsNamed() }

func (c *Cursor) From() int { return int(c.node.StartByte()) }

func (c *Cursor) To() int { return int(c.node.EndByte()) }

func (c *Cursor) Span() diag.Span { return spanOf(c.node) }

// Text returns the source text covered by the current node.
func (c *Cursor) Text() string {
	return c.tree.Source[c.node.StartByte():c.node.EndByte()]
}

func (c *Cursor) FirstChild() bool {
	return c.childFrom(c.node, 0)
}

func (c *Cursor) NextSibling() bool {
	if len(c.path) == 0 {
		return false
	}
	top := c.path[len(c.path)-1]
	c.path = c.path[:len(c.path)-1]
	if c.childFrom(top.parent, top.index+1) {
		return true
	}
	c.path = append(c.path, top)
	return false
}

func (c *Cursor) Parent() bool {
	if len(c.path) == 0 {
		return false
	}
	c.node = c.path[len(c.path)-1].parent
	c.path = c.path[:len(c.path)-1]
	return true
}

// childFrom moves to the first child of parent at or after index.
func (c *Cursor) childFrom(parent *sitter.Node, index int) bool {
	for i := index; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if skipped(child) {
			continue
		}
		c.path = append(c.path, step{parent: parent, index: i})
		c.node = child
		return true
	}
	return false
}
