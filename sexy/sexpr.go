// Package sexy reads s-expressions: the WebAssembly text emitted by the
// compiler and the AST patterns of markdown test suites.
package sexy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota + 1
	NodeString
	NodeInteger
	NodeList
)

// Node is one datum. Pos is the byte offset of its first character.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList
	Pos   int
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// IsSymbol reports whether n is the symbol name.
func (n *Node) IsSymbol(name string) bool {
	return n.Type == NodeSymbol && n.Text == name
}

// Head returns the symbol heading a list, or "" for atoms and lists that do
// not start with a symbol.
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// Int32 parses an integer node. Values up to 2^32-1 wrap, as i32 constants
// do in WebAssembly text.
func (n *Node) Int32() (int32, error) {
	if n.Type != NodeInteger {
		return 0, fmt.Errorf("offset %d: expected integer but got %s", n.Pos, n)
	}
	v, err := strconv.ParseInt(n.Text, 10, 64)
	if err != nil || v < -1<<31 || v > 1<<32-1 {
		return 0, fmt.Errorf("offset %d: integer %s out of range", n.Pos, n.Text)
	}
	return int32(uint32(v)), nil
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected one datum but got %d", len(nodes))
	}
	return nodes[0], nil
}

// ParseAll parses every top-level datum of input.
func ParseAll(input string) ([]*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()

	var nodes []*Node
	for p.currentToken.Type != tokenEOF {
		node, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if p.currentToken.Value != "" {
		// Lexer errors are reported through an EOF token carrying the message.
		return nil, fmt.Errorf("offset %d: %s", p.currentToken.Position, p.currentToken.Value)
	}
	return nodes, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return &Node{Type: NodeSymbol, Text: tok.Value, Pos: tok.Position}, nil
	case tokenString:
		p.nextToken()
		return &Node{Type: NodeString, Text: tok.Value, Pos: tok.Position}, nil
	case tokenInteger:
		p.nextToken()
		return &Node{Type: NodeInteger, Text: tok.Value, Pos: tok.Position}, nil
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("offset %d: unexpected token: %s", tok.Position, tok.Type)
	}
}

func (p *parser) parseList() (*Node, error) {
	list := &Node{Type: NodeList, Pos: p.currentToken.Position}
	p.nextToken() // consume '('

	for p.currentToken.Type != tokenRParen && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}

	if p.currentToken.Type != tokenRParen {
		if p.currentToken.Value != "" {
			return nil, fmt.Errorf("offset %d: %s", p.currentToken.Position, p.currentToken.Value)
		}
		return nil, fmt.Errorf("offset %d: expected ')' but got %s", p.currentToken.Position, p.currentToken.Type)
	}
	p.nextToken() // consume ')'
	return list, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

type lexer struct {
	input    string
	position int
	current  rune
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.current) {
		l.readChar()
	}
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

func (l *lexer) readSymbol() string {
	start := l.position - 1
	for isSymbolChar(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

func (l *lexer) readString() (string, error) {
	var sb strings.Builder
	l.readChar() // skip opening quote

	for l.current != '"' && l.current != 0 {
		if l.current == '\\' {
			l.readChar()
			switch l.current {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.current)
			}
		} else {
			sb.WriteRune(l.current)
		}
		l.readChar()
	}

	if l.current != '"' {
		return "", fmt.Errorf("unterminated string")
	}
	l.readChar() // skip closing quote
	return sb.String(), nil
}

func (l *lexer) readInteger() string {
	start := l.position - 1
	if l.current == '+' || l.current == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

// nextToken returns the next token. A lexical error yields an EOF token
// whose Value is the error message.
func (l *lexer) nextToken() token {
	for {
		l.skipWhitespace()
		pos := l.position - 1

		switch l.current {
		case 0:
			return token{Type: tokenEOF, Position: pos}
		case ';':
			if l.peekChar() != ';' {
				return token{Type: tokenEOF, Value: "unexpected character ';'", Position: pos}
			}
			l.skipComment()
			continue
		case '(':
			l.readChar()
			return token{Type: tokenLParen, Value: "(", Position: pos}
		case ')':
			l.readChar()
			return token{Type: tokenRParen, Value: ")", Position: pos}
		case '"':
			str, err := l.readString()
			if err != nil {
				return token{Type: tokenEOF, Value: err.Error(), Position: pos}
			}
			return token{Type: tokenString, Value: str, Position: pos}
		default:
			if isSymbolStart(l.current) {
				return token{Type: tokenSymbol, Value: l.readSymbol(), Position: pos}
			}
			if unicode.IsDigit(l.current) || l.current == '+' || l.current == '-' {
				if (l.current == '+' || l.current == '-') && !unicode.IsDigit(l.peekChar()) {
					// A lone sign is a symbol.
					return token{Type: tokenSymbol, Value: l.readSymbol(), Position: pos}
				}
				return token{Type: tokenInteger, Value: l.readInteger(), Position: pos}
			}
			return token{Type: tokenEOF, Value: fmt.Sprintf("unexpected character '%c'", l.current), Position: pos}
		}
	}
}

func isSymbolStart(r rune) bool {
	return unicode.IsLetter(r) || r == '$' || r == '_'
}

func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_$.+*/%<>=!", r)
}
