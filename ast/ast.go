package ast

import (
	"github.com/strager/chocowat/diag"
)

// Node is implemented by every statement and expression.
type Node interface {
	Pos() diag.Span
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node. Its type annotation is unset until the type
// checker fills it.
type Expr interface {
	Node
	Type() Type
	SetType(Type)
	exprNode()
}

// Annotation is the type slot embedded in every expression.
type Annotation struct {
	Typ Type
}

func (a *Annotation) Type() Type      { return a.Typ }
func (a *Annotation) SetType(t Type) { a.Typ = t }

// BinOp is a binary operator tag.
type BinOp string

const (
	Plus    BinOp = "+"
	Minus   BinOp = "-"
	Mul     BinOp = "*"
	Div     BinOp = "//"
	Mod     BinOp = "%"
	Equal   BinOp = "=="
	Unequal BinOp = "!="
	Lt      BinOp = "<"
	Le      BinOp = "<="
	Gt      BinOp = ">"
	Ge      BinOp = ">="
	Is      BinOp = "is"
)

// UniOp is a unary operator tag.
type UniOp string

const (
	Not UniOp = "not"
	Neg UniOp = "-"
)

// LiteralKind discriminates literal values.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitTrue
	LitFalse
	LitNone
)

// Statements.

// Param is a typed function parameter.
type Param struct {
	Name string
	Type Type
	Span diag.Span
}

type FuncDef struct {
	Name   string
	Params []Param
	Ret    Type
	Body   []Stmt
	Span   diag.Span
}

// VarDecl declares a variable with a literal initializer.
type VarDecl struct {
	Name  string
	Type  Type
	Value Expr
	Span  diag.Span
}

// Assign stores Value into Target, which is a *Name or a *GetField.
type Assign struct {
	Target Expr
	Value  Expr
	Span   diag.Span
}

// CondBody is one arm of a conditional or a loop.
type CondBody struct {
	Cond Expr
	Body []Stmt
}

type If struct {
	If   CondBody
	Elif []CondBody
	Else []Stmt
	Span diag.Span
}

type While struct {
	Cond Expr
	Body []Stmt
	Span diag.Span
}

type Pass struct {
	Span diag.Span
}

type Return struct {
	Value Expr
	Span  diag.Span
}

type ExprStmt struct {
	Expr Expr
	Span diag.Span
}

type ClassDef struct {
	Name    string
	Fields  []*VarDecl
	Methods []*FuncDef
	Span    diag.Span
}

// Expressions.

type Literal struct {
	Annotation
	Kind  LiteralKind
	Value int32 // LitInt only
	Span  diag.Span
}

type Name struct {
	Annotation
	Name string
	Span diag.Span
}

type Unary struct {
	Annotation
	Op   UniOp
	Expr Expr
	Span diag.Span
}

type Binary struct {
	Annotation
	Op    BinOp
	Left  Expr
	Right Expr
	Span  diag.Span
}

// Call invokes a free function, a class constructor or the print intrinsic.
type Call struct {
	Annotation
	Name string
	Args []Expr
	Span diag.Span
}

type GetField struct {
	Annotation
	Obj   Expr
	Field string
	Span  diag.Span
}

type MethodCall struct {
	Annotation
	Obj    Expr
	Method string
	Args   []Expr
	Span   diag.Span
}

func (s *FuncDef) Pos() diag.Span  { return s.Span }
func (s *VarDecl) Pos() diag.Span  { return s.Span }
func (s *Assign) Pos() diag.Span   { return s.Span }
func (s *If) Pos() diag.Span       { return s.Span }
func (s *While) Pos() diag.Span    { return s.Span }
func (s *Pass) Pos() diag.Span     { return s.Span }
func (s *Return) Pos() diag.Span   { return s.Span }
func (s *ExprStmt) Pos() diag.Span { return s.Span }
func (s *ClassDef) Pos() diag.Span { return s.Span }

func (*FuncDef) stmtNode()  {}
func (*VarDecl) stmtNode()  {}
func (*Assign) stmtNode()   {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*Pass) stmtNode()     {}
func (*Return) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*ClassDef) stmtNode() {}

func (e *Literal) Pos() diag.Span    { return e.Span }
func (e *Name) Pos() diag.Span       { return e.Span }
func (e *Unary) Pos() diag.Span      { return e.Span }
func (e *Binary) Pos() diag.Span     { return e.Span }
func (e *Call) Pos() diag.Span       { return e.Span }
func (e *GetField) Pos() diag.Span   { return e.Span }
func (e *MethodCall) Pos() diag.Span { return e.Span }

func (*Literal) exprNode()    {}
func (*Name) exprNode()       {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Call) exprNode()       {}
func (*GetField) exprNode()   {}
func (*MethodCall) exprNode() {}

// IsDefinition reports whether s introduces a name into its block's scope.
func IsDefinition(s Stmt) bool {
	switch s.(type) {
	case *VarDecl, *FuncDef, *ClassDef:
		return true
	}
	return false
}

// NoneLiteral builds the implicit value of a bare `return`.
func NoneLiteral(span diag.Span) *Literal {
	return &Literal{Kind: LitNone, Span: span}
}
