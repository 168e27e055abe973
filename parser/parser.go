// Package parser lowers the tree-sitter syntax tree built by package cst
// into the untyped AST. Every node kind it does not recognize is a
// SyntaxError.
package parser

import (
	"strconv"
	"strings"

	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/cst"
	"github.com/strager/chocowat/diag"
)

// Parse builds the concrete syntax tree of source and lowers it.
func Parse(source string) ([]ast.Stmt, error) {
	tree, err := cst.Parse(source)
	if err != nil {
		return nil, err
	}
	return Traverse(tree.Cursor(), source)
}

// Traverse lowers the module node under c. Every traverse function expects
// the cursor on the node it lowers and leaves it there on success.
func Traverse(c *cst.Cursor, s string) ([]ast.Stmt, error) {
	if c.Name() != "module" {
		return nil, unsupported(c, "program")
	}
	return traverseBlock(c, s)
}

func unsupported(c *cst.Cursor, what string) error {
	return diag.Errorf(diag.SyntaxError, c.Span(), "unsupported %s %s", what, c.Name())
}

// eachChild calls fn with the cursor on each child of the current node in
// turn, then moves back to the node.
func eachChild(c *cst.Cursor, fn func() error) error {
	if !c.FirstChild() {
		return nil
	}
	defer c.Parent()
	for {
		if err := fn(); err != nil {
			return err
		}
		if !c.NextSibling() {
			return nil
		}
	}
}

// traverseBlock lowers the statements of a module or block node.
func traverseBlock(c *cst.Cursor, s string) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	err := eachChild(c, func() error {
		if !c.IsNamed() {
			return nil // ;
		}
		stmt, err := traverseStmt(c, s)
		if err != nil {
			return err
		}
		stmts = append(stmts, stmt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

func traverseStmt(c *cst.Cursor, s string) (ast.Stmt, error) {
	switch c.Name() {
	case "expression_statement":
		return traverseExprStmt(c, s)
	case "function_definition":
		return traverseFuncDef(c, s)
	case "class_definition":
		return traverseClassDef(c, s)
	case "if_statement":
		return traverseIf(c, s)
	case "while_statement":
		span := c.Span()
		loop, err := traverseCondBody(c, s, nil)
		if err != nil {
			return nil, err
		}
		return &ast.While{Cond: loop.Cond, Body: loop.Body, Span: span}, nil
	case "pass_statement":
		return &ast.Pass{Span: c.Span()}, nil
	case "return_statement":
		ret := &ast.Return{Span: c.Span()}
		err := eachChild(c, func() error {
			if c.Name() == "return" {
				ret.Value = ast.NoneLiteral(c.Span())
				return nil
			}
			value, err := traverseExpr(c, s)
			ret.Value = value
			return err
		})
		if err != nil {
			return nil, err
		}
		return ret, nil
	default:
		return nil, unsupported(c, "statement")
	}
}

// traverseExprStmt lowers an expression_statement, which holds either an
// assignment or a single expression.
func traverseExprStmt(c *cst.Cursor, s string) (ast.Stmt, error) {
	span := c.Span()
	var stmt ast.Stmt
	err := eachChild(c, func() error {
		if stmt != nil {
			return diag.Errorf(diag.SyntaxError, span, "tuples are not supported")
		}
		switch c.Name() {
		case "assignment":
			assign, err := traverseAssign(c, s)
			stmt = assign
			return err
		case "augmented_assignment":
			return unsupported(c, "statement")
		default:
			expr, err := traverseExpr(c, s)
			stmt = &ast.ExprStmt{Expr: expr, Span: span}
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// traverseAssign lowers `target: T = value` into a declaration and
// `target = value` into an assignment.
func traverseAssign(c *cst.Cursor, s string) (ast.Stmt, error) {
	span := c.Span()
	c.FirstChild()
	defer c.Parent()

	targetKind, targetSpan := c.Name(), c.Span()
	var target ast.Expr
	if targetKind == "identifier" || targetKind == "attribute" {
		var err error
		if target, err = traverseExpr(c, s); err != nil {
			return nil, err
		}
	}

	c.NextSibling()
	if c.Name() == ":" {
		name, ok := target.(*ast.Name)
		if !ok {
			return nil, diag.Errorf(diag.SyntaxError, targetSpan, "only names can be declared, not %s", targetKind)
		}
		c.NextSibling()
		typ, err := traverseType(c, s)
		if err != nil {
			return nil, err
		}
		if !c.NextSibling() {
			return nil, diag.Errorf(diag.SyntaxError, span, "declaration of %s must have an initial value", name.Name)
		}
		c.NextSibling()
		value, err := traverseExpr(c, s)
		if err != nil {
			return nil, err
		}
		return &ast.VarDecl{Name: name.Name, Type: typ, Value: value, Span: span}, nil
	}

	if target == nil {
		return nil, diag.Errorf(diag.SyntaxError, targetSpan, "cannot assign to %s", targetKind)
	}
	c.NextSibling()
	value, err := traverseExpr(c, s)
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Target: target, Value: value, Span: span}, nil
}

// traverseType lowers a type node. Names other than int and bool are taken
// as class names; whether the class exists is checked later.
func traverseType(c *cst.Cursor, s string) (ast.Type, error) {
	if c.Name() != "type" || !c.FirstChild() {
		return ast.Type{}, unsupported(c, "type")
	}
	defer c.Parent()
	switch c.Name() {
	case "identifier":
		return typeNamed(c.Text()), nil
	case "none":
		return ast.None, nil
	case "string":
		return typeNamed(strings.Trim(c.Text(), `'"`)), nil
	default:
		return ast.Type{}, unsupported(c, "type")
	}
}

func typeNamed(name string) ast.Type {
	switch name {
	case "int":
		return ast.Int
	case "bool":
		return ast.Bool
	default:
		return ast.Object(name)
	}
}

func traverseParams(c *cst.Cursor, s string) ([]ast.Param, error) {
	var params []ast.Param
	err := eachChild(c, func() error {
		switch c.Name() {
		case "(", ",", ")":
			return nil
		case "identifier":
			return diag.Errorf(diag.SyntaxError, c.Span(), "missed type annotation for parameter %s", c.Text())
		case "typed_parameter":
			c.FirstChild()
			defer c.Parent()
			if c.Name() != "identifier" {
				return unsupported(c, "parameter")
			}
			name, span := c.Text(), c.Span()
			c.NextSibling() // :
			c.NextSibling()
			typ, err := traverseType(c, s)
			if err != nil {
				return err
			}
			params = append(params, ast.Param{Name: name, Type: typ, Span: span})
			return nil
		default:
			return unsupported(c, "parameter")
		}
	})
	if err != nil {
		return nil, err
	}
	return params, nil
}

func traverseFuncDef(c *cst.Cursor, s string) (*ast.FuncDef, error) {
	def := &ast.FuncDef{Ret: ast.None, Span: c.Span()}
	err := eachChild(c, func() error {
		var err error
		switch c.Name() {
		case "def", "->", ":":
		case "identifier":
			def.Name = c.Text()
		case "parameters":
			def.Params, err = traverseParams(c, s)
		case "type":
			def.Ret, err = traverseType(c, s)
		case "block":
			def.Body, err = traverseBlock(c, s)
		default:
			err = unsupported(c, "function syntax")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// traverseCondBody lowers the condition and block of an if_statement,
// elif_clause or while_statement. Clauses are handed to clause; without
// one they are rejected.
func traverseCondBody(c *cst.Cursor, s string, clause func() error) (ast.CondBody, error) {
	var cb ast.CondBody
	err := eachChild(c, func() error {
		var err error
		switch {
		case !c.IsNamed():
		case c.Name() == "block":
			cb.Body, err = traverseBlock(c, s)
		case c.Name() == "elif_clause" || c.Name() == "else_clause":
			if clause == nil {
				return unsupported(c, "clause")
			}
			err = clause()
		default:
			cb.Cond, err = traverseExpr(c, s)
		}
		return err
	})
	return cb, err
}

func traverseIf(c *cst.Cursor, s string) (*ast.If, error) {
	stmt := &ast.If{Span: c.Span()}
	var err error
	stmt.If, err = traverseCondBody(c, s, func() error {
		if c.Name() == "elif_clause" {
			elif, err := traverseCondBody(c, s, nil)
			stmt.Elif = append(stmt.Elif, elif)
			return err
		}
		return eachChild(c, func() error {
			if c.Name() != "block" {
				return nil
			}
			body, err := traverseBlock(c, s)
			stmt.Else = body
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

func traverseClassDef(c *cst.Cursor, s string) (*ast.ClassDef, error) {
	class := &ast.ClassDef{Span: c.Span()}
	err := eachChild(c, func() error {
		switch c.Name() {
		case "class", ":":
			return nil
		case "identifier":
			class.Name = c.Text()
			return nil
		case "argument_list":
			return checkClassBases(c)
		case "block":
			return eachChild(c, func() error {
				return traverseClassMember(c, s, class)
			})
		default:
			return unsupported(c, "class syntax")
		}
	})
	if err != nil {
		return nil, err
	}
	return class, nil
}

func traverseClassMember(c *cst.Cursor, s string, class *ast.ClassDef) error {
	switch c.Name() {
	case "pass_statement":
		return nil
	case "function_definition":
		method, err := traverseFuncDef(c, s)
		if err != nil {
			return err
		}
		class.Methods = append(class.Methods, method)
		return nil
	case "expression_statement":
		c.FirstChild()
		defer c.Parent()
		if c.Name() != "assignment" {
			return unsupported(c, "class member")
		}
		stmt, err := traverseAssign(c, s)
		if err != nil {
			return err
		}
		field, ok := stmt.(*ast.VarDecl)
		if !ok {
			return diag.Errorf(diag.SyntaxError, c.Span(), "class fields must be declared with a type")
		}
		class.Fields = append(class.Fields, field)
		return nil
	default:
		if !c.IsNamed() {
			return nil // ;
		}
		return unsupported(c, "class member")
	}
}

// checkClassBases accepts `()` and `(object)`.
func checkClassBases(c *cst.Cursor) error {
	span := c.Span()
	var bases []string
	eachChild(c, func() error {
		if c.IsNamed() {
			bases = append(bases, c.Text())
		}
		return nil
	})
	if len(bases) == 0 || (len(bases) == 1 && bases[0] == "object") {
		return nil
	}
	return diag.Errorf(diag.SyntaxError, span, "inheritance is not supported: %s", strings.Join(bases, ", "))
}

func traverseArgs(c *cst.Cursor, s string) ([]ast.Expr, error) {
	if c.Name() != "argument_list" {
		return nil, unsupported(c, "argument")
	}
	var args []ast.Expr
	err := eachChild(c, func() error {
		if !c.IsNamed() {
			return nil
		}
		arg, err := traverseExpr(c, s)
		if err != nil {
			return err
		}
		args = append(args, arg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return args, nil
}

var binOps = map[string]ast.BinOp{
	"+":  ast.Plus,
	"-":  ast.Minus,
	"*":  ast.Mul,
	"//": ast.Div,
	"%":  ast.Mod,
	"==": ast.Equal,
	"!=": ast.Unequal,
	"<":  ast.Lt,
	"<=": ast.Le,
	">":  ast.Gt,
	">=": ast.Ge,
	"is": ast.Is,
}

func traverseExpr(c *cst.Cursor, s string) (ast.Expr, error) {
	span := c.Span()
	switch c.Name() {
	case "integer":
		value, err := parseInt(c.Text(), false, span)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitInt, Value: value, Span: span}, nil
	case "true":
		return &ast.Literal{Kind: ast.LitTrue, Span: span}, nil
	case "false":
		return &ast.Literal{Kind: ast.LitFalse, Span: span}, nil
	case "none":
		return &ast.Literal{Kind: ast.LitNone, Span: span}, nil
	case "identifier":
		return &ast.Name{Name: c.Text(), Span: span}, nil
	case "parenthesized_expression":
		var inner ast.Expr
		err := eachChild(c, func() error {
			if !c.IsNamed() {
				return nil
			}
			var err error
			inner, err = traverseExpr(c, s)
			return err
		})
		if err != nil {
			return nil, err
		}
		return inner, nil
	case "unary_operator", "not_operator":
		return traverseUnary(c, s)
	case "binary_operator", "comparison_operator", "boolean_operator":
		return traverseBinary(c, s)
	case "call":
		return traverseCall(c, s)
	case "attribute":
		obj, field, err := traverseAttribute(c, s)
		if err != nil {
			return nil, err
		}
		return &ast.GetField{Obj: obj, Field: field, Span: span}, nil
	default:
		return nil, unsupported(c, "expression")
	}
}

// traverseBinary lowers the operator nodes. Operators are the only
// anonymous children; a second one means a chained comparison.
func traverseBinary(c *cst.Cursor, s string) (ast.Expr, error) {
	span := c.Span()
	var (
		left, right ast.Expr
		op          ast.BinOp
		seenOp      bool
	)
	err := eachChild(c, func() error {
		if !c.IsNamed() {
			if seenOp {
				return diag.Errorf(diag.SyntaxError, span, "chained comparisons are not supported")
			}
			var ok bool
			if op, ok = binOps[c.Name()]; !ok {
				return diag.Errorf(diag.SyntaxError, c.Span(), "unsupported operator %q", c.Name())
			}
			seenOp = true
			return nil
		}
		expr, err := traverseExpr(c, s)
		if seenOp {
			right = expr
		} else {
			left = expr
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ast.Binary{Op: op, Left: left, Right: right, Span: span}, nil
}

// traverseUnary lowers `not e` and `-e`.
func traverseUnary(c *cst.Cursor, s string) (ast.Expr, error) {
	span := c.Span()
	c.FirstChild()
	defer c.Parent()
	var op ast.UniOp
	switch c.Name() {
	case "not":
		op = ast.Not
	case "-":
		op = ast.Neg
	default:
		return nil, diag.Errorf(diag.SyntaxError, c.Span(), "unsupported operator %q", c.Name())
	}
	c.NextSibling()

	// A negated integer stays a literal, so `x: int = -1` is still a
	// literal declaration and -2147483648 fits.
	if op == ast.Neg && c.Name() == "integer" {
		value, err := parseInt(c.Text(), true, span)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LitInt, Value: value, Span: span}, nil
	}

	operand, err := traverseExpr(c, s)
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Op: op, Expr: operand, Span: span}, nil
}

func parseInt(digits string, negative bool, span diag.Span) (int32, error) {
	if strings.Trim(digits, "0123456789") != "" {
		return 0, diag.Errorf(diag.SyntaxError, span, "unsupported integer literal %s", digits)
	}
	if negative {
		digits = "-" + digits
	}
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, diag.Errorf(diag.SyntaxError, span, "integer literal %s does not fit in 32 bits", digits)
	}
	return int32(n), nil
}

// traverseAttribute lowers the object of obj.name and returns the name.
func traverseAttribute(c *cst.Cursor, s string) (ast.Expr, string, error) {
	c.FirstChild()
	defer c.Parent()
	obj, err := traverseExpr(c, s)
	if err != nil {
		return nil, "", err
	}
	c.NextSibling() // .
	c.NextSibling()
	return obj, c.Text(), nil
}

// traverseCall lowers f(args) into a Call and obj.m(args) into a
// MethodCall.
func traverseCall(c *cst.Cursor, s string) (ast.Expr, error) {
	span := c.Span()
	c.FirstChild()
	defer c.Parent()
	switch c.Name() {
	case "identifier":
		name := c.Text()
		c.NextSibling()
		args, err := traverseArgs(c, s)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Name: name, Args: args, Span: span}, nil
	case "attribute":
		obj, method, err := traverseAttribute(c, s)
		if err != nil {
			return nil, err
		}
		c.NextSibling()
		args, err := traverseArgs(c, s)
		if err != nil {
			return nil, err
		}
		return &ast.MethodCall{Obj: obj, Method: method, Args: args, Span: span}, nil
	default:
		return nil, unsupported(c, "call target")
	}
}
