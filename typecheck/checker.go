// Package typecheck resolves names against a scope stack and annotates every
// expression of a lowered program with its type.
package typecheck

import (
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/diag"
)

const initMethod = "__init__"

// reservedClassNames cannot name a user class.
var reservedClassNames = map[string]bool{"int": true, "bool": true, "object": true}

// reservedNames are taken by the print intrinsic and by the imports, globals
// and locals of generated code.
var reservedNames = map[string]bool{
	"print":      true,
	"print_num":  true,
	"print_bool": true,
	"print_none": true,
	"heap":       true,
	"scratch":    true,
}

// Checker holds the state of one type-checking pass.
type Checker struct {
	st *SymbolTable

	// fn is the function whose body is being checked, nil at module level.
	fn     *ast.FuncDef
	result ast.Type
}

func New() *Checker {
	return &Checker{st: NewSymbolTable()}
}

// Program type checks stmts with a fresh Checker.
func Program(stmts []ast.Stmt) ([]ast.Stmt, error) {
	return New().Program(stmts)
}

// Program annotates stmts in place and returns them. The first violation is
// returned as a *diag.Error.
func (c *Checker) Program(stmts []ast.Stmt) ([]ast.Stmt, error) {
	if err := checkBlockShape(stmts, true); err != nil {
		return nil, err
	}
	if err := c.declareModule(stmts); err != nil {
		return nil, err
	}
	for _, stmt := range stmts {
		if err := c.checkStmt(stmt); err != nil {
			return nil, err
		}
	}
	if len(stmts) > 0 {
		if last, ok := stmts[len(stmts)-1].(*ast.ExprStmt); ok {
			c.result = last.Expr.Type()
		}
	}
	return stmts, nil
}

// Result returns the type of the trailing expression statement of the last
// checked program, or the unset type if it does not end in one.
func (c *Checker) Result() ast.Type {
	return c.result
}

// checkBlockShape enforces that definitions precede every other statement
// of a block and that nested blocks contain no definitions at all.
// Functions and classes may only be defined in the module block.
func checkBlockShape(stmts []ast.Stmt, module bool) error {
	seenStmt := false
	for _, stmt := range stmts {
		if !ast.IsDefinition(stmt) {
			seenStmt = true
			if err := checkNestedBlocks(stmt); err != nil {
				return err
			}
			continue
		}
		if seenStmt {
			return diag.Errorf(diag.DefinitionOrderError, stmt.Pos(), "definitions must come before other statements")
		}
		if _, ok := stmt.(*ast.VarDecl); !ok && !module {
			return diag.Errorf(diag.DefinitionOrderError, stmt.Pos(), "functions and classes can only be defined at module level")
		}
	}
	return nil
}

func checkNestedBlocks(stmt ast.Stmt) error {
	var blocks [][]ast.Stmt
	switch s := stmt.(type) {
	case *ast.If:
		blocks = append(blocks, s.If.Body)
		for _, arm := range s.Elif {
			blocks = append(blocks, arm.Body)
		}
		blocks = append(blocks, s.Else)
	case *ast.While:
		blocks = append(blocks, s.Body)
	}
	for _, block := range blocks {
		for _, inner := range block {
			if ast.IsDefinition(inner) {
				return diag.Errorf(diag.DefinitionOrderError, inner.Pos(), "definitions are not allowed inside if or while blocks")
			}
			if err := checkNestedBlocks(inner); err != nil {
				return err
			}
		}
	}
	return nil
}

// declareModule registers every module-level definition before any
// statement is checked, so sibling definitions may refer to each other.
func (c *Checker) declareModule(stmts []ast.Stmt) error {
	var classes []*ast.ClassDef
	for _, stmt := range stmts {
		if class, ok := stmt.(*ast.ClassDef); ok {
			if reservedClassNames[class.Name] {
				return diag.Errorf(diag.ReferenceError, class.Span, "%s is a reserved type name", class.Name)
			}
			if err := c.declare(&Symbol{Name: class.Name, Kind: SymbolClass, Class: &Class{Name: class.Name}}, class.Span); err != nil {
				return err
			}
			classes = append(classes, class)
		}
	}

	// Class shapes are filled in after every class name is known, so fields
	// and signatures may name classes defined later in the module.
	for _, class := range classes {
		if err := c.declareClassMembers(class); err != nil {
			return err
		}
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FuncDef:
			sig, err := c.signature(s)
			if err != nil {
				return err
			}
			if err := c.declare(&Symbol{Name: s.Name, Kind: SymbolFunction, Func: sig}, s.Span); err != nil {
				return err
			}
		case *ast.VarDecl:
			if err := c.declareVar(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) declare(sym *Symbol, span diag.Span) error {
	if reservedNames[sym.Name] {
		return diag.Errorf(diag.ReferenceError, span, "%s is a reserved name", sym.Name)
	}
	return c.st.Declare(sym, span)
}

func (c *Checker) declareVar(decl *ast.VarDecl) error {
	if err := c.checkType(decl.Type, decl.Span); err != nil {
		return err
	}
	return c.declare(&Symbol{Name: decl.Name, Kind: SymbolVariable, Type: decl.Type}, decl.Span)
}

func (c *Checker) declareClassMembers(def *ast.ClassDef) error {
	class := c.st.LookupClass(def.Name)
	class.FieldTypes = map[string]ast.Type{}
	class.Methods = map[string]*Signature{}

	for _, field := range def.Fields {
		if _, dup := class.FieldTypes[field.Name]; dup {
			return diag.Errorf(diag.ReferenceError, field.Span, "field %s is already defined in class %s", field.Name, def.Name)
		}
		if err := c.checkType(field.Type, field.Span); err != nil {
			return err
		}
		class.Fields = append(class.Fields, field)
		class.FieldTypes[field.Name] = field.Type
	}

	self := ast.Object(def.Name)
	for _, method := range def.Methods {
		if _, dup := class.Methods[method.Name]; dup {
			return diag.Errorf(diag.ReferenceError, method.Span, "method %s is already defined in class %s", method.Name, def.Name)
		}
		if _, dup := class.FieldTypes[method.Name]; dup {
			return diag.Errorf(diag.ReferenceError, method.Span, "method %s is already defined as a field of class %s", method.Name, def.Name)
		}
		if len(method.Params) == 0 || method.Params[0].Type != self {
			return diag.Errorf(diag.TypeError, method.Span, "first parameter of method %s must have type %s", method.Name, def.Name)
		}
		if method.Name == initMethod {
			if len(method.Params) != 1 || method.Params[0].Name != "self" || method.Ret != ast.None {
				return diag.Errorf(diag.TypeError, method.Span, "%s of class %s must take only self and return nothing", initMethod, def.Name)
			}
		}
		sig, err := c.signature(method)
		if err != nil {
			return err
		}
		class.Methods[method.Name] = sig
	}
	return nil
}

func (c *Checker) signature(def *ast.FuncDef) (*Signature, error) {
	sig := &Signature{Ret: def.Ret}
	for _, param := range def.Params {
		if err := c.checkType(param.Type, param.Span); err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, param.Type)
	}
	if err := c.checkType(def.Ret, def.Span); err != nil {
		return nil, err
	}
	return sig, nil
}

// checkType rejects object types naming an undefined class.
func (c *Checker) checkType(t ast.Type, span diag.Span) error {
	if t.IsObject() && c.st.LookupClass(t.Class) == nil {
		return diag.Errorf(diag.ReferenceError, span, "class %s is not defined", t.Class)
	}
	return nil
}

func (c *Checker) checkStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return c.checkVarDecl(s)
	case *ast.FuncDef:
		return c.checkFunc(s, s.Name)
	case *ast.ClassDef:
		return c.checkClass(s)
	case *ast.Assign:
		return c.checkAssign(s)
	case *ast.If:
		if err := c.checkCondBody(s.If); err != nil {
			return err
		}
		for _, arm := range s.Elif {
			if err := c.checkCondBody(arm); err != nil {
				return err
			}
		}
		return c.checkBlock(s.Else)
	case *ast.While:
		return c.checkCondBody(ast.CondBody{Cond: s.Cond, Body: s.Body})
	case *ast.Pass:
		return nil
	case *ast.Return:
		return c.checkReturn(s)
	case *ast.ExprStmt:
		_, err := c.checkExpr(s.Expr)
		return err
	default:
		panic("unknown statement")
	}
}

func (c *Checker) checkBlock(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkCondBody(arm ast.CondBody) error {
	t, err := c.checkExpr(arm.Cond)
	if err != nil {
		return err
	}
	if t != ast.Bool {
		return diag.Errorf(diag.TypeError, arm.Cond.Pos(), "condition must be bool, got %s", t)
	}
	return c.checkBlock(arm.Body)
}

func (c *Checker) checkVarDecl(decl *ast.VarDecl) error {
	lit, ok := decl.Value.(*ast.Literal)
	if !ok {
		return diag.Errorf(diag.TypeError, decl.Value.Pos(), "variable %s must be initialized with a literal", decl.Name)
	}
	t, err := c.checkExpr(lit)
	if err != nil {
		return err
	}
	if !ast.IsAssignable(decl.Type, t) {
		return diag.Errorf(diag.TypeError, decl.Value.Pos(), "cannot initialize %s of type %s with %s", decl.Name, decl.Type, t)
	}
	return nil
}

// checkFunc checks a function or method body in a new scope holding its
// parameters and local declarations.
func (c *Checker) checkFunc(def *ast.FuncDef, displayName string) error {
	if err := checkBlockShape(def.Body, false); err != nil {
		return err
	}

	c.st.Push()
	defer c.st.Pop()
	for _, param := range def.Params {
		sym := &Symbol{Name: param.Name, Kind: SymbolVariable, Type: param.Type}
		if err := c.declare(sym, param.Span); err != nil {
			return err
		}
	}
	for _, stmt := range def.Body {
		if decl, ok := stmt.(*ast.VarDecl); ok {
			if err := c.declareVar(decl); err != nil {
				return err
			}
		}
	}

	outer := c.fn
	c.fn = def
	defer func() { c.fn = outer }()

	if err := c.checkBlock(def.Body); err != nil {
		return err
	}
	if def.Ret != ast.None && !terminates(def.Body) {
		return diag.Errorf(diag.TypeError, def.Span, "%s must return a %s on every path", displayName, def.Ret)
	}
	return nil
}

func (c *Checker) checkClass(def *ast.ClassDef) error {
	for _, field := range def.Fields {
		if err := c.checkVarDecl(field); err != nil {
			return err
		}
	}
	for _, method := range def.Methods {
		if err := c.checkFunc(method, def.Name+"."+method.Name); err != nil {
			return err
		}
		if method.Name == initMethod {
			method.Ret = ast.Object(def.Name)
		}
	}
	return nil
}

func (c *Checker) checkAssign(s *ast.Assign) error {
	var target ast.Type
	switch lhs := s.Target.(type) {
	case *ast.Name:
		sym := c.st.Lookup(lhs.Name)
		if sym == nil {
			return diag.Errorf(diag.ReferenceError, lhs.Span, "%s is not defined", lhs.Name)
		}
		if sym.Kind != SymbolVariable {
			return diag.Errorf(diag.TypeError, lhs.Span, "cannot assign to %s %s", sym.Kind, lhs.Name)
		}
		target = sym.Type
		lhs.SetType(target)
	case *ast.GetField:
		t, err := c.checkExpr(lhs)
		if err != nil {
			return err
		}
		target = t
	default:
		panic("unknown assignment target")
	}

	value, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	if !ast.IsAssignable(target, value) {
		return diag.Errorf(diag.TypeError, s.Value.Pos(), "cannot assign %s to %s", value, target)
	}
	return nil
}

func (c *Checker) checkReturn(s *ast.Return) error {
	if c.fn == nil {
		return diag.Errorf(diag.TypeError, s.Span, "return outside of function")
	}
	t, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	if !ast.IsAssignable(c.fn.Ret, t) {
		return diag.Errorf(diag.TypeError, s.Value.Pos(), "%s returned but %s expected", t, c.fn.Ret)
	}
	return nil
}

// terminates reports whether every path through stmts reaches a return.
// Loops never count as terminating.
func terminates(stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.If:
			if !terminates(s.If.Body) || !terminates(s.Else) {
				continue
			}
			all := true
			for _, arm := range s.Elif {
				all = all && terminates(arm.Body)
			}
			if all {
				return true
			}
		}
	}
	return false
}
