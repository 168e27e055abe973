package typecheck

import (
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/diag"
)

// checkExpr resolves the type of e, stores it in e's annotation and returns
// it.
func (c *Checker) checkExpr(e ast.Expr) (ast.Type, error) {
	t, err := c.typeOf(e)
	if err != nil {
		return ast.Type{}, err
	}
	e.SetType(t)
	return t, nil
}

func (c *Checker) typeOf(e ast.Expr) (ast.Type, error) {
	switch e := e.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.LitInt:
			return ast.Int, nil
		case ast.LitTrue, ast.LitFalse:
			return ast.Bool, nil
		default:
			return ast.None, nil
		}
	case *ast.Name:
		sym := c.st.Lookup(e.Name)
		if sym == nil {
			return ast.Type{}, diag.Errorf(diag.ReferenceError, e.Span, "%s is not defined", e.Name)
		}
		if sym.Kind != SymbolVariable {
			return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "%s %s cannot be used as a value", sym.Kind, e.Name)
		}
		return sym.Type, nil
	case *ast.Unary:
		return c.checkUnary(e)
	case *ast.Binary:
		return c.checkBinary(e)
	case *ast.Call:
		return c.checkCall(e)
	case *ast.GetField:
		class, err := c.objectClass(e.Obj, "field access")
		if err != nil {
			return ast.Type{}, err
		}
		t, ok := class.FieldTypes[e.Field]
		if !ok {
			return ast.Type{}, diag.Errorf(diag.ReferenceError, e.Span, "class %s has no field %s", class.Name, e.Field)
		}
		return t, nil
	case *ast.MethodCall:
		return c.checkMethodCall(e)
	default:
		panic("unknown expression")
	}
}

func (c *Checker) checkUnary(e *ast.Unary) (ast.Type, error) {
	t, err := c.checkExpr(e.Expr)
	if err != nil {
		return ast.Type{}, err
	}
	want := ast.Int
	if e.Op == ast.Not {
		want = ast.Bool
	}
	if t != want {
		return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "operator %s expects %s, got %s", e.Op, want, t)
	}
	return want, nil
}

func (c *Checker) checkBinary(e *ast.Binary) (ast.Type, error) {
	left, err := c.checkExpr(e.Left)
	if err != nil {
		return ast.Type{}, err
	}
	right, err := c.checkExpr(e.Right)
	if err != nil {
		return ast.Type{}, err
	}

	switch e.Op {
	case ast.Plus, ast.Minus, ast.Mul, ast.Div, ast.Mod:
		if left != ast.Int || right != ast.Int {
			return ast.Type{}, operandError(e, "int", left, right)
		}
		return ast.Int, nil
	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		if left != ast.Int || right != ast.Int {
			return ast.Type{}, operandError(e, "int", left, right)
		}
		return ast.Bool, nil
	case ast.Equal, ast.Unequal:
		if left != right || (left != ast.Int && left != ast.Bool) {
			return ast.Type{}, operandError(e, "two int or two bool", left, right)
		}
		return ast.Bool, nil
	case ast.Is:
		if !left.IsReference() || !right.IsReference() {
			return ast.Type{}, operandError(e, "object or none", left, right)
		}
		return ast.Bool, nil
	default:
		panic("unknown binary operator")
	}
}

func operandError(e *ast.Binary, want string, left, right ast.Type) error {
	return diag.Errorf(diag.TypeError, e.Span, "operator %s expects %s operands, got %s and %s", e.Op, want, left, right)
}

func (c *Checker) checkCall(e *ast.Call) (ast.Type, error) {
	if e.Name == "print" {
		if len(e.Args) != 1 {
			return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "print expects exactly one argument, got %d", len(e.Args))
		}
		if _, err := c.checkExpr(e.Args[0]); err != nil {
			return ast.Type{}, err
		}
		return ast.None, nil
	}

	sym := c.st.Lookup(e.Name)
	if sym == nil {
		return ast.Type{}, diag.Errorf(diag.ReferenceError, e.Span, "function %s is not defined", e.Name)
	}
	switch sym.Kind {
	case SymbolClass:
		if len(e.Args) != 0 {
			return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "constructor of %s takes no arguments, got %d", e.Name, len(e.Args))
		}
		return ast.Object(e.Name), nil
	case SymbolFunction:
		if err := c.checkArgs(e.Name, e.Args, sym.Func.Params, e.Span); err != nil {
			return ast.Type{}, err
		}
		return sym.Func.Ret, nil
	default:
		return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "%s is not callable", e.Name)
	}
}

func (c *Checker) checkMethodCall(e *ast.MethodCall) (ast.Type, error) {
	class, err := c.objectClass(e.Obj, "method call")
	if err != nil {
		return ast.Type{}, err
	}
	if e.Method == initMethod {
		return ast.Type{}, diag.Errorf(diag.TypeError, e.Span, "%s cannot be called directly", initMethod)
	}
	sig, ok := class.Methods[e.Method]
	if !ok {
		return ast.Type{}, diag.Errorf(diag.ReferenceError, e.Span, "class %s has no method %s", class.Name, e.Method)
	}
	if err := c.checkArgs(class.Name+"."+e.Method, e.Args, sig.Params[1:], e.Span); err != nil {
		return ast.Type{}, err
	}
	return sig.Ret, nil
}

// objectClass checks obj and returns the class of its object type.
func (c *Checker) objectClass(obj ast.Expr, what string) (*Class, error) {
	t, err := c.checkExpr(obj)
	if err != nil {
		return nil, err
	}
	if !t.IsObject() {
		return nil, diag.Errorf(diag.TypeError, obj.Pos(), "%s on non-object type %s", what, t)
	}
	return c.st.LookupClass(t.Class), nil
}

func (c *Checker) checkArgs(callee string, args []ast.Expr, params []ast.Type, span diag.Span) error {
	if len(args) != len(params) {
		return diag.Errorf(diag.TypeError, span, "%s expects %d arguments, got %d", callee, len(params), len(args))
	}
	for i, arg := range args {
		t, err := c.checkExpr(arg)
		if err != nil {
			return err
		}
		if !ast.IsAssignable(params[i], t) {
			return diag.Errorf(diag.TypeError, arg.Pos(), "argument %d of %s must be %s, got %s", i+1, callee, params[i], t)
		}
	}
	return nil
}
