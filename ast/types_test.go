package ast

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestIsAssignable(t *testing.T) {
	tests := []struct {
		name     string
		dst, src Type
		expected bool
	}{
		{"int to int", Int, Int, true},
		{"bool to bool", Bool, Bool, true},
		{"none to none", None, None, true},
		{"bool to int", Int, Bool, false},
		{"int to bool", Bool, Int, false},
		{"none to object", Object("A"), None, true},
		{"same object", Object("A"), Object("A"), true},
		{"different objects", Object("A"), Object("B"), false},
		{"object to none", None, Object("A"), false},
		{"none to int", Int, None, false},
		{"int to object", Object("A"), Int, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			be.Equal(t, test.expected, IsAssignable(test.dst, test.src))
		})
	}
}

func TestTypeString(t *testing.T) {
	be.Equal(t, "int", Int.String())
	be.Equal(t, "bool", Bool.String())
	be.Equal(t, "none", None.String())
	be.Equal(t, "Point", Object("Point").String())
	be.Equal(t, "<unset>", Type{}.String())
}

func TestTypePredicates(t *testing.T) {
	be.True(t, !Type{}.IsSet())
	be.True(t, Int.IsSet())
	be.True(t, Object("A").IsObject())
	be.True(t, !None.IsObject())
	be.True(t, None.IsReference())
	be.True(t, Object("A").IsReference())
	be.True(t, !Bool.IsReference())
}

func TestAnnotationSlot(t *testing.T) {
	lit := &Literal{Kind: LitInt, Value: 3}
	be.True(t, !lit.Type().IsSet())
	var e Expr = lit
	e.SetType(Int)
	be.Equal(t, Int, lit.Type())
}

func TestIsDefinition(t *testing.T) {
	be.True(t, IsDefinition(&VarDecl{}))
	be.True(t, IsDefinition(&FuncDef{}))
	be.True(t, IsDefinition(&ClassDef{}))
	be.True(t, !IsDefinition(&Pass{}))
	be.True(t, !IsDefinition(&ExprStmt{}))
}

func TestToSExpr(t *testing.T) {
	prog := []Stmt{
		&VarDecl{Name: "x", Type: Int, Value: &Literal{Kind: LitInt, Value: 1}},
		&Assign{
			Target: &Name{Name: "x"},
			Value:  &Binary{Op: Plus, Left: &Name{Name: "x"}, Right: &Literal{Kind: LitInt, Value: 1}},
		},
		&If{
			If:   CondBody{Cond: &Literal{Kind: LitTrue}, Body: []Stmt{&Pass{}}},
			Elif: []CondBody{{Cond: &Unary{Op: Not, Expr: &Literal{Kind: LitFalse}}, Body: []Stmt{&Return{Value: NoneLiteral(Span{})}}}},
		},
		&ExprStmt{Expr: &MethodCall{Obj: &Name{Name: "c"}, Method: "get", Args: []Expr{&GetField{Obj: &Name{Name: "c"}, Field: "a"}}}},
	}

	be.Equal(t,
		`(program (var "x" int (int 1)) (assign (name "x") (binary "+" (name "x") (int 1))) `+
			`(if (bool true) (then (pass)) (elif (unary "not" (bool false)) (return (none))) (else)) `+
			`(expr (method (name "c") "get" (field (name "c") "a"))))`,
		ToSExpr(prog))
}

func TestToSExprDefinitions(t *testing.T) {
	class := &ClassDef{
		Name:   "C",
		Fields: []*VarDecl{{Name: "a", Type: Int, Value: &Literal{Kind: LitInt, Value: 1}}},
		Methods: []*FuncDef{{
			Name:   "get",
			Params: []Param{{Name: "self", Type: Object("C")}},
			Ret:    Int,
			Body:   []Stmt{&Return{Value: &GetField{Obj: &Name{Name: "self"}, Field: "a"}}},
		}},
	}
	be.Equal(t,
		`(class "C" (fields (var "a" int (int 1))) (methods (def "get" (params (param "self" C)) int (return (field (name "self") "a")))))`,
		StmtToSExpr(class))

	loop := &While{Cond: &Call{Name: "f"}, Body: []Stmt{&ExprStmt{Expr: &Call{Name: "print", Args: []Expr{&Literal{Kind: LitNone}}}}}}
	be.Equal(t, `(while (call "f") (expr (call "print" (none))))`, StmtToSExpr(loop))
}
