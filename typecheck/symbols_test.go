package typecheck

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/diag"
)

func TestNewSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	be.Equal(t, 1, st.Depth())
	be.True(t, st.Lookup("x") == nil)
}

func TestDeclareAndLookup(t *testing.T) {
	st := NewSymbolTable()
	err := st.Declare(&Symbol{Name: "x", Kind: SymbolVariable, Type: ast.Int}, diag.Span{})
	be.Err(t, err, nil)

	sym := st.Lookup("x")
	be.True(t, sym != nil)
	be.Equal(t, ast.Int, sym.Type)
}

func TestDeclareDuplicate(t *testing.T) {
	st := NewSymbolTable()
	be.Err(t, st.Declare(&Symbol{Name: "f", Kind: SymbolFunction, Func: &Signature{Ret: ast.None}}, diag.Span{}), nil)

	err := st.Declare(&Symbol{Name: "f", Kind: SymbolVariable, Type: ast.Int}, diag.Span{From: 3, To: 4})
	be.True(t, diag.IsKind(err, diag.ReferenceError))
	be.Equal(t, "ReferenceError: variable f is already defined as a function", err.Error())
}

func TestShadowingOuterScope(t *testing.T) {
	st := NewSymbolTable()
	be.Err(t, st.Declare(&Symbol{Name: "x", Kind: SymbolVariable, Type: ast.Int}, diag.Span{}), nil)

	st.Push()
	be.Equal(t, 2, st.Depth())
	be.Err(t, st.Declare(&Symbol{Name: "x", Kind: SymbolVariable, Type: ast.Bool}, diag.Span{}), nil)
	be.Equal(t, ast.Bool, st.Lookup("x").Type)

	st.Pop()
	be.Equal(t, ast.Int, st.Lookup("x").Type)
}

func TestLookupClassOnlyInModuleScope(t *testing.T) {
	st := NewSymbolTable()
	class := &Class{Name: "C"}
	be.Err(t, st.Declare(&Symbol{Name: "C", Kind: SymbolClass, Class: class}, diag.Span{}), nil)
	be.Err(t, st.Declare(&Symbol{Name: "v", Kind: SymbolVariable, Type: ast.Int}, diag.Span{}), nil)

	st.Push()
	be.True(t, st.LookupClass("C") == class)
	be.True(t, st.LookupClass("v") == nil)
	be.True(t, st.LookupClass("D") == nil)
}

func TestPopModuleScopePanics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	NewSymbolTable().Pop()
}
