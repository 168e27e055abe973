package typecheck

import (
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/diag"
)

type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolFunction
	SymbolClass
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	default:
		return "variable"
	}
}

// Signature is the parameter and return types of a function or method.
// A method's receiver is its first parameter.
type Signature struct {
	Params []ast.Type
	Ret    ast.Type
}

// Class is the checked shape of a class definition.
type Class struct {
	Name       string
	Fields     []*ast.VarDecl
	FieldTypes map[string]ast.Type
	Methods    map[string]*Signature
}

// Symbol is one entry of a scope.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Type  ast.Type   // SymbolVariable
	Func  *Signature // SymbolFunction
	Class *Class     // SymbolClass
}

// SymbolTable is a stack of scopes. The bottom scope is module-global;
// function and method bodies push one scope each.
type SymbolTable struct {
	scopes []map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{scopes: []map[string]*Symbol{{}}}
}

func (st *SymbolTable) Push() {
	st.scopes = append(st.scopes, map[string]*Symbol{})
}

func (st *SymbolTable) Pop() {
	if len(st.scopes) == 1 {
		panic("cannot pop the module scope")
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth returns the number of scopes, 1 at module level.
func (st *SymbolTable) Depth() int {
	return len(st.scopes)
}

// Declare adds sym to the innermost scope. Redefining a name in the same
// scope is a ReferenceError; shadowing an outer scope is allowed.
func (st *SymbolTable) Declare(sym *Symbol, span diag.Span) error {
	scope := st.scopes[len(st.scopes)-1]
	if prev, ok := scope[sym.Name]; ok {
		return diag.Errorf(diag.ReferenceError, span, "%s %s is already defined as a %s", sym.Kind, sym.Name, prev.Kind)
	}
	scope[sym.Name] = sym
	return nil
}

// Lookup finds name in the innermost scope that defines it.
func (st *SymbolTable) Lookup(name string) *Symbol {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i][name]; ok {
			return sym
		}
	}
	return nil
}

// LookupClass finds a class. Classes only exist in the module scope.
func (st *SymbolTable) LookupClass(name string) *Class {
	sym, ok := st.scopes[0][name]
	if !ok || sym.Kind != SymbolClass {
		return nil
	}
	return sym.Class
}
