// Package compiler wires the stages together: lowering, type checking, code
// generation and, for running programs, the wat runtime.
package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/codegen"
	"github.com/strager/chocowat/parser"
	"github.com/strager/chocowat/typecheck"
	"github.com/strager/chocowat/wat"
)

// EntryPoint is the export that runs a compiled program.
const EntryPoint = "_start"

type Options struct {
	Indent int
}

// Output is a compiled module. Result is the static type of the value
// returned by the entry point, or the unset type when it returns nothing.
type Output struct {
	WAT     string
	Result  ast.Type
	Program []ast.Stmt // the type-annotated program
}

// Execution is the outcome of running a program.
type Execution struct {
	*Output
	Value int32 // meaningful only when Result is set
}

// Check lowers and type checks source, returning the annotated program.
func Check(source string) ([]ast.Stmt, error) {
	stmts, _, err := check(source)
	return stmts, err
}

func check(source string) ([]ast.Stmt, *typecheck.Checker, error) {
	stmts, err := parser.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	c := typecheck.New()
	stmts, err = c.Program(stmts)
	if err != nil {
		return nil, nil, err
	}
	return stmts, c, nil
}

// Compile translates source into a WebAssembly text module. Errors are
// *diag.Error values from the first failing stage.
func Compile(source string, opts Options) (*Output, error) {
	stmts, c, err := check(source)
	if err != nil {
		return nil, err
	}
	text := codegen.New(codegen.Options{Indent: opts.Indent}).Generate(stmts)
	return &Output{WAT: text, Result: c.Result(), Program: stmts}, nil
}

// Run compiles source and executes it, writing printed values to w.
// Compile errors are *diag.Error values; runtime failures are *wat.Trap
// values or wrap them.
func Run(source string, opts Options, w io.Writer) (*Execution, error) {
	out, err := Compile(source, opts)
	if err != nil {
		return nil, err
	}
	return Execute(out, w)
}

// Execute runs an already compiled module, writing printed values to w.
func Execute(out *Output, w io.Writer) (*Execution, error) {
	module, err := wat.Parse(out.WAT)
	if err != nil {
		return nil, fmt.Errorf("generated module is invalid: %w", err)
	}
	instance, err := wat.Instantiate(module, wat.PrintImports(w))
	if err != nil {
		return nil, err
	}
	results, err := instance.Invoke(EntryPoint)
	if err != nil {
		return nil, err
	}

	exec := &Execution{Output: out}
	if len(results) == 1 {
		exec.Value = results[0]
	}
	return exec, nil
}

// EchoesResult reports whether an interactive session should display the
// entry point's value. A trailing print call already showed it.
func (out *Output) EchoesResult() bool {
	if !out.Result.IsSet() || len(out.Program) == 0 {
		return false
	}
	stmt, ok := out.Program[len(out.Program)-1].(*ast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := stmt.Expr.(*ast.Call)
	return !ok || call.Name != "print"
}

// FormatValue renders a value of static type t the way print shows it.
// Objects are shown by address.
func FormatValue(t ast.Type, v int32) string {
	switch t.Kind {
	case ast.TypeBool:
		if v == 0 {
			return "False"
		}
		return "True"
	case ast.TypeNone:
		return "None"
	case ast.TypeObject:
		if v == codegen.NoneAddress {
			return "None"
		}
		return "<" + t.Class + " object at " + strconv.Itoa(int(v)) + ">"
	default:
		return strconv.Itoa(int(v))
	}
}
