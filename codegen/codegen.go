// Package codegen lowers a type-checked program into WebAssembly text.
package codegen

import (
	"fmt"
	"strings"

	"github.com/strager/chocowat/ast"
)

// NoneAddress is the address standing for None. It lies outside the single
// memory page, so it never equals a real object address.
const NoneAddress = -2147483648

const initMethod = "__init__"

type Options struct {
	// Indent is the number of spaces per nesting level; zero selects 4.
	Indent int
}

// Generator emits one module. Branch labels are numbered per Generator, so
// separate Generators may run concurrently.
type Generator struct {
	indent  string
	label   int
	layouts map[string]Layout

	// locals holds the parameters and local variables of the function
	// being emitted. Names not in it are module globals.
	locals map[string]bool
	inInit bool
}

func New(opts Options) *Generator {
	n := opts.Indent
	if n == 0 {
		n = 4
	}
	return &Generator{indent: strings.Repeat(" ", n)}
}

// Generate returns the module text for stmts, which must have passed type
// checking. An ill-typed program makes Generate panic.
func (g *Generator) Generate(stmts []ast.Stmt) string {
	var (
		globals []*ast.VarDecl
		classes []*ast.ClassDef
		funcs   []*ast.FuncDef
		main    []ast.Stmt
	)
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			globals = append(globals, s)
		case *ast.ClassDef:
			classes = append(classes, s)
		case *ast.FuncDef:
			funcs = append(funcs, s)
		default:
			main = append(main, s)
		}
	}

	g.layouts = make(map[string]Layout, len(classes))
	for _, class := range classes {
		g.layouts[class.Name] = ComputeLayout(class)
	}

	var module []string
	module = append(module,
		`(func $print_num (import "imports" "print_num") (param i32) (result i32))`,
		`(func $print_bool (import "imports" "print_bool") (param i32) (result i32))`,
		`(func $print_none (import "imports" "print_none") (param i32) (result i32))`,
		`(memory $0 1)`,
		`(global $heap (mut i32) (i32.const 0))`,
	)
	for _, decl := range globals {
		module = append(module, fmt.Sprintf("(global $%s (mut i32) (i32.const %d))", decl.Name, literalValue(decl.Value.(*ast.Literal))))
	}
	for _, class := range classes {
		module = append(module, g.class(class)...)
	}
	for _, fn := range funcs {
		module = append(module, g.function(fn.Name, fn)...)
	}
	module = append(module, g.start(main, stmts)...)

	var sb strings.Builder
	sb.WriteString("(module\n")
	for _, line := range g.indentLines(module, 1) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(")\n")
	return sb.String()
}

// start emits the exported entry function. It returns the value of the
// program's trailing expression statement, if it has one.
func (g *Generator) start(main []ast.Stmt, all []ast.Stmt) []string {
	g.locals = map[string]bool{}
	g.inInit = false
	returnsValue := false
	if len(all) > 0 {
		_, returnsValue = all[len(all)-1].(*ast.ExprStmt)
	}

	header := `(func (export "_start")`
	if returnsValue {
		header += " (result i32)"
	}
	lines := []string{header, "(local $scratch i32)"}
	lines = append(lines, g.block(main)...)
	if returnsValue {
		lines = append(lines, "local.get $scratch")
	}
	return append(lines, ")")
}

// function emits a user function or method under the given symbol name.
// Every function returns an i32 and falls back to 0.
func (g *Generator) function(name string, fn *ast.FuncDef) []string {
	g.locals = map[string]bool{}
	g.inInit = false
	header := "(func $" + name
	for _, param := range fn.Params {
		header += " (param $" + param.Name + " i32)"
		g.locals[param.Name] = true
	}
	header += " (result i32)"

	lines := []string{header, "(local $scratch i32)"}
	lines = append(lines, g.localDecls(fn.Body)...)
	lines = append(lines, g.block(fn.Body)...)
	return append(lines, "i32.const 0", ")")
}

// localDecls declares every variable declared in body and records it as
// local.
func (g *Generator) localDecls(body []ast.Stmt) []string {
	var lines []string
	for _, stmt := range body {
		if decl, ok := stmt.(*ast.VarDecl); ok && !g.locals[decl.Name] {
			g.locals[decl.Name] = true
			lines = append(lines, "(local $"+decl.Name+" i32)")
		}
	}
	return lines
}

// class emits the initializer of class followed by its methods.
func (g *Generator) class(class *ast.ClassDef) []string {
	lines := g.initializer(class)
	for _, method := range class.Methods {
		if method.Name != initMethod {
			lines = append(lines, g.function(class.Name+"$"+method.Name, method)...)
		}
	}
	return lines
}

// initializer emits $C$__init__. It bump-allocates the object, stores each
// field's initial value, runs the body of an explicit __init__ with self
// bound to the new object and returns the object address.
func (g *Generator) initializer(class *ast.ClassDef) []string {
	var explicit *ast.FuncDef
	for _, method := range class.Methods {
		if method.Name == initMethod {
			explicit = method
		}
	}

	g.locals = map[string]bool{"self": true}
	g.inInit = true
	lines := []string{
		"(func $" + class.Name + "$" + initMethod + " (result i32)",
		"(local $scratch i32)",
		"(local $self i32)",
	}
	if explicit != nil {
		lines = append(lines, g.localDecls(explicit.Body)...)
	}
	lines = append(lines, "global.get $heap", "local.set $self")

	layout := g.layouts[class.Name]
	for _, field := range class.Fields {
		lines = append(lines,
			"local.get $self",
			fmt.Sprintf("i32.const %d", layout.Offsets[field.Name]),
			"i32.add",
		)
		lines = append(lines, g.expr(field.Value)...)
		lines = append(lines, "i32.store")
	}
	lines = append(lines,
		"global.get $heap",
		fmt.Sprintf("i32.const %d", layout.Size),
		"i32.add",
		"global.set $heap",
	)

	if explicit != nil {
		lines = append(lines, g.block(explicit.Body)...)
	}
	return append(lines, "local.get $self", ")")
}

func (g *Generator) block(stmts []ast.Stmt) []string {
	var lines []string
	for _, stmt := range stmts {
		lines = append(lines, g.stmt(stmt)...)
	}
	return lines
}

func (g *Generator) stmt(stmt ast.Stmt) []string {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return append(g.expr(s.Value), g.setVar(s.Name))
	case *ast.Assign:
		switch target := s.Target.(type) {
		case *ast.Name:
			return append(g.expr(s.Value), g.setVar(target.Name))
		case *ast.GetField:
			lines := g.fieldAddress(target)
			lines = append(lines, g.expr(s.Value)...)
			return append(lines, "i32.store")
		}
	case *ast.If:
		return g.ifStmt(s)
	case *ast.While:
		return g.while(s)
	case *ast.Pass:
		return []string{"nop"}
	case *ast.Return:
		lines := g.expr(s.Value)
		if g.inInit {
			return append(lines, "local.set $scratch", "local.get $self", "return")
		}
		return append(lines, "return")
	case *ast.ExprStmt:
		return append(g.expr(s.Expr), "local.set $scratch")
	}
	panic(fmt.Sprintf("cannot generate %T", stmt))
}

func (g *Generator) ifStmt(s *ast.If) []string {
	var lines []string
	lines = append(lines, g.expr(s.If.Cond)...)
	lines = append(lines, "(if", "(then")
	lines = append(lines, g.block(s.If.Body)...)
	lines = append(lines, ")")

	// Each elif nests a new if inside the else of the previous one.
	closing := 1
	for _, arm := range s.Elif {
		lines = append(lines, "(else")
		lines = append(lines, g.expr(arm.Cond)...)
		lines = append(lines, "(if", "(then")
		lines = append(lines, g.block(arm.Body)...)
		lines = append(lines, ")")
		closing += 2
	}

	lines = append(lines, "(else")
	lines = append(lines, g.block(s.Else)...)
	lines = append(lines, ")")
	for i := 0; i < closing; i++ {
		lines = append(lines, ")")
	}
	return lines
}

func (g *Generator) while(s *ast.While) []string {
	loopLabel := g.label
	exitLabel := g.label + 1
	g.label += 2

	lines := []string{
		fmt.Sprintf("(block $label_%d", exitLabel),
		fmt.Sprintf("(loop $label_%d", loopLabel),
	}
	lines = append(lines, g.expr(s.Cond)...)
	lines = append(lines, "i32.eqz", fmt.Sprintf("br_if $label_%d", exitLabel))
	lines = append(lines, g.block(s.Body)...)
	return append(lines, fmt.Sprintf("br $label_%d", loopLabel), ")", ")")
}

func (g *Generator) expr(expr ast.Expr) []string {
	switch e := expr.(type) {
	case *ast.Literal:
		return []string{fmt.Sprintf("i32.const %d", literalValue(e))}
	case *ast.Name:
		if g.locals[e.Name] {
			return []string{"local.get $" + e.Name}
		}
		return []string{"global.get $" + e.Name}
	case *ast.Unary:
		if e.Op == ast.Neg {
			lines := []string{"i32.const 0"}
			lines = append(lines, g.expr(e.Expr)...)
			return append(lines, "i32.sub")
		}
		return append(g.expr(e.Expr), "i32.eqz")
	case *ast.Binary:
		lines := g.expr(e.Left)
		lines = append(lines, g.expr(e.Right)...)
		return append(lines, binOpInstr(e.Op))
	case *ast.Call:
		var lines []string
		for _, arg := range e.Args {
			lines = append(lines, g.expr(arg)...)
		}
		return append(lines, "call $"+g.callee(e))
	case *ast.GetField:
		return append(g.fieldAddress(e), "i32.load")
	case *ast.MethodCall:
		lines := g.expr(e.Obj)
		for _, arg := range e.Args {
			lines = append(lines, g.expr(arg)...)
		}
		return append(lines, "call $"+e.Obj.Type().Class+"$"+e.Method)
	}
	panic(fmt.Sprintf("cannot generate %T", expr))
}

// callee resolves the function symbol of a call. print is dispatched on the
// static type of its argument; objects print their address.
func (g *Generator) callee(e *ast.Call) string {
	if e.Name == "print" {
		switch e.Args[0].Type().Kind {
		case ast.TypeBool:
			return "print_bool"
		case ast.TypeNone:
			return "print_none"
		default:
			return "print_num"
		}
	}
	if _, ok := g.layouts[e.Name]; ok {
		return e.Name + "$" + initMethod
	}
	return e.Name
}

// fieldAddress pushes the address of a field: the object address plus the
// field offset.
func (g *Generator) fieldAddress(e *ast.GetField) []string {
	layout := g.layouts[e.Obj.Type().Class]
	lines := g.expr(e.Obj)
	return append(lines, fmt.Sprintf("i32.const %d", layout.Offsets[e.Field]), "i32.add")
}

func (g *Generator) setVar(name string) string {
	if g.locals[name] {
		return "local.set $" + name
	}
	return "global.set $" + name
}

func literalValue(lit *ast.Literal) int32 {
	switch lit.Kind {
	case ast.LitTrue:
		return 1
	case ast.LitFalse:
		return 0
	case ast.LitNone:
		return NoneAddress
	default:
		return lit.Value
	}
}

var binOpInstrs = map[ast.BinOp]string{
	ast.Plus:    "i32.add",
	ast.Minus:   "i32.sub",
	ast.Mul:     "i32.mul",
	ast.Div:     "i32.div_s",
	ast.Mod:     "i32.rem_s",
	ast.Equal:   "i32.eq",
	ast.Unequal: "i32.ne",
	ast.Lt:      "i32.lt_s",
	ast.Le:      "i32.le_s",
	ast.Gt:      "i32.gt_s",
	ast.Ge:      "i32.ge_s",
	ast.Is:      "i32.eq",
}

func binOpInstr(op ast.BinOp) string {
	instr, ok := binOpInstrs[op]
	if !ok {
		panic("unknown binary operator " + string(op))
	}
	return instr
}

// indentLines indents generated lines the way they nest. A line with more
// opening than closing parentheses, such as "(loop $label_0", indents what
// follows; a line starting with ")" closes one level.
func (g *Generator) indentLines(lines []string, level int) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.HasPrefix(line, ")") {
			level--
		}
		out[i] = strings.Repeat(g.indent, level) + line
		if open := strings.Count(line, "(") - strings.Count(line, ")"); open > 0 {
			level += open
		}
	}
	return out
}
