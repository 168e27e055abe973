// Package wat reads and runs the subset of WebAssembly text that the code
// generator emits.
package wat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strager/chocowat/sexy"
)

// Names of functions, globals, locals and labels are stored without their
// leading "$".

type Import struct {
	Func   string
	Module string
	Name   string
	Params int
	Result bool
}

type Memory struct {
	Name  string
	Pages int
}

type Global struct {
	Name    string
	Mutable bool
	Init    int32
}

type Func struct {
	Name   string
	Export string
	Params []string
	Result bool
	Locals []string
	Body   []*Instr
}

// Instr is one instruction. Structured instructions (block, loop, if) carry
// their nested instructions; the condition of an if is taken from the
// stack.
type Instr struct {
	Op      string
	Arg     string // local, global, function or label name
	Value   int32  // i32.const operand, or the offset of a load or store
	Label   string // label of a block, loop or if
	Body    []*Instr
	Else    []*Instr
	HasElse bool
}

type Module struct {
	Imports []*Import
	Memory  *Memory
	Globals []*Global
	Funcs   []*Func
}

var binaryOps = map[string]bool{
	"i32.add": true, "i32.sub": true, "i32.mul": true,
	"i32.div_s": true, "i32.rem_s": true,
	"i32.and": true, "i32.or": true, "i32.xor": true,
	"i32.eq": true, "i32.ne": true,
	"i32.lt_s": true, "i32.le_s": true, "i32.gt_s": true, "i32.ge_s": true,
}

var plainOps = map[string]bool{
	"nop": true, "return": true, "drop": true, "unreachable": true,
	"i32.eqz": true,
}

var namedOps = map[string]bool{
	"local.get": true, "local.set": true, "local.tee": true,
	"global.get": true, "global.set": true,
	"call": true, "br": true, "br_if": true,
}

func errorf(n *sexy.Node, format string, args ...any) error {
	return fmt.Errorf("wat: offset %d: %s", n.Pos, fmt.Sprintf(format, args...))
}

// Parse reads a module and checks that every name it uses is declared.
func Parse(text string) (*Module, error) {
	root, err := sexy.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("wat: %w", err)
	}
	if root.Head() != "module" {
		return nil, errorf(root, "expected (module ...), got %s", root)
	}

	m := &Module{}
	for _, field := range root.Items[1:] {
		switch field.Head() {
		case "func":
			if len(field.Items) > 2 && field.Items[2].Head() == "import" {
				imp, err := parseImport(field)
				if err != nil {
					return nil, err
				}
				m.Imports = append(m.Imports, imp)
				continue
			}
			fn, err := parseFunc(field)
			if err != nil {
				return nil, err
			}
			m.Funcs = append(m.Funcs, fn)
		case "memory":
			if m.Memory != nil {
				return nil, errorf(field, "multiple memories")
			}
			mem, err := parseMemory(field)
			if err != nil {
				return nil, err
			}
			m.Memory = mem
		case "global":
			g, err := parseGlobal(field)
			if err != nil {
				return nil, err
			}
			m.Globals = append(m.Globals, g)
		default:
			return nil, errorf(field, "unsupported module field %s", field)
		}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func name(n *sexy.Node) (string, bool) {
	if n.Type != sexy.NodeSymbol || !strings.HasPrefix(n.Text, "$") || len(n.Text) == 1 {
		return "", false
	}
	return n.Text[1:], true
}

func expectName(n *sexy.Node) (string, error) {
	s, ok := name(n)
	if !ok {
		return "", errorf(n, "expected $name, got %s", n)
	}
	return s, nil
}

func expectI32(n *sexy.Node) error {
	if !n.IsSymbol("i32") {
		return errorf(n, "unsupported value type %s", n)
	}
	return nil
}

func parseImport(field *sexy.Node) (*Import, error) {
	fn, err := expectName(field.Items[1])
	if err != nil {
		return nil, err
	}
	from := field.Items[2]
	if len(from.Items) != 3 || from.Items[1].Type != sexy.NodeString || from.Items[2].Type != sexy.NodeString {
		return nil, errorf(from, "expected (import \"module\" \"name\"), got %s", from)
	}
	imp := &Import{Func: fn, Module: from.Items[1].Text, Name: from.Items[2].Text}
	for _, item := range field.Items[3:] {
		switch item.Head() {
		case "param":
			for _, typ := range item.Items[1:] {
				if err := expectI32(typ); err != nil {
					return nil, err
				}
				imp.Params++
			}
		case "result":
			if err := parseResult(item); err != nil {
				return nil, err
			}
			imp.Result = true
		default:
			return nil, errorf(item, "unexpected %s in import", item)
		}
	}
	return imp, nil
}

func parseResult(item *sexy.Node) error {
	if len(item.Items) != 2 {
		return errorf(item, "expected one result type, got %s", item)
	}
	return expectI32(item.Items[1])
}

func parseMemory(field *sexy.Node) (*Memory, error) {
	items := field.Items[1:]
	mem := &Memory{}
	if len(items) > 0 {
		if s, ok := name(items[0]); ok {
			mem.Name = s
			items = items[1:]
		}
	}
	if len(items) != 1 || items[0].Type != sexy.NodeInteger {
		return nil, errorf(field, "expected (memory $name pages), got %s", field)
	}
	pages, err := strconv.Atoi(items[0].Text)
	if err != nil || pages < 0 || pages > 65536 {
		return nil, errorf(items[0], "invalid page count %s", items[0])
	}
	mem.Pages = pages
	return mem, nil
}

func parseGlobal(field *sexy.Node) (*Global, error) {
	if len(field.Items) != 4 {
		return nil, errorf(field, "expected (global $name type init), got %s", field)
	}
	n, err := expectName(field.Items[1])
	if err != nil {
		return nil, err
	}
	g := &Global{Name: n}

	typ := field.Items[2]
	if typ.Head() == "mut" {
		if len(typ.Items) != 2 {
			return nil, errorf(typ, "expected (mut i32), got %s", typ)
		}
		g.Mutable = true
		typ = typ.Items[1]
	}
	if err := expectI32(typ); err != nil {
		return nil, err
	}

	value := field.Items[3]
	if value.Head() != "i32.const" || len(value.Items) != 2 {
		return nil, errorf(value, "global initializer must be (i32.const n), got %s", value)
	}
	if g.Init, err = value.Items[1].Int32(); err != nil {
		return nil, fmt.Errorf("wat: %w", err)
	}
	return g, nil
}

func parseFunc(field *sexy.Node) (*Func, error) {
	fn := &Func{}
	items := field.Items[1:]
	if len(items) > 0 {
		if s, ok := name(items[0]); ok {
			fn.Name = s
			items = items[1:]
		}
	}

	// Header lists come in order: export, params, result, locals.
header:
	for len(items) > 0 && items[0].Type == sexy.NodeList {
		item := items[0]
		switch item.Head() {
		case "export":
			if len(item.Items) != 2 || item.Items[1].Type != sexy.NodeString {
				return nil, errorf(item, "expected (export \"name\"), got %s", item)
			}
			fn.Export = item.Items[1].Text
		case "param":
			p, err := parseLocal(item)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, p)
		case "result":
			if err := parseResult(item); err != nil {
				return nil, err
			}
			fn.Result = true
		case "local":
			l, err := parseLocal(item)
			if err != nil {
				return nil, err
			}
			fn.Locals = append(fn.Locals, l)
		default:
			break header
		}
		items = items[1:]
	}

	if fn.Name == "" && fn.Export == "" {
		return nil, errorf(field, "function needs a name or an export")
	}
	var err error
	fn.Body, err = parseInstrs(items)
	return fn, err
}

func parseLocal(item *sexy.Node) (string, error) {
	if len(item.Items) != 3 {
		return "", errorf(item, "expected (%s $name i32), got %s", item.Head(), item)
	}
	n, err := expectName(item.Items[1])
	if err != nil {
		return "", err
	}
	return n, expectI32(item.Items[2])
}

func parseInstrs(nodes []*sexy.Node) ([]*Instr, error) {
	var instrs []*Instr
	for i := 0; i < len(nodes); i++ {
		node := nodes[i]
		if node.Type == sexy.NodeList {
			instr, err := parseStructured(node)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, instr)
			continue
		}
		if node.Type != sexy.NodeSymbol {
			return nil, errorf(node, "expected instruction, got %s", node)
		}

		instr := &Instr{Op: node.Text}
		operand := func() (*sexy.Node, error) {
			if i+1 >= len(nodes) {
				return nil, errorf(node, "%s expects an operand", node.Text)
			}
			i++
			return nodes[i], nil
		}
		switch {
		case node.Text == "i32.const":
			n, err := operand()
			if err != nil {
				return nil, err
			}
			if instr.Value, err = n.Int32(); err != nil {
				return nil, fmt.Errorf("wat: %w", err)
			}
		case namedOps[node.Text]:
			n, err := operand()
			if err != nil {
				return nil, err
			}
			if instr.Arg, err = expectName(n); err != nil {
				return nil, err
			}
		case node.Text == "i32.load" || node.Text == "i32.store":
			if i+1 < len(nodes) && strings.HasPrefix(nodes[i+1].Text, "offset=") && nodes[i+1].Type == sexy.NodeSymbol {
				i++
				v, err := strconv.ParseUint(strings.TrimPrefix(nodes[i].Text, "offset="), 10, 32)
				if err != nil {
					return nil, errorf(nodes[i], "invalid memory offset %s", nodes[i])
				}
				instr.Value = int32(uint32(v))
			}
		case binaryOps[node.Text] || plainOps[node.Text]:
		default:
			return nil, errorf(node, "unsupported instruction %s", node.Text)
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

func parseStructured(node *sexy.Node) (*Instr, error) {
	instr := &Instr{Op: node.Head()}
	items := node.Items[1:]
	if len(items) > 0 {
		if s, ok := name(items[0]); ok {
			instr.Label = s
			items = items[1:]
		}
	}

	var err error
	switch instr.Op {
	case "block", "loop":
		instr.Body, err = parseInstrs(items)
		return instr, err
	case "if":
		if len(items) == 0 || items[0].Head() != "then" || len(items) > 2 {
			return nil, errorf(node, "expected (if (then ...) (else ...)), got %s", node)
		}
		if instr.Body, err = parseInstrs(items[0].Items[1:]); err != nil {
			return nil, err
		}
		if len(items) == 2 {
			if items[1].Head() != "else" {
				return nil, errorf(items[1], "expected (else ...), got %s", items[1])
			}
			instr.HasElse = true
			instr.Else, err = parseInstrs(items[1].Items[1:])
		}
		return instr, err
	}
	return nil, errorf(node, "unsupported instruction %s", node)
}

// validate checks that every referenced function, global, local and label
// is declared, and that exports are unique.
func (m *Module) validate() error {
	funcs := map[string]bool{}
	for _, imp := range m.Imports {
		if funcs[imp.Func] {
			return fmt.Errorf("wat: duplicate function $%s", imp.Func)
		}
		funcs[imp.Func] = true
	}
	exports := map[string]bool{}
	for _, fn := range m.Funcs {
		if fn.Name != "" {
			if funcs[fn.Name] {
				return fmt.Errorf("wat: duplicate function $%s", fn.Name)
			}
			funcs[fn.Name] = true
		}
		if fn.Export != "" {
			if exports[fn.Export] {
				return fmt.Errorf("wat: duplicate export %q", fn.Export)
			}
			exports[fn.Export] = true
		}
	}
	globals := map[string]*Global{}
	for _, g := range m.Globals {
		if globals[g.Name] != nil {
			return fmt.Errorf("wat: duplicate global $%s", g.Name)
		}
		globals[g.Name] = g
	}

	for _, fn := range m.Funcs {
		locals := map[string]bool{}
		for _, l := range append(append([]string{}, fn.Params...), fn.Locals...) {
			if locals[l] {
				return fmt.Errorf("wat: %s: duplicate local $%s", fn.displayName(), l)
			}
			locals[l] = true
		}
		v := &validator{fn: fn, funcs: funcs, globals: globals, locals: locals, memory: m.Memory != nil}
		if err := v.instrs(fn.Body); err != nil {
			return err
		}
	}
	return nil
}

type validator struct {
	fn      *Func
	funcs   map[string]bool
	globals map[string]*Global
	locals  map[string]bool
	labels  []string
	memory  bool
}

func (v *validator) errorf(format string, args ...any) error {
	return fmt.Errorf("wat: %s: %s", v.fn.displayName(), fmt.Sprintf(format, args...))
}

func (v *validator) instrs(instrs []*Instr) error {
	for _, instr := range instrs {
		switch instr.Op {
		case "local.get", "local.set", "local.tee":
			if !v.locals[instr.Arg] {
				return v.errorf("unknown local $%s", instr.Arg)
			}
		case "global.get", "global.set":
			g := v.globals[instr.Arg]
			if g == nil {
				return v.errorf("unknown global $%s", instr.Arg)
			}
			if instr.Op == "global.set" && !g.Mutable {
				return v.errorf("global $%s is immutable", instr.Arg)
			}
		case "call":
			if !v.funcs[instr.Arg] {
				return v.errorf("unknown function $%s", instr.Arg)
			}
		case "br", "br_if":
			if !v.hasLabel(instr.Arg) {
				return v.errorf("unknown label $%s", instr.Arg)
			}
		case "i32.load", "i32.store":
			if !v.memory {
				return v.errorf("%s without memory", instr.Op)
			}
		case "block", "loop", "if":
			v.labels = append(v.labels, instr.Label)
			err := v.instrs(instr.Body)
			if err == nil {
				err = v.instrs(instr.Else)
			}
			v.labels = v.labels[:len(v.labels)-1]
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *validator) hasLabel(label string) bool {
	for _, l := range v.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (fn *Func) displayName() string {
	if fn.Name != "" {
		return "$" + fn.Name
	}
	return strconv.Quote(fn.Export)
}

// String prints the module in the layout the code generator uses, one
// instruction per line indented by four spaces per level.
func (m *Module) String() string {
	p := &printer{}
	p.line("(module")
	p.depth++
	for _, imp := range m.Imports {
		s := fmt.Sprintf("(func $%s (import %q %q)", imp.Func, imp.Module, imp.Name)
		if imp.Params > 0 {
			s += " (param" + strings.Repeat(" i32", imp.Params) + ")"
		}
		if imp.Result {
			s += " (result i32)"
		}
		p.line(s + ")")
	}
	if m.Memory != nil {
		if m.Memory.Name != "" {
			p.line(fmt.Sprintf("(memory $%s %d)", m.Memory.Name, m.Memory.Pages))
		} else {
			p.line(fmt.Sprintf("(memory %d)", m.Memory.Pages))
		}
	}
	for _, g := range m.Globals {
		typ := "i32"
		if g.Mutable {
			typ = "(mut i32)"
		}
		p.line(fmt.Sprintf("(global $%s %s (i32.const %d))", g.Name, typ, g.Init))
	}
	for _, fn := range m.Funcs {
		p.function(fn)
	}
	p.depth--
	p.line(")")
	return p.sb.String()
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat("    ", p.depth))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *printer) function(fn *Func) {
	header := "(func"
	if fn.Name != "" {
		header += " $" + fn.Name
	}
	if fn.Export != "" {
		header += fmt.Sprintf(" (export %q)", fn.Export)
	}
	for _, param := range fn.Params {
		header += " (param $" + param + " i32)"
	}
	if fn.Result {
		header += " (result i32)"
	}
	p.line(header)
	p.depth++
	for _, l := range fn.Locals {
		p.line("(local $" + l + " i32)")
	}
	p.instrs(fn.Body)
	p.depth--
	p.line(")")
}

func (p *printer) instrs(instrs []*Instr) {
	for _, instr := range instrs {
		p.instr(instr)
	}
}

func (p *printer) instr(instr *Instr) {
	switch {
	case instr.Op == "i32.const":
		p.line(fmt.Sprintf("i32.const %d", instr.Value))
	case namedOps[instr.Op]:
		p.line(instr.Op + " $" + instr.Arg)
	case (instr.Op == "i32.load" || instr.Op == "i32.store") && instr.Value != 0:
		p.line(fmt.Sprintf("%s offset=%d", instr.Op, uint32(instr.Value)))
	case instr.Op == "block" || instr.Op == "loop" || instr.Op == "if":
		open := "(" + instr.Op
		if instr.Label != "" {
			open += " $" + instr.Label
		}
		p.line(open)
		p.depth++
		if instr.Op == "if" {
			p.nested("(then", instr.Body)
			if instr.HasElse {
				p.nested("(else", instr.Else)
			}
		} else {
			p.instrs(instr.Body)
		}
		p.depth--
		p.line(")")
	default:
		p.line(instr.Op)
	}
}

func (p *printer) nested(open string, instrs []*Instr) {
	p.line(open)
	p.depth++
	p.instrs(instrs)
	p.depth--
	p.line(")")
}
