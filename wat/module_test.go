package wat

import (
	"testing"

	"github.com/nalgeon/be"
)

const sample = `(module
    (func $print_num (import "imports" "print_num") (param i32) (result i32))
    (func $print_bool (import "imports" "print_bool") (param i32) (result i32))
    (func $print_none (import "imports" "print_none") (param i32) (result i32))
    (memory $0 1)
    (global $heap (mut i32) (i32.const 0))
    (global $a (mut i32) (i32.const 0))
    (global $b (mut i32) (i32.const -2147483648))
    (func $f (param $x i32) (param $y i32) (result i32)
        (local $scratch i32)
        local.get $x
        local.get $y
        i32.add
        return
        i32.const 0
    )
    (func (export "_start") (result i32)
        (local $scratch i32)
        (local $b i32)
        i32.const 1
        global.set $a
        global.get $a
        i32.const 100
        i32.lt_s
        (if
            (then
                i32.const 3
                local.set $b
            )
            (else
            )
        )
        (block $label_1
            (loop $label_0
                local.get $b
                i32.eqz
                br_if $label_1
                local.get $b
                i32.const 1
                i32.sub
                local.set $b
                br $label_0
            )
        )
        global.get $heap
        i32.const 4
        i32.store offset=8
        local.get $b
        local.set $scratch
        local.get $scratch
    )
)
`

func TestParseModule(t *testing.T) {
	m, err := Parse(sample)
	be.Err(t, err, nil)

	be.Equal(t, len(m.Imports), 3)
	be.Equal(t, *m.Imports[1], Import{Func: "print_bool", Module: "imports", Name: "print_bool", Params: 1, Result: true})
	be.Equal(t, *m.Memory, Memory{Name: "0", Pages: 1})
	be.Equal(t, len(m.Globals), 3)
	be.Equal(t, *m.Globals[2], Global{Name: "b", Mutable: true, Init: -2147483648})

	be.Equal(t, len(m.Funcs), 2)
	f := m.Funcs[0]
	be.Equal(t, f.Name, "f")
	be.Equal(t, f.Params, []string{"x", "y"})
	be.True(t, f.Result)
	be.Equal(t, f.Locals, []string{"scratch"})
	be.Equal(t, len(f.Body), 5)
	be.Equal(t, f.Body[2].Op, "i32.add")

	start := m.Funcs[1]
	be.Equal(t, start.Name, "")
	be.Equal(t, start.Export, "_start")
	cond := start.Body[5]
	be.Equal(t, cond.Op, "if")
	be.True(t, cond.HasElse)
	be.Equal(t, len(cond.Body), 2)
	be.Equal(t, len(cond.Else), 0)

	block := start.Body[6]
	be.Equal(t, block.Op, "block")
	be.Equal(t, block.Label, "label_1")
	be.Equal(t, block.Body[0].Label, "label_0")
	be.Equal(t, block.Body[0].Body[2].Arg, "label_1")

	store := start.Body[9]
	be.Equal(t, store.Op, "i32.store")
	be.Equal(t, store.Value, int32(8))
}

func TestStringIsCanonical(t *testing.T) {
	m, err := Parse(sample)
	be.Err(t, err, nil)
	be.Equal(t, m.String(), sample)

	again, err := Parse(m.String())
	be.Err(t, err, nil)
	be.Equal(t, again.String(), sample)
}

func TestStringNormalizesLayout(t *testing.T) {
	m, err := Parse(`(module (memory 2) (global $g i32 (i32.const 7))
  ;; entry
  (func $main (export "main") (result i32) global.get $g (if (then nop)) i32.const 1))`)
	be.Err(t, err, nil)
	be.Equal(t, m.String(), `(module
    (memory 2)
    (global $g i32 (i32.const 7))
    (func $main (export "main") (result i32)
        global.get $g
        (if
            (then
                nop
            )
        )
        i32.const 1
    )
)
`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		err    string
	}{
		{"not a module", "(func $f)", "expected (module ...)"},
		{"syntax", "(module", "expected ')'"},
		{"unknown field", "(module (table 1))", "unsupported module field (table 1)"},
		{"unknown instruction", `(module (func $f i64.add))`, "unsupported instruction i64.add"},
		{"missing operand", `(module (func $f i32.const))`, "i32.const expects an operand"},
		{"bad name", `(module (func $f (local $x i32) local.get x))`, "expected $name, got x"},
		{"value type", `(module (func $f (param $x i64)))`, "unsupported value type i64"},
		{"anonymous", `(module (func nop))`, "function needs a name or an export"},
		{"unknown local", `(module (func $f local.get $x))`, "$f: unknown local $x"},
		{"unknown global", `(module (func (export "e") global.get $g))`, `"e": unknown global $g`},
		{"immutable global", `(module (global $g i32 (i32.const 0)) (func $f i32.const 1 global.set $g))`, "global $g is immutable"},
		{"unknown function", `(module (func $f call $g))`, "unknown function $g"},
		{"unknown label", `(module (func $f (block $a br $b)))`, "unknown label $b"},
		{"label out of scope", `(module (func $f (block $a) br $a))`, "unknown label $a"},
		{"memory required", `(module (func $f i32.const 0 i32.load))`, "i32.load without memory"},
		{"duplicate function", `(module (func $f) (func $f))`, "duplicate function $f"},
		{"duplicate export", `(module (func (export "e")) (func (export "e")))`, `duplicate export "e"`},
		{"duplicate global", `(module (global $g i32 (i32.const 0)) (global $g i32 (i32.const 0)))`, "duplicate global $g"},
		{"duplicate local", `(module (func $f (param $x i32) (local $x i32)))`, "duplicate local $x"},
		{"if without then", `(module (func $f (if nop)))`, "expected (if (then ...) (else ...))"},
		{"const range", `(module (func $f i32.const 4294967296))`, "out of range"},
		{"global init", `(module (global $g (mut i32) (i32.add)))`, "global initializer must be (i32.const n)"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.source)
			be.Err(t, err, test.err)
		})
	}
}
