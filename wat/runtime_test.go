package wat

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func instantiate(t *testing.T, source string, out *bytes.Buffer) *Instance {
	t.Helper()
	m, err := Parse(source)
	be.Err(t, err, nil)
	in, err := Instantiate(m, PrintImports(out))
	be.Err(t, err, nil)
	return in
}

func TestInvokeSample(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, sample, &out)

	results, err := in.Invoke("_start")
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{0})
	be.Equal(t, out.String(), "")
}

func TestInvokeNoResult(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module (func (export "e") nop))`, &out)
	results, err := in.Invoke("e")
	be.Err(t, err, nil)
	be.Equal(t, len(results), 0)
}

func TestInvokeArguments(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module
		(func $twice (param $x i32) (result i32) local.get $x local.get $x i32.add)
		(func (export "quad") (param $x i32) (result i32) local.get $x call $twice call $twice))`, &out)

	results, err := in.Invoke("quad", 5)
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{20})

	_, err = in.Invoke("quad")
	be.Err(t, err, `"quad" expects 1 arguments, got 0`)
	_, err = in.Invoke("twice", 1)
	be.Err(t, err, `no export "twice"`)
}

func TestPrintImports(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module
		(func $print_num (import "imports" "print_num") (param i32) (result i32))
		(func $print_bool (import "imports" "print_bool") (param i32) (result i32))
		(func $print_none (import "imports" "print_none") (param i32) (result i32))
		(func (export "_start") (result i32)
			i32.const -7 call $print_num drop
			i32.const 1 call $print_bool drop
			i32.const 0 call $print_bool drop
			i32.const -2147483648 call $print_none))`, &out)

	results, err := in.Invoke("_start")
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "-7\nTrue\nFalse\nNone\n")
	be.Equal(t, results, []int32{-2147483648})
}

func TestUnresolvedImport(t *testing.T) {
	m, err := Parse(`(module (func $log (import "env" "log") (param i32)))`)
	be.Err(t, err, nil)
	_, err = Instantiate(m, PrintImports(&bytes.Buffer{}))
	be.Err(t, err, `unresolved import "env" "log"`)
}

func TestImportWithoutResult(t *testing.T) {
	m, err := Parse(`(module
		(func $log (import "env" "log") (param i32))
		(func (export "e") i32.const 9 call $log))`)
	be.Err(t, err, nil)
	var got []int32
	in, err := Instantiate(m, Imports{"env": {"log": func(args []int32) (int32, error) {
		got = append(got, args...)
		return 0, nil
	}}})
	be.Err(t, err, nil)
	_, err = in.Invoke("e")
	be.Err(t, err, nil)
	be.Equal(t, got, []int32{9})
}

func TestHostError(t *testing.T) {
	m, err := Parse(`(module
		(func $fail (import "env" "fail") (param i32) (result i32))
		(func (export "e") i32.const 1 call $fail drop))`)
	be.Err(t, err, nil)
	boom := errors.New("boom")
	in, err := Instantiate(m, Imports{"env": {"fail": func([]int32) (int32, error) { return 0, boom }}})
	be.Err(t, err, nil)
	_, err = in.Invoke("e")
	be.Err(t, err, boom)
}

func TestLoopCountsDown(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module
		(func $print_num (import "imports" "print_num") (param i32) (result i32))
		(func (export "_start") (local $i i32)
			i32.const 3
			local.set $i
			(block $done
				(loop $again
					local.get $i
					i32.eqz
					br_if $done
					local.get $i
					call $print_num
					drop
					local.get $i
					i32.const 1
					i32.sub
					local.set $i
					br $again))))`, &out)

	_, err := in.Invoke("_start")
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "3\n2\n1\n")
}

func TestReturnFromNestedBlock(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module
		(func (export "e") (param $x i32) (result i32)
			(block $b
				(loop $l
					local.get $x
					(if
						(then
							i32.const 42
							return)
						(else
							br $b))))
			i32.const 7))`, &out)

	results, err := in.Invoke("e", 1)
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{42})
	results, err = in.Invoke("e", 0)
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{7})
}

func TestMemory(t *testing.T) {
	var out bytes.Buffer
	in := instantiate(t, `(module
		(memory 1)
		(func (export "e") (result i32)
			i32.const 100
			i32.const 258
			i32.store
			i32.const 96
			i32.load offset=4))`, &out)

	results, err := in.Invoke("e")
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{258})
}

func TestBinaryOps(t *testing.T) {
	tests := []struct {
		op   string
		a, b int32
		want int32
	}{
		{"i32.add", 2147483647, 1, -2147483648},
		{"i32.sub", 3, 5, -2},
		{"i32.mul", -4, 6, -24},
		{"i32.div_s", -7, 2, -3},
		{"i32.rem_s", -7, 2, -1},
		{"i32.rem_s", -2147483648, -1, 0},
		{"i32.eq", 4, 4, 1},
		{"i32.ne", 4, 4, 0},
		{"i32.lt_s", -1, 0, 1},
		{"i32.le_s", 0, 0, 1},
		{"i32.gt_s", -1, 0, 0},
		{"i32.ge_s", 1, 0, 1},
		{"i32.and", 6, 3, 2},
		{"i32.or", 6, 3, 7},
		{"i32.xor", 6, 3, 5},
	}

	for _, test := range tests {
		t.Run(test.op, func(t *testing.T) {
			in := instantiate(t, `(module
				(func (export "e") (param $a i32) (param $b i32) (result i32)
					local.get $a
					local.get $b
					`+test.op+`))`, &bytes.Buffer{})
			got, err := in.Invoke("e", test.a, test.b)
			be.Err(t, err, nil)
			be.Equal(t, got, []int32{test.want})
		})
	}
}

func TestTraps(t *testing.T) {
	tests := []struct {
		name   string
		source string
		reason string
	}{
		{"divide by zero", `(module (func (export "e") (result i32) i32.const 1 i32.const 0 i32.div_s))`, "integer divide by zero"},
		{"remainder by zero", `(module (func (export "e") (result i32) i32.const 1 i32.const 0 i32.rem_s))`, "integer divide by zero"},
		{"overflow", `(module (func (export "e") (result i32) i32.const -2147483648 i32.const -1 i32.div_s))`, "integer overflow"},
		{"none address", `(module (memory 1) (func (export "e") (result i32) i32.const -2147483648 i32.load))`, "out of bounds memory access"},
		{"past the page", `(module (memory 1) (func (export "e") i32.const 65533 i32.const 0 i32.store))`, "out of bounds memory access"},
		{"unreachable", `(module (func (export "e") unreachable))`, "unreachable"},
		{"recursion", `(module (func $f (export "e") call $f))`, "call stack exhausted"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			in := instantiate(t, test.source, &bytes.Buffer{})
			_, err := in.Invoke("e")
			var trap *Trap
			be.True(t, errors.As(err, &trap))
			be.Equal(t, trap.Reason, test.reason)
		})
	}
}

func TestInstanceRunsAfterTrap(t *testing.T) {
	in := instantiate(t, `(module
		(func $f (export "deep") call $f)
		(func (export "shallow") (result i32) i32.const 1))`, &bytes.Buffer{})
	_, err := in.Invoke("deep")
	be.Err(t, err, "call stack exhausted")
	results, err := in.Invoke("shallow")
	be.Err(t, err, nil)
	be.Equal(t, results, []int32{1})
}
