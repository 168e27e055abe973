package wat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v25"
)

// HostFunc implements an imported function. Its result is ignored when the
// import declares none.
type HostFunc func(args []int32) (int32, error)

// Imports maps an import module name and field name to its implementation.
type Imports map[string]map[string]HostFunc

// Trap is a runtime failure of the executing module.
type Trap struct {
	Reason string
}

func (t *Trap) Error() string {
	return "trap: " + t.Reason
}

var engine = sync.OnceValue(wasmtime.NewEngine)

// Instance is a module linked against its imports and ready to run.
type Instance struct {
	store    *wasmtime.Store
	instance *wasmtime.Instance

	// hostErr is the error a host function failed with during the current
	// call. wasmtime only carries the trap message across the boundary.
	hostErr error
}

// Instantiate assembles m, links it against imports and initializes its
// memory and globals.
func Instantiate(m *Module, imports Imports) (*Instance, error) {
	for _, imp := range m.Imports {
		if imports[imp.Module][imp.Name] == nil {
			return nil, fmt.Errorf("wat: unresolved import %q %q", imp.Module, imp.Name)
		}
	}

	wasm, err := wasmtime.Wat2Wasm(m.String())
	if err != nil {
		return nil, fmt.Errorf("wat: assembling module: %w", err)
	}
	module, err := wasmtime.NewModule(engine(), wasm)
	if err != nil {
		return nil, fmt.Errorf("wat: compiling module: %w", err)
	}

	in := &Instance{store: wasmtime.NewStore(engine())}
	linker := wasmtime.NewLinker(engine())
	linker.AllowShadowing(true)
	for _, imp := range m.Imports {
		host := imports[imp.Module][imp.Name]
		ty := funcType(imp.Params, imp.Result)
		err := linker.FuncNew(imp.Module, imp.Name, ty, func(_ *wasmtime.Caller, vals []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
			args := make([]int32, len(vals))
			for i, v := range vals {
				args[i] = v.I32()
			}
			result, err := host(args)
			if err != nil {
				in.hostErr = err
				return nil, wasmtime.NewTrap(err.Error())
			}
			if !imp.Result {
				return nil, nil
			}
			return []wasmtime.Val{wasmtime.ValI32(result)}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("wat: linking %q %q: %w", imp.Module, imp.Name, err)
		}
	}

	in.instance, err = linker.Instantiate(in.store, module)
	if err != nil {
		return nil, in.failure(err)
	}
	return in, nil
}

func funcType(params int, result bool) *wasmtime.FuncType {
	i32 := wasmtime.NewValType(wasmtime.KindI32)
	ps := make([]*wasmtime.ValType, params)
	for i := range ps {
		ps[i] = i32
	}
	var rs []*wasmtime.ValType
	if result {
		rs = append(rs, i32)
	}
	return wasmtime.NewFuncType(ps, rs)
}

// Invoke calls an exported function. It returns the function's result, if
// it declares one.
func (in *Instance) Invoke(export string, args ...int32) ([]int32, error) {
	fn := in.instance.GetFunc(in.store, export)
	if fn == nil {
		return nil, fmt.Errorf("wat: no export %q", export)
	}
	if params := len(fn.Type(in.store).Params()); len(args) != params {
		return nil, fmt.Errorf("wat: %q expects %d arguments, got %d", export, params, len(args))
	}

	vals := make([]interface{}, len(args))
	for i, a := range args {
		vals[i] = a
	}
	in.hostErr = nil
	result, err := fn.Call(in.store, vals...)
	if err != nil {
		return nil, in.failure(err)
	}
	switch v := result.(type) {
	case nil:
		return nil, nil
	case int32:
		return []int32{v}, nil
	default:
		return nil, fmt.Errorf("wat: %q returned unexpected %T", export, result)
	}
}

var trapReasons = map[wasmtime.TrapCode]string{
	wasmtime.IntegerDivisionByZero:  "integer divide by zero",
	wasmtime.IntegerOverflow:        "integer overflow",
	wasmtime.MemoryOutOfBounds:      "out of bounds memory access",
	wasmtime.StackOverflow:          "call stack exhausted",
	wasmtime.UnreachableCodeReached: "unreachable",
}

// failure turns an error out of wasmtime into a host error, a *Trap or a
// wrapped engine error.
func (in *Instance) failure(err error) error {
	if in.hostErr != nil {
		return in.hostErr
	}
	var trap *wasmtime.Trap
	if !errors.As(err, &trap) {
		return fmt.Errorf("wat: %w", err)
	}
	if code := trap.Code(); code != nil {
		if reason, ok := trapReasons[*code]; ok {
			return &Trap{Reason: reason}
		}
	}
	return &Trap{Reason: trap.Message()}
}
