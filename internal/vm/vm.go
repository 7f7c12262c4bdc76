// Package vm owns the collector, the value constructors, and the two
// global environments (vars, funcs) every evaluation runs against.
package vm

import (
	"io"
	"os"

	"github.com/golisp/golisp/internal/gc"
	"github.com/golisp/golisp/internal/sexpr"
)

const initialArenaSize = 1 << 16

// Environment is a pair of parallel cons chains: `(symbols . (values .
// NIL))`. Set prepends, so later bindings shadow earlier ones with the
// same name; lookup is therefore newest-first.
type Environment struct {
	list sexpr.Value
}

// VM holds the collector, its registered S-expression types, and the
// vars/funcs environments rooted for the VM's whole lifetime.
type VM struct {
	GC    *gc.GC
	Types sexpr.Types

	Vars  Environment
	Funcs Environment

	// Stdout is where the print builtin writes. Defaults to os.Stdout;
	// tests and embedders may redirect it.
	Stdout io.Writer
}

// New constructs a VM with a fresh collector and both environments
// initialized and rooted.
func New() *VM {
	vm := &VM{GC: gc.New(initialArenaSize), Stdout: os.Stdout}
	vm.Types = sexpr.Register(vm.GC)

	envInit(vm, &vm.Vars)
	envInit(vm, &vm.Funcs)
	return vm
}

// NewSymbol allocates a symbol copying name's bytes.
func (vm *VM) NewSymbol(name []byte) sexpr.Value {
	obj := vm.GC.Alloc(vm.Types.Symbol, len(name), func() gc.Object { return &sexpr.Symbol{} })
	obj.(*sexpr.Symbol).Bytes = append([]byte(nil), name...)
	return obj
}

// NewString allocates a string copying s's bytes.
func (vm *VM) NewString(s []byte) sexpr.Value {
	obj := vm.GC.Alloc(vm.Types.String, len(s), func() gc.Object { return &sexpr.String{} })
	obj.(*sexpr.String).Bytes = append([]byte(nil), s...)
	return obj
}

// NewNumber allocates a number.
func (vm *VM) NewNumber(f float64) sexpr.Value {
	obj := vm.GC.Alloc(vm.Types.Number, 1, func() gc.Object { return &sexpr.Number{} })
	obj.(*sexpr.Number).Val = f
	return obj
}

// NewCons allocates a cons cell. car and cdr are rooted across the
// allocation, matching the source's vm_alloc_cons, since either may be
// the only reference keeping an unrooted operand alive while the
// collector runs.
func (vm *VM) NewCons(car, cdr sexpr.Value) sexpr.Value {
	vm.GC.Root(&car)
	vm.GC.Root(&cdr)
	defer vm.GC.Unroot(&cdr)
	defer vm.GC.Unroot(&car)

	obj := vm.GC.Alloc(vm.Types.Cons, 1, func() gc.Object { return &sexpr.Cons{} })
	c := obj.(*sexpr.Cons)
	c.Car, c.Cdr = car, cdr
	return obj
}

// envInit builds an empty environment, (NIL . (NIL . NIL)), and roots
// its list so the collector traces it for the VM's whole lifetime.
func envInit(vm *VM, env *Environment) {
	env.list = newEnvList(vm)
	vm.GC.Root(&env.list)
}

func newEnvList(vm *VM) sexpr.Value {
	values := vm.NewCons(sexpr.Nil, sexpr.Nil)
	return vm.NewCons(sexpr.Nil, values)
}

// NewLocalEnvironment builds an empty, unrooted environment for a callee's
// frame. Unlike the globals built by envInit, its list is reachable only
// through whatever GC object embeds the Environment (an eval frame), which
// is responsible for tracing it.
func NewLocalEnvironment(vm *VM) Environment {
	return Environment{list: newEnvList(vm)}
}

// List returns the environment's underlying (symbols . (values . NIL))
// spine, for a GC type's copy/children callbacks to trace.
func (env *Environment) List() sexpr.Value { return env.list }

// SetList overwrites the environment's spine with its relocated image,
// for a GC type's copy callback.
func (env *Environment) SetList(v sexpr.Value) { env.list = v }

// Set prepends a (symbol, value) pair onto env, shadowing any existing
// binding of the same name without removing it.
func (vm *VM) Set(env *Environment, symbol, value sexpr.Value) {
	list := env.list
	vm.GC.Root(&list)
	vm.GC.Root(&symbol)
	vm.GC.Root(&value)

	values := sexpr.Car(sexpr.Cdr(list))
	valueCons := vm.NewCons(value, values)

	vm.GC.Root(&valueCons)
	symbolCons := vm.NewCons(symbol, sexpr.Car(list))

	vm.GC.Unroot(&valueCons)
	vm.GC.Unroot(&value)
	vm.GC.Unroot(&symbol)
	vm.GC.Unroot(&list)

	list.(*sexpr.Cons).Car = symbolCons
	sexpr.Cdr(list).(*sexpr.Cons).Car = valueCons
}

// Lookup returns the most recently set value bound to symbol in env.
func Lookup(env *Environment, symbol sexpr.Value) (sexpr.Value, bool) {
	symbols := sexpr.Car(env.list)
	values := sexpr.Car(sexpr.Cdr(env.list))

	for !sexpr.IsNil(symbols) {
		if sexpr.SymbolEquals(sexpr.Car(symbols), symbol) {
			return sexpr.Car(values), true
		}
		symbols = sexpr.Cdr(symbols)
		values = sexpr.Cdr(values)
	}
	return nil, false
}
