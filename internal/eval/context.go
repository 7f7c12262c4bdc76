// Package eval implements form dispatch, builtin/user-function/lambda
// application, and the structured error/backtrace context every evaluation
// runs against.
package eval

import (
	"fmt"
	"io"

	"github.com/golisp/golisp/internal/gc"
	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

// ErrorKind identifies which single-slot error a Context is carrying.
type ErrorKind int

const (
	ArgInvalidType ErrorKind = iota
	CondArgNotPair
	DottedArgList
	ErroneousArgCount
	IllegalFuncCall
	InvalidArgDefType
	SymbolLookupFailed
	MaxStackDepthReached
)

// Frame is one link of the evaluator's call stack: the symbol or lambda form
// used at the call site, a fresh local environment, and whether that
// environment accepts new bindings directly (false for let/begin, whose
// bindings must escape into the enclosing scope).
type Frame struct {
	gc.Header
	FunctionID sexpr.Value
	ValidEnv   bool
	Env        vm.Environment
	Next       *Frame
}

func (f *Frame) GcNew() gc.Object { return &Frame{} }

// Context is the single-slot evaluation error record plus the GC-managed
// frame stack. No error accumulates: once a setter is called, every
// subsequent evaluation step bails out without reaching another setter, so
// the first reported error (and the frame stack at that point) is what
// survives.
type Context struct {
	gc.Header
	HasError     bool
	Kind         ErrorKind
	ArgIndex     int
	Sexpr        sexpr.Value
	ExpectedType sexpr.Kind
	Frame        *Frame
}

func (c *Context) GcNew() gc.Object { return &Context{} }

// Types names the two GC type ids Register installs.
type Types struct {
	Frame   int
	Context int
}

// Register installs the Frame and Context GC types with g.
func Register(g *gc.GC) Types {
	frameID := g.RegisterType(gc.TypeInfo{
		Name: "eval-frame",
		Size: func(gc.Object) int { return 1 },
		Copy: func(g *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*Frame), neu.(*Frame)

			fid, ok := g.Copy(o.FunctionID)
			if !ok {
				return false
			}
			n.FunctionID = fid
			n.ValidEnv = o.ValidEnv

			envList, ok := g.Copy(o.Env.List())
			if !ok {
				return false
			}
			n.Env.SetList(envList)

			if o.Next == nil {
				n.Next = nil
				return true
			}
			next, ok := g.Copy(o.Next)
			if !ok {
				return false
			}
			n.Next = next.(*Frame)
			return true
		},
		Children: func(obj, cursor gc.Object) gc.Object {
			f := obj.(*Frame)
			env := f.Env.List()
			switch cursor {
			case nil:
				if !sexpr.IsNil(f.FunctionID) {
					return f.FunctionID
				}
				return env
			case f.FunctionID:
				return env
			case env:
				if f.Next == nil {
					return nil
				}
				return f.Next
			default:
				return nil
			}
		},
	})

	contextID := g.RegisterType(gc.TypeInfo{
		Name: "eval-context",
		Size: func(gc.Object) int { return 1 },
		Copy: func(g *gc.GC, old, neu gc.Object) bool {
			o, n := old.(*Context), neu.(*Context)

			n.HasError = o.HasError
			n.Kind = o.Kind
			n.ArgIndex = o.ArgIndex
			n.ExpectedType = o.ExpectedType

			sx, ok := g.Copy(o.Sexpr)
			if !ok {
				return false
			}
			n.Sexpr = sx

			if o.Frame == nil {
				n.Frame = nil
				return true
			}
			fr, ok := g.Copy(o.Frame)
			if !ok {
				return false
			}
			n.Frame = fr.(*Frame)
			return true
		},
		Children: func(obj, cursor gc.Object) gc.Object {
			c := obj.(*Context)
			hasSexpr := c.Sexpr != nil && !sexpr.IsNil(c.Sexpr)
			switch cursor {
			case nil:
				if hasSexpr {
					return c.Sexpr
				}
				if c.Frame == nil {
					return nil
				}
				return c.Frame
			case c.Sexpr:
				if c.Frame == nil {
					return nil
				}
				return c.Frame
			default:
				return nil
			}
		},
	})

	return Types{Frame: frameID, Context: contextID}
}

// Handle is a scope-bound root over a *Context: its constructor registers
// the context as a GC root and Close unregisters it, replacing the source's
// ad-hoc VM_ROOT/VM_UNROOT bracketing of EvalContext pointers at every call
// site with a single long-lived root established once per top-level
// evaluation (spec.md §9's suggested root-discipline redesign). Ctx always
// re-derives the live pointer from the rooted cell rather than letting
// callers cache a *Context across an allocating call, which is the only
// discipline this relies on: cache ctx across an allocating call and it can
// go stale exactly like an unrooted C local would.
type Handle struct {
	vm    *vm.VM
	types Types
	obj   gc.Object
}

// NewHandle allocates a fresh Context and roots it for the handle's
// lifetime.
func NewHandle(m *vm.VM, types Types) *Handle {
	obj := m.GC.Alloc(types.Context, 1, func() gc.Object { return &Context{} })
	h := &Handle{vm: m, types: types, obj: obj}
	m.GC.Root(&h.obj)
	return h
}

// Ctx returns the context's current (possibly relocated) address. Always
// call this fresh rather than caching the result across any call that may
// allocate.
func (h *Handle) Ctx() *Context { return h.obj.(*Context) }

// Close unroots the context. The underlying value remains valid Go memory
// afterward (ordinary heap garbage collection still applies); it simply
// stops being tracked by this collector.
func (h *Handle) Close() { h.vm.GC.Unroot(&h.obj) }

// IsOK reports whether no error has been recorded yet.
func (h *Handle) IsOK() bool { return !h.Ctx().HasError }

// PushFrame creates a frame keyed by id with a fresh local environment and
// links it onto the context's frame stack. validEnv is false for the
// transparent frames let/begin push, so that eval_context_add_symbol writes
// through to the caller's scope instead of this frame's own environment.
func (h *Handle) PushFrame(id sexpr.Value, validEnv bool) {
	m := h.vm
	m.GC.Root(&id)
	defer m.GC.Unroot(&id)

	env := vm.NewLocalEnvironment(m)

	envList := env.List()
	m.GC.Root(&envList)
	frameObj := m.GC.Alloc(h.types.Frame, 1, func() gc.Object { return &Frame{} })
	m.GC.Unroot(&envList)
	env.SetList(envList)

	frame := frameObj.(*Frame)
	frame.FunctionID = id
	frame.ValidEnv = validEnv
	frame.Env = env

	ctx := h.Ctx()
	frame.Next = ctx.Frame
	ctx.Frame = frame
}

// PopFrame unlinks the innermost frame, but only when no error has been
// recorded — an error freezes the frame stack in place so the backtrace
// reflects the call chain at the point of failure.
func (h *Handle) PopFrame() {
	ctx := h.Ctx()
	if ctx.HasError {
		return
	}
	if ctx.Frame != nil {
		ctx.Frame = ctx.Frame.Next
	}
}

// StackDepth counts the linked frames.
func (h *Handle) StackDepth() int {
	n := 0
	for f := h.Ctx().Frame; f != nil; f = f.Next {
		n++
	}
	return n
}

// AddSymbol writes (symbol, value) into the innermost frame whose
// environment accepts direct bindings, or the VM's global vars if no frame
// does (every active frame is transparent, or there is no active frame).
func (h *Handle) AddSymbol(symbol, value sexpr.Value) {
	m := h.vm
	for f := h.Ctx().Frame; f != nil; f = f.Next {
		if f.ValidEnv {
			m.Set(&f.Env, symbol, value)
			return
		}
	}
	m.Set(&m.Vars, symbol, value)
}

// Lookup searches frames newest-first, then the global vars.
func (h *Handle) Lookup(symbol sexpr.Value) (sexpr.Value, bool) {
	for f := h.Ctx().Frame; f != nil; f = f.Next {
		if v, ok := vm.Lookup(&f.Env, symbol); ok {
			return v, true
		}
	}
	return vm.Lookup(&h.vm.Vars, symbol)
}

func (h *Handle) InvalidType(argIndex int, arg sexpr.Value, expected sexpr.Kind) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = ArgInvalidType
	ctx.ArgIndex = argIndex
	ctx.Sexpr = arg
	ctx.ExpectedType = expected
}

func (h *Handle) CondArgNotPair(argIndex int, notPair sexpr.Value) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = CondArgNotPair
	ctx.ArgIndex = argIndex
	ctx.Sexpr = notPair
}

func (h *Handle) DottedArgList(dottedStart int, argList sexpr.Value) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = DottedArgList
	ctx.ArgIndex = dottedStart
	ctx.Sexpr = argList
}

func (h *Handle) ErroneousArgCount(requiredArgCount int) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = ErroneousArgCount
	ctx.ArgIndex = requiredArgCount
}

func (h *Handle) IllegalCall(sx sexpr.Value) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = IllegalFuncCall
	ctx.Sexpr = sx
}

func (h *Handle) InvalidArgDefType(argIndex int, argDef sexpr.Value) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = InvalidArgDefType
	ctx.ArgIndex = argIndex
	ctx.Sexpr = argDef
}

func (h *Handle) SymbolLookupFailed(symbol sexpr.Value) {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = SymbolLookupFailed
	ctx.Sexpr = symbol
}

func (h *Handle) MaxStackDepthReached() {
	ctx := h.Ctx()
	ctx.HasError = true
	ctx.Kind = MaxStackDepthReached
}

// Print renders the recorded error and a stack backtrace ("  N:
// <function-id>" per frame, bottom "N+1: <script>"), matching
// eval_context_print.
func (c *Context) Print(w io.Writer) {
	switch c.Kind {
	case ArgInvalidType:
		fmt.Fprintf(w, "argument %d (`%s`) is not %s\n", c.ArgIndex, sexpr.ToString(c.Sexpr), c.ExpectedType)
	case CondArgNotPair:
		fmt.Fprintf(w, "argument %d (`%s`) is not a pair\n", c.ArgIndex, sexpr.ToString(c.Sexpr))
	case DottedArgList:
		fmt.Fprintf(w, "dotted argument list starts at %d (`%s`)\n", c.ArgIndex, sexpr.ToString(c.Sexpr))
	case ErroneousArgCount:
		fmt.Fprintf(w, "erroneous argument count: %d required arguments\n", c.ArgIndex)
	case IllegalFuncCall:
		fmt.Fprintf(w, "illegal function call `%s`\n", sexpr.ToString(c.Sexpr))
	case InvalidArgDefType:
		fmt.Fprintf(w, "argument definition (`%s`) at %d has invalid type\n", sexpr.ToString(c.Sexpr), c.ArgIndex)
	case SymbolLookupFailed:
		fmt.Fprintf(w, "lookup of symbol `%s` failed\n", sexpr.ToString(c.Sexpr))
	case MaxStackDepthReached:
		fmt.Fprintf(w, "maximum stack depth reached\n")
	}

	fmt.Fprintln(w, "stack backtrace:")
	idx := 0
	for f := c.Frame; f != nil; f = f.Next {
		fmt.Fprintf(w, "%5d: %s\n", idx, sexpr.ToString(f.FunctionID))
		idx++
	}
	fmt.Fprintf(w, "%5d: <script>\n", idx)
}
