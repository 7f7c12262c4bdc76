package eval

import (
	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

// MaxStackDepth bounds the evaluator's recursion, guarding the host Go
// stack the way the source's own MAX_STACK_DEPTH_REACHED check guards its C
// call stack.
const MaxStackDepth = 4096

// Eval evaluates a single top-level form. On success it returns the result
// and a nil Context; on failure it returns the Context describing the error
// and backtrace.
func Eval(m *vm.VM, types Types, x sexpr.Value) (sexpr.Value, *Context) {
	h := NewHandle(m, types)

	m.GC.Root(&x)
	result, ok := evalOne(m, h, x)
	m.GC.Unroot(&x)

	ctx := h.Ctx()
	h.Close()

	if !ok || ctx.HasError {
		return nil, ctx
	}
	return result, nil
}

// evalOne dispatches a single form: self-evaluating atoms, symbol lookup,
// and calls (builtin, user-defined, or an inline lambda literal).
func evalOne(m *vm.VM, h *Handle, x sexpr.Value) (sexpr.Value, bool) {
	kind := sexpr.KindOf(x)

	if sexpr.IsNil(x) || kind == sexpr.KindNumber || kind == sexpr.KindString {
		return x, true
	}

	if kind == sexpr.KindSymbol {
		if v, ok := h.Lookup(x); ok {
			return v, true
		}
		h.SymbolLookupFailed(x)
		return nil, false
	}

	// kind == sexpr.KindCons, non-nil: a call.
	if h.StackDepth() >= MaxStackDepth {
		h.MaxStackDepthReached()
		return nil, false
	}

	m.GC.Root(&x)
	defer m.GC.Unroot(&x)

	head := sexpr.Car(x)
	rest := sexpr.Cdr(x)

	if sexpr.KindOf(head) == sexpr.KindSymbol {
		name := sexpr.SymbolBytes(head)
		if bi, ok := lookupBuiltin(name); ok {
			return evalFunc(m, h, head, sexpr.Nil, rest, bi)
		}
		if def, ok := vm.Lookup(&m.Funcs, head); ok {
			return evalFunc(m, h, head, sexpr.Cdr(sexpr.Cdr(def)), rest, nil)
		}
		h.IllegalCall(x)
		return nil, false
	}

	if isLambdaForm(head) {
		return evalFunc(m, h, head, sexpr.Cdr(head), rest, nil)
	}

	h.IllegalCall(x)
	return nil, false
}

func isLambdaForm(head sexpr.Value) bool {
	if sexpr.IsNil(head) || sexpr.KindOf(head) != sexpr.KindCons {
		return false
	}
	car := sexpr.Car(head)
	return sexpr.KindOf(car) == sexpr.KindSymbol && string(sexpr.SymbolBytes(car)) == "lambda"
}

// evalFunc applies a call whose arguments have not yet been evaluated: id
// names the call site (for the backtrace), def is the (params body) pair
// for a user function (ignored when bi is non-nil), args is the call's
// unevaluated argument list, and bi is the builtin definition when this is
// a builtin call.
func evalFunc(m *vm.VM, h *Handle, id, def, args sexpr.Value, bi *builtinDef) (sexpr.Value, bool) {
	return applyCall(m, h, id, def, args, bi, true)
}

// applyPreEvaluated applies a call whose args have already been evaluated
// once (funcall's own argument evaluation), so the inner call must not
// evaluate them again.
func applyPreEvaluated(m *vm.VM, h *Handle, id, args sexpr.Value, bi *builtinDef, def sexpr.Value) (sexpr.Value, bool) {
	return applyCall(m, h, id, def, args, bi, false)
}

func applyCall(m *vm.VM, h *Handle, id, def, args sexpr.Value, bi *builtinDef, mayEvalArgs bool) (sexpr.Value, bool) {
	m.GC.Root(&id)
	m.GC.Root(&def)
	m.GC.Root(&args)
	defer m.GC.Unroot(&args)
	defer m.GC.Unroot(&def)
	defer m.GC.Unroot(&id)

	validEnv := bi == nil || !bi.transparentEnv
	h.PushFrame(id, validEnv)
	defer h.PopFrame()

	argCount, ok := countArgs(h, args)
	if !ok {
		return nil, false
	}

	var variadic, evalArgsFlag bool
	var arity int

	if bi != nil {
		variadic = bi.variadic
		evalArgsFlag = mayEvalArgs && bi.evalArgs
		arity = bi.argCount
	} else {
		if !validateFunctionDef(h, def) {
			return nil, false
		}
		evalArgsFlag = mayEvalArgs
		arity = countParams(sexpr.Car(def))
	}

	if argCount != arity && !variadic {
		h.ErroneousArgCount(arity)
		return nil, false
	}

	finalArgs := args
	if evalArgsFlag {
		evaluated, ok := evalArgList(m, h, args)
		if !ok {
			return nil, false
		}
		finalArgs = evaluated
	}

	if bi != nil {
		return bi.fn(m, h, argCount, finalArgs)
	}

	defIter := sexpr.Car(def)
	valIter := finalArgs
	m.GC.Root(&defIter)
	m.GC.Root(&valIter)
	for !sexpr.IsNil(defIter) {
		h.AddSymbol(sexpr.Car(defIter), sexpr.Car(valIter))
		defIter = sexpr.Cdr(defIter)
		valIter = sexpr.Cdr(valIter)
	}
	m.GC.Unroot(&valIter)
	m.GC.Unroot(&defIter)

	return evalOne(m, h, sexpr.Car(sexpr.Cdr(def)))
}

// countArgs walks a call's argument list, reporting DottedArgList if it
// isn't a proper list.
func countArgs(h *Handle, args sexpr.Value) (int, bool) {
	count := 0
	arg := args
	for !sexpr.IsNil(arg) {
		if sexpr.KindOf(arg) != sexpr.KindCons {
			h.DottedArgList(count, args)
			return 0, false
		}
		count++
		arg = sexpr.Cdr(arg)
	}
	return count, true
}

func countParams(params sexpr.Value) int {
	n := 0
	for !sexpr.IsNil(params) {
		n++
		params = sexpr.Cdr(params)
	}
	return n
}

// validateFunctionDef checks def's shape: a two-element list (params body)
// whose params is a proper list of symbols.
func validateFunctionDef(h *Handle, def sexpr.Value) bool {
	if sexpr.IsNil(def) || sexpr.KindOf(def) != sexpr.KindCons {
		h.ErroneousArgCount(2)
		return false
	}
	rest := sexpr.Cdr(def)
	if sexpr.IsNil(rest) || sexpr.KindOf(rest) != sexpr.KindCons {
		h.ErroneousArgCount(2)
		return false
	}
	if !sexpr.IsNil(sexpr.Cdr(rest)) {
		h.ErroneousArgCount(2)
		return false
	}

	params := sexpr.Car(def)
	if sexpr.KindOf(params) != sexpr.KindCons {
		h.InvalidType(0, params, sexpr.KindCons)
		return false
	}

	idx := 0
	cur := params
	for !sexpr.IsNil(cur) {
		if sexpr.KindOf(sexpr.Car(cur)) != sexpr.KindSymbol {
			h.InvalidArgDefType(idx, sexpr.Car(cur))
			return false
		}
		if sexpr.KindOf(sexpr.Cdr(cur)) != sexpr.KindCons {
			h.DottedArgList(idx, params)
			return false
		}
		idx++
		cur = sexpr.Cdr(cur)
	}
	return true
}

// evalArgList evaluates each argument left to right into a freshly
// allocated list.
func evalArgList(m *vm.VM, h *Handle, args sexpr.Value) (sexpr.Value, bool) {
	argCons := args
	m.GC.Root(&argCons)
	defer m.GC.Unroot(&argCons)

	var argsList sexpr.Value = sexpr.Nil
	var current sexpr.Value
	m.GC.Root(&argsList)
	m.GC.Root(&current)
	defer m.GC.Unroot(&current)
	defer m.GC.Unroot(&argsList)

	for !sexpr.IsNil(argCons) {
		tmp, ok := evalOne(m, h, sexpr.Car(argCons))
		if !ok {
			return nil, false
		}

		m.GC.Root(&tmp)
		cons := m.NewCons(tmp, sexpr.Nil)
		m.GC.Unroot(&tmp)

		if sexpr.IsNil(argsList) {
			argsList = cons
			current = cons
		} else {
			current.(*sexpr.Cons).Cdr = cons
			current = cons
		}
		argCons = sexpr.Cdr(argCons)
	}
	return argsList, true
}
