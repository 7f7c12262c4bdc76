package eval

import (
	"math"

	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

// builtinFunc implements one builtin's body once its call has been
// validated (arity checked, arguments evaluated if the definition calls
// for it). args is the (possibly evaluated) argument list.
type builtinFunc func(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool)

// builtinDef mirrors the source's BuiltinDef: a name, its arity contract,
// whether its arguments are evaluated before the call, and whether the
// frame it pushes is transparent to eval_context_add_symbol (let/begin).
type builtinDef struct {
	name           string
	variadic       bool
	argCount       int
	evalArgs       bool
	transparentEnv bool
	fn             builtinFunc
}

// builtins shares builtinTable's entries. It is assigned in init so that
// lookupBuiltin (reached from evalOne, which builtin bodies call) does not
// make builtinTable's initializer depend on itself.
var builtins []builtinDef

func init() { builtins = builtinTable }

func lookupBuiltin(name []byte) (*builtinDef, bool) {
	for i := range builtins {
		if string(builtins[i].name) == string(name) {
			return &builtins[i], true
		}
	}
	return nil, false
}

func tSymbol(m *vm.VM) sexpr.Value { return m.NewSymbol([]byte("t")) }

var builtinTable = []builtinDef{
	{name: "nil?", argCount: 1, evalArgs: true, fn: builtinIsNil},
	{name: "symbol?", argCount: 1, evalArgs: true, fn: builtinIsKind(sexpr.KindSymbol)},
	{name: "string?", argCount: 1, evalArgs: true, fn: builtinIsKind(sexpr.KindString)},
	{name: "number?", argCount: 1, evalArgs: true, fn: builtinIsKind(sexpr.KindNumber)},
	{name: "list?", argCount: 1, evalArgs: true, fn: builtinIsKind(sexpr.KindCons)},
	{name: "sexp_to_bool", argCount: 1, evalArgs: true, fn: builtinSexpToBool},

	{name: "cons", argCount: 2, evalArgs: true, fn: builtinCons},

	{name: "add", argCount: 2, evalArgs: true, fn: builtinAdd},
	{name: "+", argCount: 2, evalArgs: true, fn: builtinAdd},
	{name: "sub", argCount: 2, evalArgs: true, fn: builtinSub},
	{name: "-", argCount: 2, evalArgs: true, fn: builtinSub},
	{name: "mul", argCount: 2, evalArgs: true, fn: builtinMul},
	{name: "*", argCount: 2, evalArgs: true, fn: builtinMul},
	{name: "div", argCount: 2, evalArgs: true, fn: builtinDiv},
	{name: "/", argCount: 2, evalArgs: true, fn: builtinDiv},
	{name: "mod", argCount: 2, evalArgs: true, fn: builtinMod},
	{name: "%", argCount: 2, evalArgs: true, fn: builtinMod},

	{name: "lt", argCount: 2, evalArgs: true, fn: builtinLt},
	{name: "<", argCount: 2, evalArgs: true, fn: builtinLt},
	{name: "gt", argCount: 2, evalArgs: true, fn: builtinGt},
	{name: ">", argCount: 2, evalArgs: true, fn: builtinGt},
	{name: "lte", argCount: 2, evalArgs: true, fn: builtinLte},
	{name: "<=", argCount: 2, evalArgs: true, fn: builtinLte},
	{name: "gte", argCount: 2, evalArgs: true, fn: builtinGte},
	{name: ">=", argCount: 2, evalArgs: true, fn: builtinGte},

	{name: "eq", argCount: 2, evalArgs: true, fn: builtinEq},
	{name: "==", argCount: 2, evalArgs: true, fn: builtinEq},
	{name: "neq", argCount: 2, evalArgs: true, fn: builtinNeq},
	{name: "!=", argCount: 2, evalArgs: true, fn: builtinNeq},

	{name: "not", argCount: 1, evalArgs: true, fn: builtinNot},
	{name: "!", argCount: 1, evalArgs: true, fn: builtinNot},

	{name: "car", argCount: 1, evalArgs: true, fn: builtinCar},
	{name: "cdr", argCount: 1, evalArgs: true, fn: builtinCdr},

	{name: "eval", argCount: 1, evalArgs: true, fn: builtinEval},
	{name: "print", argCount: 1, evalArgs: true, fn: builtinPrint},

	{name: "quote", argCount: 1, evalArgs: false, fn: builtinQuote},
	{name: "lambda", argCount: 2, evalArgs: false, fn: builtinLambda},
	{name: "function", argCount: 1, evalArgs: false, fn: builtinFunction},
	{name: "set", argCount: 2, evalArgs: false, fn: builtinSet},
	{name: "and", argCount: 2, evalArgs: false, fn: builtinAnd},
	{name: "or", argCount: 2, evalArgs: false, fn: builtinOr},
	{name: "if", argCount: 3, evalArgs: false, fn: builtinIf},

	{name: "let", argCount: 2, evalArgs: false, transparentEnv: true, fn: builtinLet},
	{name: "begin", variadic: true, evalArgs: false, transparentEnv: true, fn: builtinBegin},
	{name: "cond", variadic: true, evalArgs: false, fn: builtinCond},
	{name: "define", variadic: true, evalArgs: false, fn: builtinDefine},
	{name: "funcall", variadic: true, evalArgs: true, fn: builtinFuncall},
}

func builtinIsNil(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if sexpr.IsNil(sexpr.Car(args)) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinIsKind(kind sexpr.Kind) builtinFunc {
	return func(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
		if sexpr.KindOf(sexpr.Car(args)) == kind {
			return tSymbol(m), true
		}
		return sexpr.Nil, true
	}
}

func builtinSexpToBool(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if !sexpr.IsNil(sexpr.Car(args)) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinCons(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	return m.NewCons(a0, a1), true
}

// checkTwoNumbers type-checks both arguments in order and reports the
// first one that is not a number, so when both are the wrong type the
// error names argument 0.
func checkTwoNumbers(h *Handle, a0, a1 sexpr.Value) bool {
	if sexpr.KindOf(a0) != sexpr.KindNumber {
		h.InvalidType(0, a0, sexpr.KindNumber)
		return false
	}
	if sexpr.KindOf(a1) != sexpr.KindNumber {
		h.InvalidType(1, a1, sexpr.KindNumber)
		return false
	}
	return true
}

func builtinAdd(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	return m.NewNumber(sexpr.NumberValue(a0) + sexpr.NumberValue(a1)), true
}

func builtinSub(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	return m.NewNumber(sexpr.NumberValue(a0) - sexpr.NumberValue(a1)), true
}

func builtinMul(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	return m.NewNumber(sexpr.NumberValue(a0) * sexpr.NumberValue(a1)), true
}

func builtinDiv(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	return m.NewNumber(sexpr.NumberValue(a0) / sexpr.NumberValue(a1)), true
}

// minNormalFloat64 is the smallest positive IEEE-754 double that isn't
// subnormal (2^-1022), matching C's isnormal().
const minNormalFloat64 = 2.2250738585072014e-308

func isNormalFloat(f float64) bool {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return math.Abs(f) >= minNormalFloat64
}

// builtinMod mirrors the source's float modulo: the fractional part of
// a/b, times b. Non-normal quotients (zero, NaN, Inf) pass through
// unchanged rather than being run through math.Modf.
func builtinMod(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}

	dividend := sexpr.NumberValue(a0) / sexpr.NumberValue(a1)
	if !isNormalFloat(dividend) {
		return m.NewNumber(dividend), true
	}
	_, frac := math.Modf(dividend)
	return m.NewNumber(frac * sexpr.NumberValue(a1)), true
}

func builtinLt(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	if sexpr.NumberValue(a0) < sexpr.NumberValue(a1) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinGt(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	if sexpr.NumberValue(a0) > sexpr.NumberValue(a1) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinLte(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	if sexpr.NumberValue(a0) <= sexpr.NumberValue(a1) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinGte(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))
	if !checkTwoNumbers(h, a0, a1) {
		return nil, false
	}
	if sexpr.NumberValue(a0) >= sexpr.NumberValue(a1) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

// builtinEq compares two atoms of the same kind; comparing a cons against
// anything (including another cons) is an illegal call, and comparing two
// atoms of differing kinds is a type error against the first argument's
// kind. Number comparison uses the source's documented precision quirk:
// |a-b| < a*b*1e-6, rather than exact equality.
func builtinEq(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0, a1 := sexpr.Car(args), sexpr.Car(sexpr.Cdr(args))

	var equal bool
	switch {
	case sexpr.KindOf(a0) == sexpr.KindCons || sexpr.KindOf(a1) == sexpr.KindCons:
		h.IllegalCall(args)
		return nil, false
	case sexpr.KindOf(a0) == sexpr.KindSymbol && sexpr.KindOf(a1) == sexpr.KindSymbol:
		equal = sexpr.SymbolEquals(a0, a1)
	case sexpr.KindOf(a0) == sexpr.KindString && sexpr.KindOf(a1) == sexpr.KindString:
		equal = string(sexpr.StringBytes(a0)) == string(sexpr.StringBytes(a1))
	case sexpr.KindOf(a0) == sexpr.KindNumber && sexpr.KindOf(a1) == sexpr.KindNumber:
		v0, v1 := sexpr.NumberValue(a0), sexpr.NumberValue(a1)
		precision := v0 * v1 * 0.000001
		equal = math.Abs(v0-v1) < precision
	default:
		h.InvalidType(1, a1, sexpr.KindOf(a0))
		return nil, false
	}

	if equal {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinNeq(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	v, ok := builtinEq(m, h, argCount, args)
	if !ok {
		return nil, false
	}
	if sexpr.IsNil(v) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinNot(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if sexpr.IsNil(sexpr.Car(args)) {
		return tSymbol(m), true
	}
	return sexpr.Nil, true
}

func builtinCar(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0 := sexpr.Car(args)
	if sexpr.KindOf(a0) != sexpr.KindCons {
		h.InvalidType(0, a0, sexpr.KindCons)
		return nil, false
	}
	if sexpr.IsNil(a0) {
		return sexpr.Nil, true
	}
	return sexpr.Car(a0), true
}

func builtinCdr(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0 := sexpr.Car(args)
	if sexpr.KindOf(a0) != sexpr.KindCons {
		h.InvalidType(0, a0, sexpr.KindCons)
		return nil, false
	}
	if sexpr.IsNil(a0) {
		return sexpr.Nil, true
	}
	return sexpr.Cdr(a0), true
}

func builtinEval(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	return evalOne(m, h, sexpr.Car(args))
}

func builtinPrint(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0 := sexpr.Car(args)
	sexpr.Print(m.Stdout, a0)
	return a0, true
}

func builtinQuote(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	return sexpr.Car(args), true
}

// functionTag is the symbol bytes naming a function value's tag cons:
// ('function id params body).
var functionTag = []byte("function")

func makeFunctionValue(m *vm.VM, id, params, body sexpr.Value) sexpr.Value {
	m.GC.Root(&id)
	m.GC.Root(&params)
	m.GC.Root(&body)
	defer m.GC.Unroot(&body)
	defer m.GC.Unroot(&params)
	defer m.GC.Unroot(&id)

	tag := m.NewSymbol(functionTag)
	m.GC.Root(&tag)
	bodyCons := m.NewCons(body, sexpr.Nil)
	m.GC.Root(&bodyCons)
	paramsCons := m.NewCons(params, bodyCons)
	m.GC.Unroot(&bodyCons)
	idCons := m.NewCons(id, paramsCons)
	result := m.NewCons(tag, idCons)
	m.GC.Unroot(&tag)
	return result
}

func isFunctionValue(v sexpr.Value) bool {
	if sexpr.IsNil(v) || sexpr.KindOf(v) != sexpr.KindCons {
		return false
	}
	tag := sexpr.Car(v)
	return sexpr.KindOf(tag) == sexpr.KindSymbol && string(sexpr.SymbolBytes(tag)) == "function"
}

// builtinLambda wraps a (params body) form as a first-class function
// value, anonymous (id is the symbol "lambda").
func builtinLambda(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	params := sexpr.Car(args)
	body := sexpr.Car(sexpr.Cdr(args))

	m.GC.Root(&params)
	m.GC.Root(&body)
	id := m.NewSymbol([]byte("lambda"))
	m.GC.Unroot(&body)
	m.GC.Unroot(&params)

	return makeFunctionValue(m, id, params, body), true
}

// builtinFunction resolves a symbol to its function-value representation:
// a real user definition's (params body), or a builtin wrapped as
// ('function, name, name, NIL) — params being a bare symbol rather than a
// list marks the wrapper shape for funcall to recognize.
func builtinFunction(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	name := sexpr.Car(args)
	if sexpr.KindOf(name) != sexpr.KindSymbol {
		h.InvalidType(0, name, sexpr.KindSymbol)
		return nil, false
	}

	m.GC.Root(&name)
	defer m.GC.Unroot(&name)

	if def, ok := vm.Lookup(&m.Funcs, name); ok {
		params := sexpr.Car(sexpr.Cdr(sexpr.Cdr(def)))
		body := sexpr.Car(sexpr.Cdr(sexpr.Cdr(sexpr.Cdr(def))))
		return makeFunctionValue(m, name, params, body), true
	}

	if _, ok := lookupBuiltin(sexpr.SymbolBytes(name)); ok {
		return makeFunctionValue(m, name, name, sexpr.Nil), true
	}

	h.SymbolLookupFailed(name)
	return nil, false
}

// builtinFuncall applies an already-evaluated function value (from
// `function` or `lambda`) to already-evaluated arguments, without
// evaluating either again.
func builtinFuncall(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if argCount < 1 {
		h.ErroneousArgCount(1)
		return nil, false
	}

	fnValue := sexpr.Car(args)
	rest := sexpr.Cdr(args)

	if !isFunctionValue(fnValue) {
		h.InvalidType(0, fnValue, sexpr.KindCons)
		return nil, false
	}

	id := sexpr.Car(sexpr.Cdr(fnValue))
	params := sexpr.Car(sexpr.Cdr(sexpr.Cdr(fnValue)))

	if sexpr.KindOf(params) != sexpr.KindCons {
		name := sexpr.SymbolBytes(id)
		bi, ok := lookupBuiltin(name)
		if !ok {
			h.IllegalCall(fnValue)
			return nil, false
		}
		return applyPreEvaluated(m, h, id, rest, bi, sexpr.Nil)
	}

	def := sexpr.Cdr(sexpr.Cdr(fnValue))
	return applyPreEvaluated(m, h, id, rest, nil, def)
}

func builtinSet(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	name := sexpr.Car(args)
	valueExpr := sexpr.Car(sexpr.Cdr(args))

	if sexpr.KindOf(name) != sexpr.KindSymbol {
		h.InvalidType(0, name, sexpr.KindSymbol)
		return nil, false
	}

	m.GC.Root(&name)
	defer m.GC.Unroot(&name)

	value, ok := evalOne(m, h, valueExpr)
	if !ok {
		return nil, false
	}

	m.Set(&m.Vars, name, value)
	return value, true
}

// builtinLet binds a symbol to an evaluated value. Its own frame is
// transparent, so AddSymbol writes through into the caller's scope instead
// of this call's own (otherwise-invisible) local environment.
func builtinLet(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	name := sexpr.Car(args)
	valueExpr := sexpr.Car(sexpr.Cdr(args))

	if sexpr.KindOf(name) != sexpr.KindSymbol {
		h.InvalidType(0, name, sexpr.KindSymbol)
		return nil, false
	}

	m.GC.Root(&name)
	defer m.GC.Unroot(&name)

	value, ok := evalOne(m, h, valueExpr)
	if !ok {
		return nil, false
	}

	h.AddSymbol(name, value)
	return value, true
}

func builtinAnd(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0 := sexpr.Car(args)
	a1 := sexpr.Car(sexpr.Cdr(args))
	m.GC.Root(&a1)
	defer m.GC.Unroot(&a1)

	v, ok := evalOne(m, h, a0)
	if !ok {
		return nil, false
	}
	if sexpr.IsNil(v) {
		return sexpr.Nil, true
	}
	return evalOne(m, h, a1)
}

func builtinOr(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	a0 := sexpr.Car(args)
	a1 := sexpr.Car(sexpr.Cdr(args))
	m.GC.Root(&a1)
	defer m.GC.Unroot(&a1)

	v, ok := evalOne(m, h, a0)
	if !ok {
		return nil, false
	}
	if !sexpr.IsNil(v) {
		return tSymbol(m), true
	}
	return evalOne(m, h, a1)
}

func builtinIf(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	test := sexpr.Car(args)
	then := sexpr.Car(sexpr.Cdr(args))
	els := sexpr.Car(sexpr.Cdr(sexpr.Cdr(args)))

	m.GC.Root(&then)
	m.GC.Root(&els)
	v, ok := evalOne(m, h, test)
	m.GC.Unroot(&els)
	m.GC.Unroot(&then)
	if !ok {
		return nil, false
	}

	if !sexpr.IsNil(v) {
		return evalOne(m, h, then)
	}
	return evalOne(m, h, els)
}

// builtinBegin sequences its forms, returning the last. An empty body is
// an arity error (it must return something).
func builtinBegin(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if sexpr.IsNil(args) {
		h.ErroneousArgCount(1)
		return nil, false
	}

	forms := args
	m.GC.Root(&forms)
	defer m.GC.Unroot(&forms)

	var result sexpr.Value
	var ok bool
	for !sexpr.IsNil(forms) {
		result, ok = evalOne(m, h, sexpr.Car(forms))
		if !ok {
			return nil, false
		}
		forms = sexpr.Cdr(forms)
	}
	return result, true
}

// builtinCond evaluates (test expr) clauses in order, returning the first
// whose test is non-nil. No match is an illegal call; a clause that isn't
// a pair is COND_ARG_NOT_PAIR.
func builtinCond(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	clauses := args
	m.GC.Root(&clauses)
	defer m.GC.Unroot(&clauses)

	idx := 0
	for !sexpr.IsNil(clauses) {
		pair := sexpr.Car(clauses)
		if sexpr.IsNil(pair) || sexpr.KindOf(pair) != sexpr.KindCons || sexpr.IsNil(sexpr.Cdr(pair)) {
			h.CondArgNotPair(idx, pair)
			return nil, false
		}

		test := sexpr.Car(pair)
		consequent := sexpr.Car(sexpr.Cdr(pair))

		result, ok := evalOne(m, h, test)
		if !ok {
			return nil, false
		}
		if !sexpr.IsNil(result) {
			return evalOne(m, h, consequent)
		}

		idx++
		clauses = sexpr.Cdr(clauses)
	}

	h.IllegalCall(args)
	return nil, false
}

// builtinDefine wraps (name params body-forms...) as a ('function name
// params (begin body-forms...)) value stored in the funcs environment.
func builtinDefine(m *vm.VM, h *Handle, argCount int, args sexpr.Value) (sexpr.Value, bool) {
	if argCount < 3 {
		h.ErroneousArgCount(3)
		return nil, false
	}

	name := sexpr.Car(args)
	if sexpr.KindOf(name) != sexpr.KindSymbol {
		h.InvalidType(0, name, sexpr.KindSymbol)
		return nil, false
	}
	params := sexpr.Car(sexpr.Cdr(args))
	bodyForms := sexpr.Cdr(sexpr.Cdr(args))

	m.GC.Root(&name)
	m.GC.Root(&params)
	m.GC.Root(&bodyForms)

	beginSym := m.NewSymbol([]byte("begin"))
	m.GC.Root(&beginSym)
	body := m.NewCons(beginSym, bodyForms)
	m.GC.Unroot(&beginSym)

	fnValue := makeFunctionValue(m, name, params, body)

	m.GC.Unroot(&bodyForms)
	m.GC.Unroot(&params)
	m.GC.Unroot(&name)

	m.Set(&m.Funcs, name, fnValue)
	return sexpr.Nil, true
}
