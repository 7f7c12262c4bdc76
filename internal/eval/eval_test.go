package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golisp/golisp/internal/eval"
	"github.com/golisp/golisp/internal/parse"
	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

func newEvalVM(t *testing.T) (*vm.VM, parse.Types, eval.Types) {
	t.Helper()
	m := vm.New()
	parseTypes := parse.Register(m.GC)
	evalTypes := eval.Register(m.GC)
	return m, parseTypes, evalTypes
}

// run parses and evaluates every top-level form in src, returning the
// last result and the Context of the first error, if any.
func run(t *testing.T, m *vm.VM, pt parse.Types, et eval.Types, src string) (sexpr.Value, *eval.Context) {
	t.Helper()
	p := parse.NewParser([]byte(src))

	var result sexpr.Value
	var ctx *eval.Context
	for {
		val, errs, ok := p.NextSExpr(m, pt)
		if !ok {
			break
		}
		require.Nil(t, errs)

		result, ctx = eval.Eval(m, et, val)
		if ctx != nil {
			return nil, ctx
		}
	}
	return result, nil
}

func TestEvalArithmetic(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(+ 1 2)")
	require.Nil(t, ctx)
	assert.Equal(t, "3", sexpr.ToString(result))
}

func TestEvalNestedArithmetic(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(* (+ 1 2) (- 5 1))")
	require.Nil(t, ctx)
	assert.Equal(t, "12", sexpr.ToString(result))
}

func TestEvalSetAndLookup(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(set x 5) (+ x x)")
	require.Nil(t, ctx)
	assert.Equal(t, "10", sexpr.ToString(result))
}

func TestEvalLetScoping(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(begin (let y 7) (+ y 1))")
	require.Nil(t, ctx)
	assert.Equal(t, "8", sexpr.ToString(result))
}

func TestEvalIf(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(if (< 1 2) 10 20)")
	require.Nil(t, ctx)
	assert.Equal(t, "10", sexpr.ToString(result))

	result, ctx = run(t, m, pt, et, "(if (< 2 1) 10 20)")
	require.Nil(t, ctx)
	assert.Equal(t, "20", sexpr.ToString(result))
}

func TestEvalCond(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(cond ((nil? 1) 0) ((< 1 2) 99))")
	require.Nil(t, ctx)
	assert.Equal(t, "99", sexpr.ToString(result))
}

func TestEvalConsCarCdr(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(car (cons 1 2))")
	require.Nil(t, ctx)
	assert.Equal(t, "1", sexpr.ToString(result))

	result, ctx = run(t, m, pt, et, "(cdr (cons 1 2))")
	require.Nil(t, ctx)
	assert.Equal(t, "2", sexpr.ToString(result))
}

func TestEvalLambdaLiteralCall(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "((lambda (x) (* x x)) 5)")
	require.Nil(t, ctx)
	assert.Equal(t, "25", sexpr.ToString(result))
}

func TestEvalDefineAndRecursion(t *testing.T) {
	m, pt, et := newEvalVM(t)
	src := `
		(define fib (n)
			(if (< n 2) n
				(+ (fib (- n 1)) (fib (- n 2)))))
		(fib 10)
	`
	result, ctx := run(t, m, pt, et, src)
	require.Nil(t, ctx)
	assert.Equal(t, "55", sexpr.ToString(result))
}

func TestEvalFuncall(t *testing.T) {
	m, pt, et := newEvalVM(t)
	src := `
		(define square (x) (* x x))
		(funcall (function square) 6)
	`
	result, ctx := run(t, m, pt, et, src)
	require.Nil(t, ctx)
	assert.Equal(t, "36", sexpr.ToString(result))
}

func TestEvalFuncallBuiltin(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(funcall (function +) 4 5)")
	require.Nil(t, ctx)
	assert.Equal(t, "9", sexpr.ToString(result))
}

func TestEvalAndOr(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(and 1 2)")
	require.Nil(t, ctx)
	assert.Equal(t, "2", sexpr.ToString(result))

	result, ctx = run(t, m, pt, et, "(or () 3)")
	require.Nil(t, ctx)
	assert.Equal(t, "3", sexpr.ToString(result))
}

func TestEvalQuote(t *testing.T) {
	m, pt, et := newEvalVM(t)
	result, ctx := run(t, m, pt, et, "(quote (1 2 3))")
	require.Nil(t, ctx)
	assert.Equal(t, "(1 2 3)", sexpr.ToString(result))
}

func TestEvalArgInvalidType(t *testing.T) {
	m, pt, et := newEvalVM(t)
	_, ctx := run(t, m, pt, et, `(+ 1 "a")`)
	require.NotNil(t, ctx)
	assert.Equal(t, eval.ArgInvalidType, ctx.Kind)
}

func TestEvalIllegalFuncCallHasBacktrace(t *testing.T) {
	m, pt, et := newEvalVM(t)
	src := `
		(define outer (x) (inner x))
	`
	_, ctx := run(t, m, pt, et, src)
	require.Nil(t, ctx)

	_, ctx = run(t, m, pt, et, "(outer 1)")
	require.NotNil(t, ctx)
	assert.Equal(t, eval.IllegalFuncCall, ctx.Kind)
	assert.NotNil(t, ctx.Frame)
}

func TestEvalSymbolLookupFailed(t *testing.T) {
	m, pt, et := newEvalVM(t)
	_, ctx := run(t, m, pt, et, "undefined-symbol")
	require.NotNil(t, ctx)
	assert.Equal(t, eval.SymbolLookupFailed, ctx.Kind)
}

func TestEvalMaxStackDepth(t *testing.T) {
	m, pt, et := newEvalVM(t)
	src := `
		(define loop (n) (loop (+ n 1)))
	`
	_, ctx := run(t, m, pt, et, src)
	require.Nil(t, ctx)

	_, ctx = run(t, m, pt, et, "(loop 0)")
	require.NotNil(t, ctx)
	assert.Equal(t, eval.MaxStackDepthReached, ctx.Kind)
}

func TestEvalDeepRecursion(t *testing.T) {
	m, pt, et := newEvalVM(t)
	src := `
		(define sum (n) (if (< n 1) n (+ n (sum (- n 1)))))
	`
	_, ctx := run(t, m, pt, et, src)
	require.Nil(t, ctx)

	result, ctx := run(t, m, pt, et, "(sum 200)")
	require.Nil(t, ctx)
	assert.Equal(t, "20100", sexpr.ToString(result))
}
