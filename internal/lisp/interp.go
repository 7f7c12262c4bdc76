// Package lisp ties the parser, evaluator, and VM into a single
// Interpreter, grounded in the teacher's own Interpreter/Options/REPL
// shape, repurposed to drive this Lisp instead of Go source.
package lisp

import (
	"io"
	"os"

	"github.com/golisp/golisp/internal/eval"
	"github.com/golisp/golisp/internal/parse"
	"github.com/golisp/golisp/internal/sexpr"
	"github.com/golisp/golisp/internal/vm"
)

// Options are the interpreter's options. Streams default to os.Stdin,
// os.Stdout, os.Stderr when left nil, matching the teacher's Options.
type Options struct {
	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// Interpreter owns a VM and its registered types, and drives evaluation
// of source text against them.
type Interpreter struct {
	vm         *vm.VM
	parseTypes parse.Types
	evalTypes  eval.Types

	stdin          io.Reader
	stdout, stderr io.Writer
}

// New returns a new interpreter with a fresh VM.
func New(options Options) *Interpreter {
	m := vm.New()
	parseTypes := parse.Register(m.GC)
	evalTypes := eval.Register(m.GC)

	stdin := options.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	m.Stdout = stdout

	return &Interpreter{
		vm:         m,
		parseTypes: parseTypes,
		evalTypes:  evalTypes,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
	}
}

// Eval evaluates every top-level S-expression in src in sequence and
// returns the value of the last one. It stops and returns a non-nil
// error at the first parse or evaluation failure, as *ParseError or
// *EvalError respectively.
func (i *Interpreter) Eval(src string) (sexpr.Value, error) {
	p := parse.NewParser([]byte(src))

	var result sexpr.Value
	for {
		val, errs, ok := p.NextSExpr(i.vm, i.parseTypes)
		if !ok {
			break
		}
		if errs != nil {
			return nil, &ParseError{Errors: errs.Errors(), Src: p.Input()}
		}

		res, ctx := eval.Eval(i.vm, i.evalTypes, val)
		if ctx != nil {
			return nil, &EvalError{Ctx: ctx}
		}
		result = res
	}
	return result, nil
}

// RunFile evaluates every top-level form in src, printing the
// diagnostics of any parse or evaluation failure to Stderr and
// continuing with the next form, matching spec's "driver never halts
// on a single form's error" contract. Successful results are not
// echoed, unlike the REPL.
func (i *Interpreter) RunFile(src string) {
	p := parse.NewParser([]byte(src))

	for {
		val, errs, ok := p.NextSExpr(i.vm, i.parseTypes)
		if !ok {
			return
		}
		if errs != nil {
			printParseErrors(i.stderr, errs.Errors(), p.Input())
			continue
		}

		_, ctx := eval.Eval(i.vm, i.evalTypes, val)
		if ctx != nil {
			ctx.Print(i.stderr)
		}
	}
}
