package lisp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/golisp/golisp/internal/eval"
	"github.com/golisp/golisp/internal/parse"
	"github.com/golisp/golisp/internal/sexpr"
)

// prompt is printed before the string.
const prompt = "$> "

// REPL reads S-expressions from Stdin one at a time, evaluating and
// printing each result (or its diagnostics) to Stdout/Stderr, until
// Stdin is exhausted. Grounded in the teacher's Interpreter.REPL/
// doPrompt/getPrompt, simplified to a single synchronous loop: unlike
// the teacher's interpreted Go programs, this evaluator has no
// goroutines or channels to cancel mid-eval (spec's non-goals exclude
// concurrency), so there is nothing for a SIGINT handler to interrupt.
func (i *Interpreter) REPL() error {
	out := getPrompt(i.stdin, i.stdout)
	reader := bufio.NewReader(i.stdin)

	more := func() ([]byte, bool) {
		out()
		line, err := reader.ReadString('\n')
		if len(line) == 0 && err != nil {
			return nil, false
		}
		return []byte(line), true
	}

	initial, ok := more()
	if !ok {
		return nil
	}
	p := parse.NewStreamingParser(initial, more)

	for {
		val, errs, ok := p.NextSExpr(i.vm, i.parseTypes)
		if !ok {
			return nil
		}
		if errs != nil {
			printParseErrors(i.stderr, errs.Errors(), p.Input())
			continue
		}

		result, ctx := eval.Eval(i.vm, i.evalTypes, val)
		if ctx != nil {
			ctx.Print(i.stderr)
			continue
		}
		fmt.Fprintln(i.stdout, sexpr.ToString(result))
	}
}

// getPrompt returns a function that prints prompt to out only when in
// is a terminal, using go-isatty in place of the teacher's
// Stat().Mode()&ModeCharDevice check (per SPEC_FULL.md §15).
func getPrompt(in io.Reader, out io.Writer) func() {
	f, ok := in.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return func() {}
	}
	return func() { fmt.Fprint(out, prompt) }
}
