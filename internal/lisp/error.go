package lisp

import (
	"fmt"
	"io"
	"strings"

	"github.com/golisp/golisp/internal/eval"
	"github.com/golisp/golisp/internal/parse"
)

// ParseError wraps the diagnostics accumulated by a single NextSExpr
// call: the parser continues past each one, so there may be several.
type ParseError struct {
	Errors []*parse.ErrorNode
	Src    []byte
}

func (e *ParseError) Error() string {
	var b strings.Builder
	printParseErrors(&b, e.Errors, e.Src)
	return strings.TrimSuffix(b.String(), "\n")
}

// printParseErrors renders each diagnostic's kind, byte offset, and the
// text of its span, matching spec.md §7's "driver prints each (kind,
// span, text of span)".
func printParseErrors(w io.Writer, errs []*parse.ErrorNode, src []byte) {
	for _, e := range errs {
		end := e.Index + e.Length
		if end > len(src) {
			end = len(src)
		}
		if e.Index > end {
			fmt.Fprintf(w, "%s at %d\n", e.Kind, e.Index)
			continue
		}
		fmt.Fprintf(w, "%s at %d: %q\n", e.Kind, e.Index, src[e.Index:end])
	}
}

// EvalError wraps the Context of a failed evaluation: its Error text is
// the same kind-plus-backtrace rendering eval_context_print produces.
type EvalError struct {
	Ctx *eval.Context
}

func (e *EvalError) Error() string {
	var b strings.Builder
	e.Ctx.Print(&b)
	return strings.TrimSuffix(b.String(), "\n")
}
