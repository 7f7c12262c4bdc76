package lisp_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/golisp/golisp/internal/lisp"
	"github.com/golisp/golisp/internal/sexpr"
)

// TestGoldenScripts runs every testdata/*.txtar fixture: an "input.lisp"
// section evaluated against a fresh Interpreter, compared against either
// an "output" section (the printed last result) or an "error" section
// (a substring of the error text).
func TestGoldenScripts(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			archive, err := txtar.ParseFile(path)
			require.NoError(t, err)

			var input, wantOutput, wantError string
			for _, f := range archive.Files {
				switch f.Name {
				case "input.lisp":
					input = string(f.Data)
				case "output":
					wantOutput = strings.TrimSpace(string(f.Data))
				case "error":
					wantError = strings.TrimSpace(string(f.Data))
				}
			}

			interp := lisp.New(lisp.Options{})
			result, err := interp.Eval(input)

			if wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, wantOutput, sexpr.ToString(result))
		})
	}
}

func TestRunFileContinuesPastErrors(t *testing.T) {
	var stdout, stderr strings.Builder
	interp := lisp.New(lisp.Options{Stdout: &stdout, Stderr: &stderr})

	interp.RunFile(`
		(+ 1 undefined-symbol)
		(set x 5)
	`)

	assert.Contains(t, stderr.String(), "lookup of symbol `undefined-symbol` failed")

	result, err := interp.Eval("x")
	require.NoError(t, err)
	assert.Equal(t, "5", sexpr.ToString(result))
}
