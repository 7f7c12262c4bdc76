package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lisp")
	require.NoError(t, os.WriteFile(path, []byte("(+ 1 2)\n(+ 3 undefined)\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, os.Stdin, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "lookup of symbol `undefined` failed")
}

func TestRunWrongArgCount(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"a", "b"}, os.Stdin, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, "usage: lisp [path]\n", stderr.String())
}

func TestRunMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"/nonexistent/path.lisp"}, os.Stdin, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr.String())
}
