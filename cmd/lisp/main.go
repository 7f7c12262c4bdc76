// Command lisp is a REPL and script runner for the interpreter in
// internal/lisp.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/golisp/golisp/internal/lisp"
)

var errUsage = errors.New("usage: lisp [path]")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdin *os.File, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lisp [path]",
		Short:         "A REPL and script runner for the toy Lisp interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errUsage
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			interp := lisp.New(lisp.Options{Stdin: stdin, Stdout: stdout, Stderr: stderr})

			if len(args) == 0 {
				return interp.REPL()
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			interp.RunFile(string(src))
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}
