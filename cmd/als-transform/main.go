// Package main provides the CLI entrypoint for als-transform.
//
// als-transform maps source-specific ALS research records into the
// harmonized model:
//   - Applies a JSONata or field-map mapping expression to every input record
//   - Validates each mapped record against a JSON Schema
//   - Emits the records and reports structured violations
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// exitError carries a process exit code; err may be nil when the reason
// was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}

	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func loadErr(err error) error {
	return &exitError{code: exitUsage, err: err}
}

func runErr(err error) error {
	return &exitError{code: exitFailure, err: err}
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "error: %v\n", ee.err)
		}

		return ee.code
	}

	// flag and argument errors from cobra
	fmt.Fprintf(stderr, "error: %v\n", err)

	return exitUsage
}
