// FILE: logship/src/cmd/logship/output.go
package main

import (
	"fmt"
	"io"
	"os"
)

// outputHandler writes user-facing messages, silenced in quiet mode
type outputHandler struct {
	quiet  bool
	stdout io.Writer
	stderr io.Writer
}

var output = &outputHandler{stdout: os.Stdout, stderr: os.Stderr}

func initOutputHandler(quiet bool) {
	output = &outputHandler{
		quiet:  quiet,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Print writes to stdout unless quiet
func Print(format string, args ...any) {
	if !output.quiet {
		fmt.Fprintf(output.stdout, format, args...)
	}
}

// Error writes to stderr unless quiet
func Error(format string, args ...any) {
	if !output.quiet {
		fmt.Fprintf(output.stderr, format, args...)
	}
}

// FatalError writes to stderr and exits with code
func FatalError(code int, format string, args ...any) {
	Error(format, args...)
	os.Exit(code)
}
