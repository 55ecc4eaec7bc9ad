package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/gx/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
	genericFailureExitCode    = 1
)

type exitCoder interface {
	ExitCode() int
}

// main executes the gx command-line application. Per-repository failures are already
// rendered by the report, so they only set the exit status.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	var coded exitCoder
	if errors.As(executionError, &coded) {
		os.Exit(coded.ExitCode())
	}
	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	os.Exit(genericFailureExitCode)
}
