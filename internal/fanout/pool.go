package fanout

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const maximumExitCodeConstant = 255

// Task produces the result for one input. Failures are part of the result, never returned.
type Task[Input any, Output any] func(executionContext context.Context, input Input) Output

// Run executes task for every input with at most workerCount tasks in flight. Results are
// delivered over a channel as tasks finish, so their order is not the input order. Every
// input yields exactly one result, including when the context is cancelled.
func Run[Input any, Output any](executionContext context.Context, workerCount int, inputs []Input, task Task[Input, Output]) []Output {
	if len(inputs) == 0 {
		return nil
	}

	results := make(chan Output, len(inputs))
	var group errgroup.Group
	group.SetLimit(ResolveWorkerCount(workerCount, 0))
	for _, input := range inputs {
		group.Go(func() error {
			results <- task(executionContext, input)
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	collected := make([]Output, 0, len(inputs))
	for result := range results {
		collected = append(collected, result)
	}
	return collected
}

// ResolveWorkerCount applies the precedence flag, then configuration, then the CPU count.
func ResolveWorkerCount(flagValue int, configurationValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if configurationValue > 0 {
		return configurationValue
	}
	return runtime.NumCPU()
}

// ExitCode maps an error count to a process exit status.
func ExitCode(errorCount int) int {
	if errorCount <= 0 {
		return 0
	}
	if errorCount > maximumExitCodeConstant {
		return maximumExitCodeConstant
	}
	return errorCount
}
