// Package executor runs a dag.TestExecutable as a child process and
// captures its outcome. It is the only component that performs blocking
// external I/O; every invocation spawns its own subprocess so many can run
// concurrently.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"thorust/internal/dag"
)

// Result is the outcome of running a single TestExecutable.
type Result struct {
	Output          string
	ExitCode        int
	AssertionFailed bool
}

// ExecutionError wraps a non-zero exit from the underlying shell command.
type ExecutionError struct {
	Name     string
	ExitCode int
	Output   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("test %q failed with exit code %d: %s", e.Name, e.ExitCode, e.Output)
}

// Run invokes executable.Command through "sh -c" and reports its outcome.
// Scripts tests fail on non-zero exit. Grpc tests additionally compare the
// captured stdout against the manifest's expected clause when present,
// reporting an assertion mismatch distinctly from a transport/exec failure.
func Run(ctx context.Context, executable dag.TestExecutable) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", executable.Command)
	expected := executable.Expected

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		return Result{Output: stderr.String(), ExitCode: exitCode},
			&ExecutionError{Name: executable.Name, ExitCode: exitCode, Output: stderr.String()}
	}

	out := stdout.String()
	if expected != nil && !matches(expected, out) {
		return Result{Output: out, ExitCode: exitCode, AssertionFailed: true}, nil
	}

	return Result{Output: out, ExitCode: exitCode}, nil
}

func matches(e *dag.ExpectedResponse, output string) bool {
	if e.Body != nil && *e.Body != "" && !bytes.Contains([]byte(output), []byte(*e.Body)) {
		return false
	}
	if e.Status != nil && *e.Status != "" && !bytes.Contains([]byte(output), []byte(*e.Status)) {
		return false
	}
	return true
}
