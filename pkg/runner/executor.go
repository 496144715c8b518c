package runner

import (
	"bytes"
	"context"
	"os/exec"
)

// Output holds the captured streams of an executor invocation.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Executor invokes the state-transition binary and waits for it to exit.
type Executor interface {
	// Execute runs binary with args. The returned output is non-nil whenever
	// the process was started, including when it exits with an error.
	Execute(ctx context.Context, binary string, args []string) (*Output, error)
}

// CommandExecutor runs the executor as a local subprocess.
type CommandExecutor struct{}

// NewCommandExecutor creates a subprocess executor.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// Execute implements Executor.
func (e *CommandExecutor) Execute(ctx context.Context, binary string, args []string) (*Output, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return &Output{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}, err
}
