package recon

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner executes an external scanning tool and returns its text
// output. Implementations return stdout when non-empty, otherwise stderr, so
// callers always get whatever the tool had to say.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if stdout.Len() > 0 {
		return stdout.String(), nil
	}
	if stderr.Len() > 0 {
		return stderr.String(), nil
	}
	if runErr != nil {
		return "", fmt.Errorf("%s failed: %w", name, runErr)
	}
	return "", nil
}
