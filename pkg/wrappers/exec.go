package wrappers

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// runCommand executes an argument-vector command (never a shell string),
// bound by ctx. It returns stdout and stderr separately so adapters can
// parse machine output without tool log noise, plus the exit code and an
// error for spawn/timeout failures. A non-zero exit is reported through
// the code, not the error, because several tools use exit 1 for
// "findings present".
func runCommand(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), ctx.Err()
		}
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	return stdout.String(), stderr.String(), -1, err
}
