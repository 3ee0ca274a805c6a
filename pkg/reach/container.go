package reach

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// container is one exclusively-held execution environment for a single
// oracle invocation. It is never shared between workers: each query
// starts its own and tears it down on every exit path.
type container struct {
	id    string
	image string
	log   *zap.SugaredLogger
}

// dockerAvailable reports whether the docker CLI is on PATH.
func dockerAvailable() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// startContainer runs image detached with the project mounted read-only
// at /src. All oracle work products go to /tmp inside the container so
// the project tree is never written.
func startContainer(ctx context.Context, image, projectRoot string, log *zap.SugaredLogger) (*container, error) {
	out, err := exec.CommandContext(ctx, "docker", "run",
		"-d", "--rm", "-t",
		"-v", projectRoot+":/src:ro",
		"-w", "/src",
		image,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("start container %s: %w", image, err)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return nil, fmt.Errorf("start container %s: no id returned", image)
	}
	return &container{id: id, image: image, log: log}, nil
}

// execIn runs an argument-vector command inside the container and
// returns its combined output and exit code.
func (c *container) execIn(ctx context.Context, args ...string) (string, int, error) {
	return c.execInDir(ctx, "", args...)
}

// execInDir is execIn with an explicit working directory inside the
// container. An empty dir keeps the container default.
func (c *container) execInDir(ctx context.Context, dir string, args ...string) (string, int, error) {
	full := []string{"exec"}
	if dir != "" {
		full = append(full, "-w", dir)
	}
	full = append(full, c.id)
	full = append(full, args...)
	cmd := exec.CommandContext(ctx, "docker", full...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return string(out), exitErr.ExitCode(), ctx.Err()
		}
		return string(out), exitErr.ExitCode(), nil
	}
	return string(out), -1, err
}

// close force-removes the container. Best effort: the run used --rm, so
// a failed removal only matters if the daemon wedged.
func (c *container) close() {
	if c.id == "" {
		return
	}
	if err := exec.Command("docker", "rm", "-f", c.id).Run(); err != nil {
		c.log.Debugw("container removal failed", "id", c.id, "error", err)
	}
	c.id = ""
}
