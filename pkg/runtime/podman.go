package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/podkeep/podkeep/pkg/log"
)

const (
	// DefaultPodmanBin queries the container runtime
	DefaultPodmanBin = "podman"

	// DefaultComposeBin drives deployment-unit stop/start sequences
	DefaultComposeBin = "podman-compose"
)

// PodmanClient inspects and restarts containers through the podman and
// podman-compose command-line tools
type PodmanClient struct {
	PodmanBin  string
	ComposeBin string
}

// NewPodmanClient creates a client using the default binaries
func NewPodmanClient() *PodmanClient {
	return &PodmanClient{
		PodmanBin:  DefaultPodmanBin,
		ComposeBin: DefaultComposeBin,
	}
}

// ListRunning returns the names of all currently running containers
func (c *PodmanClient) ListRunning(ctx context.Context) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, c.PodmanBin, "ps", "--format", "{{.Names}}")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s ps failed: %w: %s", c.PodmanBin, err, strings.TrimSpace(stderr.String()))
	}

	return parseContainerNames(stdout.String()), nil
}

// RestartUnit stops and starts the deployment unit containing the given
// compose descriptor. Both steps run in the descriptor's directory; a
// failure of either fails the whole call.
func (c *PodmanClient) RestartUnit(ctx context.Context, composePath string) error {
	unitDir := filepath.Dir(composePath)

	logger := log.WithComponent("runtime")
	logger.Debug().Str("dir", unitDir).Msg("restarting compose unit")

	if err := c.runCompose(ctx, unitDir, "down"); err != nil {
		return err
	}
	return c.runCompose(ctx, unitDir, "up", "-d")
}

func (c *PodmanClient) runCompose(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.ComposeBin, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed in %s: %w: %s",
			c.ComposeBin, strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// parseContainerNames splits command output into a set of non-empty
// trimmed container names
func parseContainerNames(output string) map[string]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		names[name] = true
	}
	return names
}
