package compose

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

const detectTimeout = 10 * time.Second

// DetectCommand finds a working compose CLI. The v2 plugin form
// ("docker compose") is preferred; the legacy standalone "docker-compose"
// binary is the fallback.
func DetectCommand() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	if _, err := exec.LookPath("docker"); err == nil {
		cmd := exec.CommandContext(ctx, "docker", "compose", "version")
		cmd.Stdout = nil
		cmd.Stderr = nil
		if cmd.Run() == nil {
			return []string{"docker", "compose"}, nil
		}
	}

	if path, err := exec.LookPath("docker-compose"); err == nil {
		return []string{path}, nil
	}

	return nil, fmt.Errorf("no compose CLI found: install the docker compose plugin or docker-compose")
}
