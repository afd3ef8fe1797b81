package compose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Timeout for short status commands; Up and Down run under the caller's
// context deadline.
const statusTimeout = 30 * time.Second

// CLIRunner implements Runner by shelling out to the compose CLI.
type CLIRunner struct {
	command []string // e.g. ["docker", "compose"] or ["docker-compose"]
	log     zerolog.Logger
}

// NewCLIRunner detects the installed compose CLI and returns a runner for it.
func NewCLIRunner(log zerolog.Logger) (*CLIRunner, error) {
	command, err := DetectCommand()
	if err != nil {
		return nil, err
	}
	log.Debug().Strs("command", command).Msg("compose CLI detected")
	return &CLIRunner{command: command, log: log}, nil
}

func (r *CLIRunner) Up(ctx context.Context, opts Options) error {
	args := r.buildArgs(opts, "up", "-d", "--remove-orphans")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	r.log.Info().Str("manifest", opts.Manifest).Str("project", opts.Project).Msg("compose up")
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("compose up timed out for project %s", opts.Project)
		}
		return fmt.Errorf("compose up failed for project %s: %w", opts.Project, err)
	}
	return nil
}

func (r *CLIRunner) Down(ctx context.Context, opts Options, removeVolumes bool) error {
	extra := []string{"down", "--remove-orphans"}
	if removeVolumes {
		extra = append(extra, "--volumes")
	}
	args := r.buildArgs(opts, extra...)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	r.log.Info().Str("project", opts.Project).Bool("volumes", removeVolumes).Msg("compose down")
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("compose down timed out for project %s", opts.Project)
		}
		return fmt.Errorf("compose down failed for project %s: %w", opts.Project, err)
	}
	return nil
}

func (r *CLIRunner) Services(ctx context.Context, opts Options) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	args := r.buildArgs(opts, "ps", "--all", "--format", "json")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("compose ps timed out for project %s", opts.Project)
		}
		return nil, fmt.Errorf("compose ps failed for project %s: %w", opts.Project, err)
	}

	return parseServices(output)
}

// buildArgs assembles a full compose argv for the given subcommand. The env
// file is passed explicitly so compose reads the generated credentials
// rather than a stray .env from the working directory.
func (r *CLIRunner) buildArgs(opts Options, subcommand ...string) []string {
	args := append([]string{}, r.command...)
	if opts.Project != "" {
		args = append(args, "--project-name", opts.Project)
	}
	args = append(args, "--file", opts.Manifest)
	if opts.EnvFile != "" {
		args = append(args, "--env-file", opts.EnvFile)
	}
	return append(args, subcommand...)
}

// parseServices decodes `compose ps --format json` output. Compose v2 emits
// one JSON object per line; older releases emit a single JSON array.
func parseServices(output []byte) ([]Service, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, nil
	}

	type psEntry struct {
		Service string `json:"Service"`
		Name    string `json:"Name"`
		State   string `json:"State"`
		Health  string `json:"Health"`
	}

	toService := func(e psEntry) Service {
		name := e.Service
		if name == "" {
			name = e.Name
		}
		return Service{Name: name, State: e.State, Health: e.Health}
	}

	if trimmed[0] == '[' {
		var entries []psEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		services := make([]Service, 0, len(entries))
		for _, e := range entries {
			services = append(services, toService(e))
		}
		return services, nil
	}

	var services []Service
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e psEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps line %q: %w", line, err)
		}
		services = append(services, toService(e))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan compose ps output: %w", err)
	}
	return services, nil
}
