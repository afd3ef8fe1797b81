// Package provision runs the secret-to-stack flow: fetch every required
// secret, render the stack's env file, launch the stack through compose,
// and wait for its services to accept the rendered credentials. Execution
// is strictly sequential and the first failure is terminal.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ls-github123/openai-chat-deploy/internal/compose"
	"github.com/ls-github123/openai-chat-deploy/internal/config"
	"github.com/ls-github123/openai-chat-deploy/internal/envfile"
	"github.com/ls-github123/openai-chat-deploy/internal/journal"
	"github.com/ls-github123/openai-chat-deploy/internal/vault"
)

// Waiter blocks until a stack's services accept authenticated connections.
type Waiter interface {
	Wait(ctx context.Context, specs []config.ProbeSpec, values map[string]string) error
}

// Recorder persists run outcomes. A nil Recorder disables journaling.
type Recorder interface {
	Record(ctx context.Context, run journal.Run) error
}

// Deps are the collaborators a Provisioner drives.
type Deps struct {
	Vault    vault.Client
	Compose  compose.Runner
	Waiter   Waiter
	Recorder Recorder

	ComposeTimeout time.Duration
	ProbeTimeout   time.Duration
}

// Provisioner provisions one stack at a time.
type Provisioner struct {
	deps Deps
	log  zerolog.Logger
}

// New returns a Provisioner over the given collaborators.
func New(deps Deps, log zerolog.Logger) *Provisioner {
	if deps.ComposeTimeout <= 0 {
		deps.ComposeTimeout = 5 * time.Minute
	}
	if deps.ProbeTimeout <= 0 {
		deps.ProbeTimeout = 90 * time.Second
	}
	return &Provisioner{deps: deps, log: log}
}

// Up runs the full flow for one stack: fetch, render, launch, wait.
// The orchestrator is never invoked if any secret fetch fails.
func (p *Provisioner) Up(ctx context.Context, name string, stack config.Stack) error {
	return p.run(ctx, name, stack, "up", func(ctx context.Context, log zerolog.Logger) error {
		values, err := p.render(ctx, name, stack, log)
		if err != nil {
			return err
		}

		opts := compose.Options{
			Manifest: stack.Manifest,
			EnvFile:  stack.EnvFile,
			Project:  stack.Project,
		}

		upCtx, cancel := context.WithTimeout(ctx, p.deps.ComposeTimeout)
		defer cancel()
		if err := p.deps.Compose.Up(upCtx, opts); err != nil {
			return err
		}

		if p.deps.Waiter != nil && len(stack.Probes) > 0 {
			probeCtx, cancel := context.WithTimeout(ctx, p.deps.ProbeTimeout)
			defer cancel()
			if err := p.deps.Waiter.Wait(probeCtx, stack.Probes, values); err != nil {
				return err
			}
		}

		log.Info().Msg("stack is up")
		return nil
	})
}

// Render fetches the stack's secrets and writes its env file without
// touching the orchestrator.
func (p *Provisioner) Render(ctx context.Context, name string, stack config.Stack) error {
	return p.run(ctx, name, stack, "render", func(ctx context.Context, log zerolog.Logger) error {
		_, err := p.render(ctx, name, stack, log)
		return err
	})
}

// Down tears the stack down through compose. No secrets are fetched.
func (p *Provisioner) Down(ctx context.Context, name string, stack config.Stack, removeVolumes bool) error {
	return p.run(ctx, name, stack, "down", func(ctx context.Context, log zerolog.Logger) error {
		opts := compose.Options{
			Manifest: stack.Manifest,
			EnvFile:  stack.EnvFile,
			Project:  stack.Project,
		}

		downCtx, cancel := context.WithTimeout(ctx, p.deps.ComposeTimeout)
		defer cancel()
		return p.deps.Compose.Down(downCtx, opts, removeVolumes)
	})
}

// render resolves every entry of the stack and writes the env file. All
// secrets are fetched before anything is written: a missing secret leaves
// the previous env file untouched.
func (p *Provisioner) render(ctx context.Context, name string, stack config.Stack, log zerolog.Logger) (map[string]string, error) {
	lines := make([]envfile.Line, 0, len(stack.Entries))
	values := make(map[string]string, len(stack.Entries))

	for _, entry := range stack.Entries {
		value := entry.Value
		if entry.IsSecret() {
			secretName := entry.SecretName()
			fetched, err := p.deps.Vault.GetSecret(ctx, secretName)
			if err != nil {
				return nil, fmt.Errorf("stack %s: %w", name, err)
			}
			log.Debug().Str("secret", secretName).Str("key", entry.Key).Msg("secret fetched")
			value = fetched
		}
		lines = append(lines, envfile.Line{Key: entry.Key, Value: value})
		values[entry.Key] = value
	}

	if err := envfile.Render(stack.EnvFile, lines); err != nil {
		return nil, fmt.Errorf("stack %s: %w", name, err)
	}

	log.Info().Str("env_file", stack.EnvFile).Int("keys", len(lines)).Msg("env file written")
	return values, nil
}

// run wraps an operation with a run ID, logging, and journaling.
func (p *Provisioner) run(ctx context.Context, name string, stack config.Stack, command string, fn func(context.Context, zerolog.Logger) error) error {
	runID := uuid.NewString()
	log := p.log.With().Str("run", runID).Str("stack", name).Logger()
	started := time.Now()

	err := fn(ctx, log)

	entry := journal.Run{
		ID:         runID,
		Stack:      name,
		Command:    command,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    journal.OutcomeSucceeded,
	}
	if err != nil {
		entry.Outcome = journal.OutcomeFailed
		entry.Error = err.Error()
		log.Error().Err(err).Str("command", command).Msg("provisioning run failed")
	}

	if p.deps.Recorder != nil {
		// Journal failures must not mask the run result.
		if recordErr := p.deps.Recorder.Record(context.WithoutCancel(ctx), entry); recordErr != nil {
			log.Warn().Err(recordErr).Msg("failed to journal run")
		}
	}

	return err
}
