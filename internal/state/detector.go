package state

import (
	"context"
	"os"

	"github.com/ls-github123/openai-chat-deploy/internal/compose"
	"github.com/ls-github123/openai-chat-deploy/internal/config"
	"github.com/ls-github123/openai-chat-deploy/internal/envfile"
)

// StackState is the observed condition of one stack on this host.
type StackState struct {
	Name             string
	ManifestExists   bool
	DeclaredServices []string // service names declared in the manifest
	MissingServices  []string // declared but absent from compose ps
	EnvFileExists    bool
	EnvFileSecure    bool     // mode is owner read/write only
	MissingKeys      []string // configured keys absent or empty in the env file
	Services         []compose.Service
	ServicesErr      error // compose unavailable or ps failed
}

// Running reports whether every observed service is in the running state.
// False when no services were observed at all.
func (s StackState) Running() bool {
	if len(s.Services) == 0 {
		return false
	}
	for _, svc := range s.Services {
		if svc.State != "running" {
			return false
		}
	}
	return true
}

// Detector inspects stack state for status reporting. It never mutates
// anything.
type Detector struct {
	runner compose.Runner
}

// NewDetector returns a Detector using the given compose runner. A nil
// runner skips service inspection.
func NewDetector(runner compose.Runner) *Detector {
	return &Detector{runner: runner}
}

// Detect gathers the state of one stack.
func (d *Detector) Detect(ctx context.Context, name string, stack config.Stack) StackState {
	state := StackState{Name: name}

	if _, err := os.Stat(stack.Manifest); err == nil {
		state.ManifestExists = true
		if manifest, err := compose.LoadManifest(stack.Manifest); err == nil {
			state.DeclaredServices = manifest.ServiceNames()
		}
	}

	if info, err := os.Stat(stack.EnvFile); err == nil {
		state.EnvFileExists = true
		state.EnvFileSecure = info.Mode().Perm()&0077 == 0
		state.MissingKeys = d.checkEnvKeys(stack)
	} else {
		state.MissingKeys = allKeys(stack)
	}

	if d.runner != nil && state.ManifestExists {
		opts := compose.Options{
			Manifest: stack.Manifest,
			EnvFile:  stack.EnvFile,
			Project:  stack.Project,
		}
		// ps interpolates the manifest; skip the env file when absent so
		// status still works before the first render.
		if !state.EnvFileExists {
			opts.EnvFile = ""
		}
		state.Services, state.ServicesErr = d.runner.Services(ctx, opts)
		if state.ServicesErr == nil {
			state.MissingServices = missingServices(state.DeclaredServices, state.Services)
		}
	}

	return state
}

// missingServices reports declared service names with no matching
// container in the compose listing.
func missingServices(declared []string, observed []compose.Service) []string {
	present := make(map[string]bool, len(observed))
	for _, svc := range observed {
		present[svc.Name] = true
	}

	var missing []string
	for _, name := range declared {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// checkEnvKeys reports configured keys that are absent or empty in the
// generated file.
func (d *Detector) checkEnvKeys(stack config.Stack) []string {
	values, err := envfile.Load(stack.EnvFile)
	if err != nil {
		return allKeys(stack)
	}

	var missing []string
	for _, entry := range stack.Entries {
		if values[entry.Key] == "" {
			missing = append(missing, entry.Key)
		}
	}
	return missing
}

func allKeys(stack config.Stack) []string {
	keys := make([]string, 0, len(stack.Entries))
	for _, entry := range stack.Entries {
		keys = append(keys, entry.Key)
	}
	return keys
}
