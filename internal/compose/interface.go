package compose

import "context"

// Options locates one stack for the compose CLI: its static manifest, the
// generated env file, and the compose project name keeping the stacks
// disjoint.
type Options struct {
	Manifest string
	EnvFile  string
	Project  string
}

// Service is the observed state of one declared service.
type Service struct {
	Name   string
	State  string // running, exited, ...
	Health string // healthy, unhealthy, starting, or empty when no healthcheck
}

// Runner drives the external compose CLI. The manifest is opaque input:
// nothing here generates or mutates it.
type Runner interface {
	// Up creates and starts the stack's services in detached mode.
	Up(ctx context.Context, opts Options) error

	// Down stops and removes the stack's services. When removeVolumes is
	// set the stack's named volumes are deleted as well.
	Down(ctx context.Context, opts Options, removeVolumes bool) error

	// Services reports the current state of the stack's services.
	Services(ctx context.Context, opts Options) ([]Service, error)
}
