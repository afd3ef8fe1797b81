// Package vault reads named secrets from Azure Key Vault. Values are cached
// in memory after the first successful fetch; nothing is ever written back.
package vault

import "context"

// Client fetches secret values by name.
type Client interface {
	// GetSecret returns the current value of the named secret, serving
	// from the in-memory cache when it has been fetched before. An empty
	// value is an error: a blank credential is never usable downstream.
	GetSecret(ctx context.Context, name string) (string, error)

	// RefreshSecret refetches the named secret, bypassing the cache. If
	// the refetch fails and a cached value exists, the cached value is
	// returned instead.
	RefreshSecret(ctx context.Context, name string) (string, error)
}
