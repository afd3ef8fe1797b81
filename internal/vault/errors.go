package vault

import "errors"

var (
	// ErrSecretNotFound indicates the vault has no secret with the
	// requested name.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty indicates the vault returned a secret with an empty
	// value. Provisioning treats this the same as a missing secret.
	ErrSecretEmpty = errors.New("secret value is empty")
)
