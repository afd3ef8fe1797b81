package state

import (
	"context"
	"errors"

	"github.com/ls-github123/openai-chat-deploy/internal/vault"
)

// CheckVault verifies the vault answers requests by fetching one secret.
// A missing or empty secret still proves the vault responded, so only
// transport or authentication failures count as unreachable.
func CheckVault(ctx context.Context, client vault.Client, secretName string) error {
	_, err := client.GetSecret(ctx, secretName)
	if err == nil || errors.Is(err, vault.ErrSecretNotFound) || errors.Is(err, vault.ErrSecretEmpty) {
		return nil
	}
	return err
}
