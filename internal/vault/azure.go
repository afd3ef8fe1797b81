package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/rs/zerolog"
)

// AzureFetcher retrieves secrets from Azure Key Vault using the ambient
// credential chain (managed identity in production, az login locally). No
// credentials are stored or passed by this process.
type AzureFetcher struct {
	client *azsecrets.Client
	log    zerolog.Logger
}

// New authenticates with the default credential chain and returns a cached
// Client bound to the given vault URL, e.g.
// "https://openai-chat-kv.vault.azure.net/".
func New(vaultURL string, log zerolog.Logger) (Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client for %s: %w", vaultURL, err)
	}

	return NewCache(&AzureFetcher{client: client, log: log}, log), nil
}

// Fetch retrieves the latest version of the named secret from the vault.
func (f *AzureFetcher) Fetch(ctx context.Context, name string) (string, error) {
	resp, err := f.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			f.log.Error().Str("secret", name).Msg("secret not found in vault")
			return "", fmt.Errorf("secret %s: %w", name, ErrSecretNotFound)
		}
		return "", fmt.Errorf("failed to fetch secret %s: %w", name, err)
	}

	if resp.Value == nil || *resp.Value == "" {
		f.log.Error().Str("secret", name).Msg("vault returned empty secret value")
		return "", fmt.Errorf("secret %s: %w", name, ErrSecretEmpty)
	}

	return *resp.Value, nil
}
