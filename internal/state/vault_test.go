package state

import (
	"context"
	"errors"
	"testing"

	"github.com/ls-github123/openai-chat-deploy/internal/vault"
)

type stubVault struct {
	err error
}

func (s *stubVault) GetSecret(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "value", nil
}

func (s *stubVault) RefreshSecret(ctx context.Context, name string) (string, error) {
	return s.GetSecret(ctx, name)
}

func TestCheckVault(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reachable bool
	}{
		{"secret returned", nil, true},
		{"secret not found", vault.ErrSecretNotFound, true},
		{"secret empty", vault.ErrSecretEmpty, true},
		{"transport failure", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVault(context.Background(), &stubVault{err: tt.err}, "openai-mysql-root")
			if (err == nil) != tt.reachable {
				t.Errorf("CheckVault() error = %v, reachable = %t", err, tt.reachable)
			}
		})
	}
}
