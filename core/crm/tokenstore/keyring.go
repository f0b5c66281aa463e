package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"

	"github.com/m3rciful/leadbot/core/logger"
)

// KeyringStore keeps the record as a secret in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("tokenstore: keyring service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("tokenstore: keyring user cannot be empty")
	}
	return &KeyringStore{service: service, user: user}, nil
}

// Load reads the secret. A missing or malformed secret yields ok=false and no error.
func (k *KeyringStore) Load(ctx context.Context) (Credentials, bool, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, false, err
	}
	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("tokenstore: keyring get %s/%s: %w", k.service, k.user, err)
	}
	creds, ok := Unmarshal([]byte(secret))
	if !ok {
		logger.Warn(ctx, logger.ComponentStore, "credentials.invalid",
			slog.String("backend", "keyring"),
			slog.String("path", k.service+"/"+k.user),
		)
	}
	return creds, ok, nil
}

// Save overwrites the secret.
func (k *KeyringStore) Save(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(creds)
	if err != nil {
		return fmt.Errorf("tokenstore: encode: %w", err)
	}
	if err := keyring.Set(k.service, k.user, string(data)); err != nil {
		return fmt.Errorf("tokenstore: keyring set %s/%s: %w", k.service, k.user, err)
	}
	return nil
}
