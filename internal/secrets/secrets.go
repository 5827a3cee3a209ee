// Package secrets stores per-namespace upstream credentials encrypted at
// rest under the vault's master key.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/statarr/internal/store"
	"github.com/hyperengineering/statarr/internal/types"
	"github.com/hyperengineering/statarr/internal/validation"
	"github.com/hyperengineering/statarr/internal/vault"
)

// ErrInvalidInput is returned when the namespace, endpoint URL, or API key
// fails boundary validation.
var ErrInvalidInput = errors.New("invalid input")

// SecretDB defines the store operations needed by the secret store.
type SecretDB interface {
	UpsertSecret(ctx context.Context, rec types.SecretRecord) error
	GetSecret(ctx context.Context, namespace string) (*types.SecretRecord, error)
	SecretExists(ctx context.Context, namespace string) (bool, error)
	DeleteSecret(ctx context.Context, namespace string) (int64, error)
}

// Store encrypts and persists one credential record per namespace.
type Store struct {
	db    SecretDB
	vault *vault.KeyVault
}

// NewStore creates a secret store backed by the given database and key
// vault.
func NewStore(db SecretDB, kv *vault.KeyVault) *Store {
	return &Store{db: db, vault: kv}
}

// Save encrypts {endpointURL, apiKey} under the master key and upserts the
// record for the namespace. Overwrite semantics: the previous record, if
// any, is replaced.
func (s *Store) Save(ctx context.Context, namespace, endpointURL, apiKey string) error {
	c := &validation.Collector{}
	c.Add(validation.Required("namespace", namespace))
	c.Add(validation.Required("endpoint_url", endpointURL))
	c.Add(validation.Required("api_key", apiKey))
	c.Add(validation.MaxLength("endpoint_url", endpointURL, 2048))
	c.Add(validation.MaxLength("api_key", apiKey, 512))
	c.Add(validation.NoNullBytes("namespace", namespace))
	if c.HasErrors() {
		return fmt.Errorf("%w: %s", ErrInvalidInput, c.Error())
	}

	key, err := s.vault.MasterKey()
	if err != nil {
		return fmt.Errorf("load master key: %w", err)
	}

	envelope, err := json.Marshal(types.Credentials{BaseURL: endpointURL, APIKey: apiKey})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	ciphertext, err := vault.Encrypt(envelope, key)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}

	rec := types.SecretRecord{
		Namespace:   namespace,
		EndpointURL: endpointURL,
		Ciphertext:  ciphertext,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.db.UpsertSecret(ctx, rec); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	return nil
}

// Load decrypts and returns the credentials for the namespace. Returns
// store.ErrSecretNotFound when no record exists, and vault.ErrDecryptFailed
// when the ciphertext fails authentication under the current master key.
func (s *Store) Load(ctx context.Context, namespace string) (*types.Credentials, error) {
	rec, err := s.db.GetSecret(ctx, namespace)
	if err != nil {
		return nil, err
	}

	key, err := s.vault.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("load master key: %w", err)
	}

	envelope, err := vault.Decrypt(rec.Ciphertext, key)
	if err != nil {
		return nil, err
	}

	var creds types.Credentials
	if err := json.Unmarshal(envelope, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Exists reports whether credentials are stored for the namespace.
func (s *Store) Exists(ctx context.Context, namespace string) (bool, error) {
	return s.db.SecretExists(ctx, namespace)
}

// Delete removes the credentials for the namespace. Deleting a non-existent
// record succeeds and reports zero rows affected.
func (s *Store) Delete(ctx context.Context, namespace string) (int64, error) {
	return s.db.DeleteSecret(ctx, namespace)
}

// Ensure the SQLite store satisfies SecretDB.
var _ SecretDB = (*store.SQLiteStore)(nil)
