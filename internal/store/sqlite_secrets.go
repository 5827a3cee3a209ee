package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperengineering/statarr/internal/types"
)

// UpsertSecret writes the secret record for a namespace with last-write-wins
// semantics: at most one live record per namespace.
func (s *SQLiteStore) UpsertSecret(ctx context.Context, rec types.SecretRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (namespace, endpoint_url, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			endpoint_url = excluded.endpoint_url,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, rec.Namespace, rec.EndpointURL, rec.Ciphertext, rec.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return mapErr(fmt.Errorf("upsert secret: %w", err))
	}
	return nil
}

// GetSecret returns the secret record for a namespace, or ErrSecretNotFound.
func (s *SQLiteStore) GetSecret(ctx context.Context, namespace string) (*types.SecretRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT namespace, endpoint_url, payload, updated_at
		FROM secrets
		WHERE namespace = ?
	`, namespace)

	var rec types.SecretRecord
	var updatedAt string
	if err := row.Scan(&rec.Namespace, &rec.EndpointURL, &rec.Ciphertext, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSecretNotFound
		}
		return nil, mapErr(fmt.Errorf("scan secret: %w", err))
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = t
	}

	return &rec, nil
}

// SecretExists reports whether a secret record is stored for the namespace.
func (s *SQLiteStore) SecretExists(ctx context.Context, namespace string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM secrets WHERE namespace = ?", namespace).Scan(&count)
	if err != nil {
		return false, mapErr(fmt.Errorf("count secrets: %w", err))
	}
	return count > 0, nil
}

// DeleteSecret removes the secret record for a namespace. Deleting a
// non-existent record is not an error; the returned count is zero.
func (s *SQLiteStore) DeleteSecret(ctx context.Context, namespace string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE namespace = ?", namespace)
	if err != nil {
		return 0, mapErr(fmt.Errorf("delete secret: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return affected, nil
}
