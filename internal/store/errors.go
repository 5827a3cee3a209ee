package store

import "errors"

var (
	ErrEmptyNamespace = errors.New("namespace must not be empty")
	ErrNotFound       = errors.New("snapshot not found")
	ErrSnapshotExists = errors.New("snapshot already exists")
	ErrSecretNotFound = errors.New("secret not found")
	ErrTimeout        = errors.New("storage operation timed out")
)
