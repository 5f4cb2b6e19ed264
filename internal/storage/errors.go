package storage

import "errors"

// Sentinel errors shared by the memory, postgres and clickhouse stores.
var (
	// ErrNotFound is returned when no insight, metadata entry or
	// observation exists for the requested key.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey is returned when an observation for the same
	// (currency, observed_at) or an insight for the same day is already
	// stored. History and insights are never overwritten.
	ErrDuplicateKey = errors.New("storage: key already stored")

	// ErrInvalidInput is returned for nil records or records missing
	// their key fields.
	ErrInvalidInput = errors.New("storage: invalid input")

	// ErrSchemaDrift is returned when a migrated database lacks a table,
	// key or column layout the stores depend on.
	ErrSchemaDrift = errors.New("storage: schema does not match stores")
)
