// Package storage provides the durable record store backing the memory
// engine. A single SQLite file holds one logical table of memory records
// keyed by id; every mutating call commits before returning.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/memteam/memoryman/internal/model"
)

var (
	// ErrNotFound indicates the requested record id is absent.
	ErrNotFound = errors.New("record not found")

	// ErrSerialization indicates a stored record could not be decoded.
	ErrSerialization = errors.New("malformed record")
)

// ScanParams filters a Scan pass.
type ScanParams struct {
	Type            model.Type // empty = all types
	IncludeArchived bool
}

// ScanReport summarizes a completed Scan. Malformed rows never abort the
// scan; their ids are collected here so callers can surface them.
type ScanReport struct {
	Scanned int
	Skipped []string
}

// Backend is the persistence contract consumed by the engine.
type Backend interface {
	// Put inserts or overwrites a record by id in a single statement.
	Put(ctx context.Context, rec model.Record) error

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (model.Record, error)

	// Delete removes the record by id. Deleting an absent id is a no-op;
	// callers that need strict semantics check existence first.
	Delete(ctx context.Context, id string) error

	// Scan streams records matching p to fn in unspecified order. Each call
	// starts a fresh pass. Rows whose payload cannot be decoded are skipped
	// and reported, not returned as errors.
	Scan(ctx context.Context, p ScanParams, fn func(model.Record) error) (*ScanReport, error)

	// Batch applies all puts and deletes in one transaction. Either every
	// mutation commits or none does.
	Batch(ctx context.Context, puts []model.Record, deleteIDs []string) error

	// Touch refreshes last_accessed_at to at and bumps access_count for ids.
	Touch(ctx context.Context, ids []string, at time.Time) error

	// Count returns the number of live records of the given type
	// (all types when empty), excluding archived ones.
	Count(ctx context.Context, t model.Type) (int, error)

	// Stats returns database statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Flush forces all committed state to the database file.
	Flush(ctx context.Context) error

	// Close releases the underlying file handle.
	Close() error
}
