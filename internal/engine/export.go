package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/memteam/memoryman/internal/model"
)

// Export returns all live records, optionally filtered by type, in id
// order. Archived records are included so an export is a full backup.
func (e *Engine) Export(ctx context.Context, t model.Type) ([]model.Record, error) {
	if t != "" && !t.Valid() {
		return nil, fmt.Errorf("export: type %q: %w", t, ErrInvalidType)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*model.Record
	for _, rec := range e.recs {
		if t == "" || rec.Type == t {
			out = append(out, rec)
		}
	}
	byAge(out)

	recs := make([]model.Record, len(out))
	for i, r := range out {
		recs[i] = *r
	}
	return recs, nil
}

// Import stores records from an export in one transaction. Records keep
// their ids when set (an existing id is overwritten); records without an
// id get a fresh one. Returns the number imported.
func (e *Engine) Import(ctx context.Context, recs []model.Record) (int, error) {
	for _, rec := range recs {
		if !rec.Type.Valid() {
			return 0, fmt.Errorf("import: type %q: %w", rec.Type, ErrInvalidType)
		}
		if rec.Type == model.TypeEntity && rec.Key == "" {
			return 0, fmt.Errorf("import: entity record %s has no key", rec.ID)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	puts := make([]model.Record, len(recs))
	for i, rec := range recs {
		if rec.ID == "" {
			rec.ID = e.newID(now)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.LastAccessedAt.IsZero() {
			rec.LastAccessedAt = rec.CreatedAt
		}
		puts[i] = rec
	}

	if err := e.backend.Batch(ctx, puts, nil); err != nil {
		return 0, err
	}
	e.apply(puts, nil)
	return len(puts), nil
}
