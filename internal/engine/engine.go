// Package engine implements the memory core: four retention strategies
// (buffer, summary, entity, longterm) behind one facade, backed by a single
// SQLite file. The engine exclusively owns the in-memory live sets; the
// backend is the authority consulted on reload.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/memteam/memoryman/internal/model"
	"github.com/memteam/memoryman/internal/storage"
)

var (
	// ErrInvalidType indicates an unknown memory type at the public boundary.
	ErrInvalidType = errors.New("invalid memory type")

	// ErrCapacity indicates the hard cap was exceeded with no eligible
	// eviction candidate (e.g. an all-pinned buffer).
	ErrCapacity = errors.New("capacity exceeded")
)

// Reducer condenses the contents of superseded records into one summary
// payload. Records arrive in id order.
type Reducer func(records []model.Record) string

// Weights controls the ranking score components.
type Weights struct {
	Match   float64 // per query-term occurrence in content
	Recency float64 // normalized last-accessed recency
	Pinned  float64 // pinned boost, scaled by importance
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Path            string
	BufferCapacity  int
	BufferHardCap   int
	SummaryInterval int
	Weights         Weights
	Reducer         Reducer
}

const (
	defaultBufferCapacity  = 10
	defaultBufferHardCap   = 50
	defaultSummaryInterval = 5
	defaultQueryLimit      = 10
)

func (o Options) withDefaults() Options {
	if o.BufferCapacity <= 0 {
		o.BufferCapacity = defaultBufferCapacity
	}
	if o.BufferHardCap <= 0 {
		o.BufferHardCap = defaultBufferHardCap
	}
	if o.SummaryInterval <= 0 {
		o.SummaryInterval = defaultSummaryInterval
	}
	if o.Weights == (Weights{}) {
		o.Weights = Weights{Match: 1.0, Recency: 0.5, Pinned: 2.0}
	}
	if o.Reducer == nil {
		o.Reducer = joinReducer
	}
	return o
}

// Engine is the memory core. All mutating operations serialize behind one
// lock; retrieval refreshes access times, so it writes too.
type Engine struct {
	mu      sync.RWMutex
	backend storage.Backend
	opts    Options

	recs       map[string]*model.Record // live set, by id (archived included)
	entityKeys map[string]string        // entity key -> id

	strategies map[model.Type]strategy
	entropy    *ulid.MonotonicEntropy
}

// LoadReport describes what a load pass recovered and what it had to skip.
type LoadReport struct {
	Loaded     int
	Skipped    []string // ids of malformed records left on disk but unusable
	Reconciled []string // superseded originals removed by condensation recovery
}

// New opens the backend at opts.Path and loads existing state. A load
// failure still returns a usable empty engine alongside the error.
func New(opts Options) (*Engine, *LoadReport, error) {
	backend, err := storage.Open(opts.Path)
	if err != nil {
		return nil, nil, err
	}
	return NewWithBackend(backend, opts)
}

// NewWithBackend wraps an already-open backend. The engine takes ownership
// of the handle and releases it on Close.
func NewWithBackend(backend storage.Backend, opts Options) (*Engine, *LoadReport, error) {
	e := &Engine{
		backend: backend,
		opts:    opts.withDefaults(),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	e.reset()
	e.strategies = map[model.Type]strategy{
		model.TypeBuffer:   &bufferStrategy{capacity: e.opts.BufferCapacity, hardCap: e.opts.BufferHardCap},
		model.TypeSummary:  &summaryStrategy{interval: e.opts.SummaryInterval, reduce: e.opts.Reducer},
		model.TypeEntity:   &entityStrategy{},
		model.TypeLongTerm: &longTermStrategy{},
	}

	report, err := e.Load(context.Background())
	return e, report, err
}

func (e *Engine) reset() {
	e.recs = make(map[string]*model.Record)
	e.entityKeys = make(map[string]string)
}

// newID returns a ULID whose lexical order follows creation order, so
// sorting by id doubles as sorting by age. Monotonic entropy keeps ids
// strictly increasing within the same millisecond.
func (e *Engine) newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), e.entropy).String()
}

// AddParams holds parameters for storing a record.
type AddParams struct {
	Type     model.Type
	Key      string // entity memory only
	Content  string
	Metadata model.Metadata
}

// Add stores content under the given memory type. Eviction or condensation
// triggered by the add commits atomically with it: either both land or the
// prior state is unchanged.
func (e *Engine) Add(ctx context.Context, p AddParams) (model.Record, error) {
	if !p.Type.Valid() {
		return model.Record{}, fmt.Errorf("add: type %q: %w", p.Type, ErrInvalidType)
	}
	if p.Type == model.TypeEntity && p.Key == "" {
		return model.Record{}, fmt.Errorf("add: entity memory requires a key")
	}
	if p.Type != model.TypeEntity && p.Key != "" {
		return model.Record{}, fmt.Errorf("add: key is only valid for entity memory")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	rec := model.Record{
		ID:             e.newID(now),
		Type:           p.Type,
		Key:            p.Key,
		Content:        p.Content,
		CreatedAt:      now,
		LastAccessedAt: now,
		Metadata:       p.Metadata,
	}

	mut, err := e.strategies[p.Type].prepareAdd(e, &rec)
	if err != nil {
		return model.Record{}, err
	}

	if err := e.backend.Batch(ctx, mut.puts, mut.deletes); err != nil {
		return model.Record{}, err
	}
	e.apply(mut.puts, mut.deletes)

	// Condensation ordering: the summary record is already durable; the
	// superseded originals go in a second transaction. If that step is
	// interrupted, Load reconciles the leftovers from the summary metadata.
	if len(mut.followupDeletes) > 0 {
		err := e.backend.Batch(ctx, nil, mut.followupDeletes)
		e.apply(nil, mut.followupDeletes)
		if err != nil {
			return rec, fmt.Errorf("condense cleanup: %w", err)
		}
	}

	return rec, nil
}

// Get returns the record by id and refreshes its access time.
func (e *Engine) Get(ctx context.Context, id string) (model.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.recs[id]
	if !ok {
		return model.Record{}, fmt.Errorf("get %s: %w", id, storage.ErrNotFound)
	}
	if err := e.touch(ctx, []*model.Record{rec}, time.Now().UTC()); err != nil {
		return model.Record{}, err
	}
	return *rec, nil
}

// GetEntity returns the entity record stored under key.
func (e *Engine) GetEntity(ctx context.Context, key string) (model.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.entityKeys[key]
	if !ok {
		return model.Record{}, fmt.Errorf("entity %q: %w", key, storage.ErrNotFound)
	}
	rec := e.recs[id]
	if err := e.touch(ctx, []*model.Record{rec}, time.Now().UTC()); err != nil {
		return model.Record{}, err
	}
	return *rec, nil
}

// Delete hard-removes the record regardless of type.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.recs[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, storage.ErrNotFound)
	}
	if err := e.backend.Delete(ctx, id); err != nil {
		return err
	}
	e.apply(nil, []string{id})
	return nil
}

// Archive soft-deletes a long-term record: it stays on disk but drops out of
// default retrieval. Only long-term memory permits this.
func (e *Engine) Archive(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.recs[id]
	if !ok {
		return fmt.Errorf("archive %s: %w", id, storage.ErrNotFound)
	}
	if rec.Type != model.TypeLongTerm {
		return fmt.Errorf("archive %s: type %q: %w", id, rec.Type, ErrInvalidType)
	}
	updated := *rec
	updated.Archived = true
	if err := e.backend.Put(ctx, updated); err != nil {
		return err
	}
	rec.Archived = true
	return nil
}

// Clear removes all records of the given type, or every record when the
// type is empty. Irreversible.
func (e *Engine) Clear(ctx context.Context, t model.Type) error {
	if t != "" && !t.Valid() {
		return fmt.Errorf("clear: type %q: %w", t, ErrInvalidType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []string
	for id, rec := range e.recs {
		if t == "" || rec.Type == t {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := e.backend.Batch(ctx, nil, ids); err != nil {
		return err
	}
	e.apply(nil, ids)
	return nil
}

// Recent returns the most recently created records of a type, newest first.
func (e *Engine) Recent(ctx context.Context, t model.Type, limit int) ([]model.Record, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("recent: type %q: %w", t, ErrInvalidType)
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	recs := e.typeRecords(t, false)
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]model.Record, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	return out, nil
}

// Count returns live record counts per type. Archived records are excluded.
func (e *Engine) Count(t model.Type) (map[model.Type]int, error) {
	if t != "" && !t.Valid() {
		return nil, fmt.Errorf("count: type %q: %w", t, ErrInvalidType)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[model.Type]int)
	for _, rec := range e.recs {
		if rec.Archived {
			continue
		}
		if t == "" || rec.Type == t {
			counts[rec.Type]++
		}
	}
	return counts, nil
}

// Load rebuilds the in-memory state from the backend. Malformed records are
// skipped and reported; leftovers from an interrupted condensation are
// removed so nothing is counted twice. A failed load leaves the engine
// empty but usable.
func (e *Engine) Load(ctx context.Context) (*LoadReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset()
	report := &LoadReport{}

	scanReport, err := e.backend.Scan(ctx, storage.ScanParams{IncludeArchived: true}, func(rec model.Record) error {
		r := rec
		e.recs[r.ID] = &r
		return nil
	})
	if scanReport != nil {
		report.Skipped = scanReport.Skipped
	}
	if err != nil {
		e.reset()
		return report, fmt.Errorf("load: %w", err)
	}
	for _, id := range report.Skipped {
		log.Printf("load: skipping malformed record %s", id)
	}

	// Condensation recovery: any original named by a committed summary
	// record must go, whether the delete step finished or not.
	var leftovers []string
	for _, rec := range e.recs {
		if rec.Type != model.TypeSummary {
			continue
		}
		for _, old := range rec.Metadata.Summarizes {
			if _, ok := e.recs[old]; ok {
				leftovers = append(leftovers, old)
			}
		}
	}
	if len(leftovers) > 0 {
		if err := e.backend.Batch(ctx, nil, leftovers); err != nil {
			e.reset()
			return report, fmt.Errorf("load: reconcile condensation: %w", err)
		}
		for _, id := range leftovers {
			delete(e.recs, id)
		}
		report.Reconciled = leftovers
	}

	for id, rec := range e.recs {
		if rec.Type == model.TypeEntity {
			e.entityKeys[rec.Key] = id
		}
	}
	report.Loaded = len(e.recs)
	return report, nil
}

// Flush forces all committed state to the database file.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend.Flush(ctx)
}

// Stats returns backend statistics.
func (e *Engine) Stats(ctx context.Context) (*storage.Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend.Stats(ctx)
}

// Close flushes and releases the backend handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	flushErr := e.backend.Flush(context.Background())
	closeErr := e.backend.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// apply updates the in-memory sets after the backend committed. Lock held.
func (e *Engine) apply(puts []model.Record, deletes []string) {
	for _, id := range deletes {
		if rec, ok := e.recs[id]; ok {
			if rec.Type == model.TypeEntity {
				delete(e.entityKeys, rec.Key)
			}
			delete(e.recs, id)
		}
	}
	for i := range puts {
		r := puts[i]
		e.recs[r.ID] = &r
		if r.Type == model.TypeEntity {
			e.entityKeys[r.Key] = r.ID
		}
	}
}

// touch persists and applies an access-time refresh. Lock held.
func (e *Engine) touch(ctx context.Context, recs []*model.Record, at time.Time) error {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	if err := e.backend.Touch(ctx, ids, at); err != nil {
		return err
	}
	for _, r := range recs {
		r.LastAccessedAt = at
		r.AccessCount++
	}
	return nil
}

// typeRecords returns the live records of one type, unordered. Lock held.
func (e *Engine) typeRecords(t model.Type, includeArchived bool) []*model.Record {
	var out []*model.Record
	for _, rec := range e.recs {
		if rec.Type != t {
			continue
		}
		if rec.Archived && !includeArchived {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// byAge orders records oldest first: created_at ascending, then id
// ascending. ULIDs make the id a stable secondary key.
func byAge(recs []*model.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
