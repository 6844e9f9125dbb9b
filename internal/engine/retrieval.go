package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/memteam/memoryman/internal/model"
)

// QueryParams controls a retrieval query.
type QueryParams struct {
	Text            string
	Types           []model.Type // empty = all types
	Limit           int          // max results (default 10)
	IncludeArchived bool         // enumerate archived long-term records too
}

// QueryResult pairs a record with its ranking score.
type QueryResult struct {
	model.Record
	Score float64 `json:"score"`
}

// Query gathers candidates from the requested memory types, scores them by
// term matches, recency, and pinning, and returns an ordered, size-bounded
// result. Identical inputs with no intervening mutation produce identical
// ordering. Every returned record has its access time refreshed to the
// query time.
func (e *Engine) Query(ctx context.Context, p QueryParams) ([]QueryResult, error) {
	for _, t := range p.Types {
		if !t.Valid() {
			return nil, fmt.Errorf("query: type %q: %w", t, ErrInvalidType)
		}
	}

	terms := strings.Fields(strings.ToLower(p.Text))
	if len(terms) == 0 {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	types := p.Types
	if len(types) == 0 {
		types = model.AllTypes
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var pool []*model.Record
	for _, t := range types {
		pool = append(pool, e.typeRecords(t, p.IncludeArchived)...)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	oldest, newest := accessRange(pool)

	type scored struct {
		rec     *model.Record
		matches int
		score   float64
	}
	var candidates []scored
	for _, rec := range pool {
		m := matchCount(rec.Content, terms)
		if m == 0 {
			continue
		}
		candidates = append(candidates, scored{rec: rec, matches: m})
	}

	w := e.opts.Weights
	for i := range candidates {
		c := &candidates[i]
		c.score = w.Match * float64(c.matches)
		c.score += w.Recency * recencyNorm(c.rec.LastAccessedAt, oldest, newest)
		boost := c.rec.Metadata.Importance
		if c.rec.Metadata.Pinned {
			boost++
		}
		c.score += w.Pinned * boost
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		ci, cj := candidates[i].rec, candidates[j].rec
		if !ci.CreatedAt.Equal(cj.CreatedAt) {
			return ci.CreatedAt.After(cj.CreatedAt)
		}
		return ci.ID < cj.ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	hits := make([]*model.Record, len(candidates))
	for i, c := range candidates {
		hits[i] = c.rec
	}
	if err := e.touch(ctx, hits, time.Now().UTC()); err != nil {
		return nil, err
	}

	results := make([]QueryResult, len(candidates))
	for i, c := range candidates {
		results[i] = QueryResult{Record: *c.rec, Score: c.score}
	}
	return results, nil
}

// matchCount returns the total occurrences of the query terms in content,
// case-insensitive.
func matchCount(content string, terms []string) int {
	lower := strings.ToLower(content)
	n := 0
	for _, t := range terms {
		n += strings.Count(lower, t)
	}
	return n
}

// accessRange returns the oldest and newest last-accessed times in the pool.
func accessRange(pool []*model.Record) (oldest, newest time.Time) {
	oldest, newest = pool[0].LastAccessedAt, pool[0].LastAccessedAt
	for _, rec := range pool[1:] {
		if rec.LastAccessedAt.Before(oldest) {
			oldest = rec.LastAccessedAt
		}
		if rec.LastAccessedAt.After(newest) {
			newest = rec.LastAccessedAt
		}
	}
	return oldest, newest
}

// recencyNorm maps a last-accessed time into [0, 1] across the pool's
// range; a pool with one distinct time scores 1 everywhere.
func recencyNorm(at, oldest, newest time.Time) float64 {
	span := newest.Sub(oldest)
	if span <= 0 {
		return 1
	}
	return float64(at.Sub(oldest)) / float64(span)
}
