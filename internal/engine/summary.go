package engine

import (
	"strings"

	"github.com/memteam/memoryman/internal/model"
)

// summaryStrategy tracks additions and, once interval raw records have
// accumulated, condenses the oldest span into a single synthetic record
// whose metadata names the superseded ids.
//
// Ordering is commit-then-delete: the summary record lands in the same
// transaction as the triggering add, the originals are removed afterwards.
// An interruption between the two steps is healed by Load, which deletes
// any record still present that a committed summary supersedes.
type summaryStrategy struct {
	interval int
	reduce   Reducer
}

func (s *summaryStrategy) prepareAdd(e *Engine, rec *model.Record) (mutation, error) {
	mut := mutation{puts: []model.Record{*rec}}

	// Raw records are the ones not produced by condensation.
	raw := []*model.Record{}
	for _, r := range e.typeRecords(model.TypeSummary, false) {
		if len(r.Metadata.Summarizes) == 0 {
			raw = append(raw, r)
		}
	}
	if len(raw)+1 < s.interval {
		return mut, nil
	}

	byAge(raw)
	span := make([]model.Record, 0, s.interval)
	for _, r := range raw {
		if len(span) == s.interval-1 {
			break
		}
		span = append(span, *r)
	}
	span = append(span, *rec)

	ids := make([]string, len(span))
	for i, r := range span {
		ids[i] = r.ID
	}

	summary := model.Record{
		ID:             e.newID(rec.CreatedAt),
		Type:           model.TypeSummary,
		Content:        s.reduce(span),
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.CreatedAt,
		Metadata:       model.Metadata{Summarizes: ids},
	}

	mut.puts = append(mut.puts, summary)
	mut.followupDeletes = ids
	return mut, nil
}

// joinReducer is the default condensation: contents joined in id order,
// separated by a blank line.
func joinReducer(records []model.Record) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}
