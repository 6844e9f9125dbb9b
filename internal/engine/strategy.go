package engine

import "github.com/memteam/memoryman/internal/model"

// mutation is the set of backend changes an add stages. puts and deletes
// commit in one transaction with the new record; followupDeletes commit in
// a second transaction after the first is durable (condensation ordering).
type mutation struct {
	puts            []model.Record
	deletes         []string
	followupDeletes []string
}

// strategy is the capability a retention policy exposes to the core. A
// strategy never writes to the backend itself; it declares intended
// mutations and the engine applies them.
type strategy interface {
	// prepareAdd stages the mutations for storing rec, including rec
	// itself. It may rewrite rec in place (entity upsert reuses the
	// existing id). The engine calls it with the write lock held.
	prepareAdd(e *Engine, rec *model.Record) (mutation, error)
}
