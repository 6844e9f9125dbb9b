package engine

import "github.com/memteam/memoryman/internal/model"

// entityStrategy stores records addressed by a caller-supplied logical key.
//
// Adds upsert: an existing key keeps its record id and created_at, the
// content and metadata are replaced, and last_accessed_at restarts at the
// upsert time. The key index lives in the engine and is rebuilt from a full
// scan on load.
type entityStrategy struct{}

func (entityStrategy) prepareAdd(e *Engine, rec *model.Record) (mutation, error) {
	if id, ok := e.entityKeys[rec.Key]; ok {
		prev := e.recs[id]
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		rec.AccessCount = prev.AccessCount
	}
	return mutation{puts: []model.Record{*rec}}, nil
}
