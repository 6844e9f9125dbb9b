package engine

import "github.com/memteam/memoryman/internal/model"

// longTermStrategy is append-only and unbounded. Nothing is evicted;
// Engine.Archive is the only way a long-term record leaves default
// retrieval, and it keeps the record on disk.
type longTermStrategy struct{}

func (longTermStrategy) prepareAdd(_ *Engine, rec *model.Record) (mutation, error) {
	return mutation{puts: []model.Record{*rec}}, nil
}
