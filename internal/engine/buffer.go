package engine

import (
	"fmt"

	"github.com/memteam/memoryman/internal/model"
)

// bufferStrategy keeps a rolling window of the most recent records.
//
// Unpinned records beyond capacity are evicted oldest first, lowest id
// first on equal age. Pinned records are exempt from eviction and do not
// count toward capacity, but every stored record counts toward the hard
// cap; an add that would breach the cap with nothing left to evict fails
// with ErrCapacity and commits nothing.
type bufferStrategy struct {
	capacity int
	hardCap  int
}

func (b *bufferStrategy) prepareAdd(e *Engine, rec *model.Record) (mutation, error) {
	live := e.typeRecords(model.TypeBuffer, false)
	byAge(live)

	var evictable []*model.Record
	pinned := 0
	for _, r := range live {
		if r.Metadata.Pinned {
			pinned++
		} else {
			evictable = append(evictable, r)
		}
	}

	unpinned := len(evictable)
	if !rec.Metadata.Pinned {
		unpinned++
	}

	var deletes []string
	evict := func() {
		deletes = append(deletes, evictable[0].ID)
		evictable = evictable[1:]
	}

	for unpinned > b.capacity && len(evictable) > 0 {
		evict()
		unpinned--
	}

	// Pinned entries keep the window honest only up to the hard cap.
	total := len(live) + 1 - len(deletes)
	for total > b.hardCap {
		if len(evictable) == 0 {
			return mutation{}, fmt.Errorf("buffer: hard cap %d reached with %d pinned records: %w",
				b.hardCap, pinned, ErrCapacity)
		}
		evict()
		total--
	}

	return mutation{puts: []model.Record{*rec}, deletes: deletes}, nil
}
