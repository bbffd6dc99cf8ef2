package activity

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matthewbaird/propmanage/internal/types"
)

// MemoryStore keeps activity entries in a slice. It backs tests and runs
// where activity need not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []types.ActivityEntry
	seen    map[entryKey]struct{}
}

// entryKey is unique per event and indexed entity.
type entryKey struct {
	eventID, entityType, entityID string
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[entryKey]struct{})}
}

// WriteEntries appends entries, skipping any already stored for the same
// event and entity.
func (s *MemoryStore) WriteEntries(_ context.Context, entries []types.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		k := entryKey{e.EventID, e.IndexedEntityType, e.IndexedEntityID}
		if _, dup := s.seen[k]; dup {
			continue
		}
		s.seen[k] = struct{}{}
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entityType, entityID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	before, paged := opts.cursor()
	var page []types.ActivityEntry
	total := 0
	for _, e := range s.entries {
		if e.IndexedEntityType != entityType || e.IndexedEntityID != entityID || !opts.matches(e) {
			continue
		}
		total++
		if paged && !e.OccurredAt.Before(before) {
			continue
		}
		page = append(page, e)
	}
	page = newestFirst(page)

	var next string
	if limit := opts.limit(); len(page) > limit {
		page = page[:limit]
		next = page[limit-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return page, next, total, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []types.ActivityEntry
	for _, e := range s.entries {
		if containsFold(e.Summary, query) && opts.matches(e) {
			hits = append(hits, e)
		}
	}
	hits = newestFirst(hits)

	total := len(hits)
	if limit := opts.limit(); len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, total, nil
}

// newestFirst orders entries by occurred_at DESC. Entries arrive in write
// order, so reversing before the stable sort makes later writes win ties,
// as the SQL store's id DESC does.
func newestFirst(entries []types.ActivityEntry) []types.ActivityEntry {
	slices.Reverse(entries)
	slices.SortStableFunc(entries, func(a, b types.ActivityEntry) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	return entries
}
