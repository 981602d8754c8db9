package ledger

import (
	"context"
	"sort"
	"sync"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in insertion order per organization. It backs
// unit tests and single-process deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.OrgID][]Entry
	seen    map[id.EntryID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[id.OrgID][]Entry),
		seen:    make(map[id.EntryID]bool),
	}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[entry.ID] {
		return sentinel.ErrAlreadyUsed
	}
	s.seen[entry.ID] = true
	s.entries[entry.OrgID] = append(s.entries[entry.OrgID], entry)
	return nil
}

func (s *InMemoryStore) ListByCorrelation(_ context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries[orgID] {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	sortByTime(out)
	return out, nil
}

func (s *InMemoryStore) ListByReference(_ context.Context, orgID id.OrgID, kind ReferenceKind, value string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries[orgID] {
		for _, ref := range e.References {
			if ref.Kind == kind && ref.Value == value {
				out = append(out, e)
				break
			}
		}
	}
	sortByTime(out)
	return out, nil
}

func sortByTime(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
