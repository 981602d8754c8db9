package resolution

import (
	"context"
	"strings"
	"sync"
	"time"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-process deployments.
type InMemoryStore struct {
	mu        sync.RWMutex
	contacts  map[id.OrgID][]DestinationContact
	histories map[id.OrgID]map[id.HistoryID]History
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		contacts:  make(map[id.OrgID][]DestinationContact),
		histories: make(map[id.OrgID]map[id.HistoryID]History),
	}
}

func (s *InMemoryStore) SaveContact(_ context.Context, contact DestinationContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts[contact.OrgID] {
		if s.contacts[contact.OrgID][i].ID == contact.ID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.contacts[contact.OrgID] = append(s.contacts[contact.OrgID], contact)
	return nil
}

func (s *InMemoryStore) FindContact(_ context.Context, orgID id.OrgID, contactID id.ContactID) (DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts[orgID] {
		if c.ID == contactID {
			return c, nil
		}
	}
	return DestinationContact{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Supersede(_ context.Context, orgID id.OrgID, oldID, newID id.ContactID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := s.contacts[orgID]
	for i := range contacts {
		if contacts[i].ID == oldID {
			contacts[i].Active = false
			contacts[i].ReplacedByID = newID
			contacts[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) ListActiveByName(_ context.Context, orgID id.OrgID, name string, layer AuthorityLayer) ([]DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DestinationContact
	for _, c := range s.contacts[orgID] {
		if c.Active && c.Layer == layer && strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListActiveByIdentifier(_ context.Context, orgID id.OrgID, identifier string, layer AuthorityLayer) ([]DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DestinationContact
	for _, c := range s.contacts[orgID] {
		if c.Active && c.Layer == layer && c.MatchesIdentifier(identifier) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListActiveByAnyIdentifier(_ context.Context, orgID id.OrgID, identifier string) ([]DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DestinationContact
	for _, c := range s.contacts[orgID] {
		if c.Active && c.MatchesIdentifier(identifier) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListActiveByLayer(_ context.Context, orgID id.OrgID, layer AuthorityLayer) ([]DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DestinationContact
	for _, c := range s.contacts[orgID] {
		if c.Active && c.Layer == layer {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindMostRecentSuccess(_ context.Context, orgID id.OrgID, name string, layer AuthorityLayer) (DestinationContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  DestinationContact
		found bool
	)
	for _, c := range s.contacts[orgID] {
		if !c.Active || c.Layer != layer || c.LastSuccessAt == nil || !strings.EqualFold(c.Name, name) {
			continue
		}
		if !found || c.LastSuccessAt.After(*best.LastSuccessAt) {
			best = c
			found = true
		}
	}
	if !found {
		return DestinationContact{}, sentinel.ErrNotFound
	}
	return best, nil
}

func (s *InMemoryStore) RecordDeliveryOutcome(_ context.Context, orgID id.OrgID, contactID id.ContactID, success bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := s.contacts[orgID]
	for i := range contacts {
		if contacts[i].ID != contactID {
			continue
		}
		if success {
			contacts[i].SuccessCount++
			t := at
			contacts[i].LastSuccessAt = &t
		} else {
			contacts[i].FailureCount++
		}
		contacts[i].UpdatedAt = at
		return nil
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) SaveHistory(_ context.Context, history History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.histories[history.OrgID] == nil {
		s.histories[history.OrgID] = make(map[id.HistoryID]History)
	}
	if _, exists := s.histories[history.OrgID][history.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.histories[history.OrgID][history.ID] = history
	return nil
}

func (s *InMemoryStore) FindHistory(_ context.Context, orgID id.OrgID, historyID id.HistoryID) (History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[orgID][historyID]
	if !ok {
		return History{}, sentinel.ErrNotFound
	}
	return h, nil
}

func (s *InMemoryStore) ListHistoriesRequiringReview(_ context.Context, orgID id.OrgID) ([]History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []History
	for _, h := range s.histories[orgID] {
		if h.RequiresHumanReview && !h.Reviewed {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AnnotateReview(_ context.Context, orgID id.OrgID, historyID id.HistoryID, annotation ReviewAnnotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[orgID][historyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if h.Reviewed {
		return sentinel.ErrInvalidState
	}
	h.Reviewed = true
	h.Reviewer = annotation.Reviewer
	h.ConfirmedValue = annotation.ConfirmedValue
	h.ConfirmedDepartment = annotation.ConfirmedDepartment
	h.PromotedContactID = annotation.PromotedContactID
	s.histories[orgID][historyID] = h
	return nil
}
