package inbound

import (
	"context"
	"sort"
	"sync"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	docs     map[id.OrgID]map[id.DocumentID]InboundDocument
	attempts map[id.OrgID]map[id.DocumentID][]MatchAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs:     make(map[id.OrgID]map[id.DocumentID]InboundDocument),
		attempts: make(map[id.OrgID]map[id.DocumentID][]MatchAttempt),
	}
}

func (s *InMemoryStore) SaveDocument(_ context.Context, doc InboundDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[doc.OrgID] == nil {
		s.docs[doc.OrgID] = make(map[id.DocumentID]InboundDocument)
	}
	if _, exists := s.docs[doc.OrgID][doc.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.docs[doc.OrgID][doc.ID] = doc
	return nil
}

func (s *InMemoryStore) FindDocument(_ context.Context, orgID id.OrgID, documentID id.DocumentID) (InboundDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[orgID][documentID]
	if !ok {
		return InboundDocument{}, sentinel.ErrNotFound
	}
	return doc, nil
}

func (s *InMemoryStore) FindByContentHash(_ context.Context, orgID id.OrgID, contentHash string) (InboundDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *InboundDocument
	for _, doc := range s.docs[orgID] {
		if doc.ContentHash != contentHash {
			continue
		}
		if found == nil || doc.ReceivedAt.Before(found.ReceivedAt) {
			d := doc
			found = &d
		}
	}
	if found == nil {
		return InboundDocument{}, sentinel.ErrNotFound
	}
	return *found, nil
}

func (s *InMemoryStore) UpdateClassification(_ context.Context, orgID id.OrgID, documentID id.DocumentID, docType string, confidence float64, method ClassificationMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[orgID][documentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.DocumentType = docType
	doc.ClassificationConfidence = confidence
	doc.ClassificationMethod = method
	s.docs[orgID][documentID] = doc
	return nil
}

func (s *InMemoryStore) UpdateMatch(_ context.Context, orgID id.OrgID, documentID id.DocumentID, update MatchUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[orgID][documentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.MatchedOutboundID = update.OutboundID
	doc.MatchConfidence = update.Confidence
	doc.MatchMethod = update.Method
	doc.AutoAttached = update.AutoAttached
	doc.ReviewStatus = update.ReviewStatus
	doc.Reviewer = update.Reviewer
	doc.ReviewedAt = update.ReviewedAt
	s.docs[orgID][documentID] = doc
	return nil
}

func (s *InMemoryStore) SaveAttempts(_ context.Context, attempts []MatchAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, attempt := range attempts {
		if s.attempts[attempt.OrgID] == nil {
			s.attempts[attempt.OrgID] = make(map[id.DocumentID][]MatchAttempt)
		}
		s.attempts[attempt.OrgID][attempt.DocumentID] = append(s.attempts[attempt.OrgID][attempt.DocumentID], attempt)
	}
	return nil
}

func (s *InMemoryStore) ListAttemptsByDocument(_ context.Context, orgID id.OrgID, documentID id.DocumentID) ([]MatchAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := s.attempts[orgID][documentID]
	out := make([]MatchAttempt, len(attempts))
	copy(out, attempts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out, nil
}

func (s *InMemoryStore) ListPendingReview(_ context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.listByReviewStatus(orgID, ReviewPending), nil
}

func (s *InMemoryStore) ListManualQueue(_ context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.listByReviewStatus(orgID, ReviewManualQueue), nil
}

func (s *InMemoryStore) listByReviewStatus(orgID id.OrgID, status ReviewStatus) []InboundDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []InboundDocument
	for _, doc := range s.docs[orgID] {
		if doc.ReviewStatus == status {
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out
}
