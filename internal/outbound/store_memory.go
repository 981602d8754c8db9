package outbound

import (
	"context"
	"sync"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.OrgID]map[id.OutboundID]Request
	events   map[id.OutboundID][]StatusEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[id.OrgID]map[id.OutboundID]Request),
		events:   make(map[id.OutboundID][]StatusEvent),
	}
}

func (s *InMemoryStore) Save(_ context.Context, request Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requests[request.OrgID] == nil {
		s.requests[request.OrgID] = make(map[id.OutboundID]Request)
	}
	if _, exists := s.requests[request.OrgID][request.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[request.OrgID][request.ID] = request
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, orgID id.OrgID, outboundID id.OutboundID) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[orgID][outboundID]
	if !ok {
		return Request{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) FindByCorrelation(_ context.Context, orgID id.OrgID, correlationID id.CorrelationID) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests[orgID] {
		if r.CorrelationID == correlationID {
			return r, nil
		}
	}
	return Request{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Transition(_ context.Context, orgID id.OrgID, outboundID id.OutboundID, event StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[orgID][outboundID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.Status != event.From {
		return sentinel.ErrInvalidState
	}
	s.events[outboundID] = append(s.events[outboundID], event)
	r.Status = event.To
	r.UpdatedAt = event.At
	s.requests[orgID][outboundID] = r
	return nil
}

func (s *InMemoryStore) IncrementRetry(_ context.Context, orgID id.OrgID, outboundID id.OutboundID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[orgID][outboundID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	r.RetryCount++
	s.requests[orgID][outboundID] = r
	return r.RetryCount, nil
}

func (s *InMemoryStore) HaltRetries(_ context.Context, orgID id.OrgID, outboundID id.OutboundID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[orgID][outboundID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.RetriesHalted = true
	s.requests[orgID][outboundID] = r
	return nil
}

func (s *InMemoryStore) ListOutstandingByDestination(_ context.Context, orgID id.OrgID, destinationValue string) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, r := range s.requests[orgID] {
		if r.Status.Outstanding() && r.DestinationValue == destinationValue {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListOutstanding(_ context.Context, orgID id.OrgID) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, r := range s.requests[orgID] {
		if r.Status.Outstanding() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListStatusEvents(_ context.Context, orgID id.OrgID, outboundID id.OutboundID) ([]StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.requests[orgID][outboundID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]StatusEvent{}, s.events[outboundID]...), nil
}
