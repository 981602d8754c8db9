package outbound

import (
	"context"

	id "docrelay/pkg/domain"
)

// Store persists delivery records and their status event streams. Transition
// appends the event and advances the cached head atomically; there is no
// plain update of Status.
type Store interface {
	Save(ctx context.Context, request Request) error
	Find(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) (Request, error)
	FindByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (Request, error)

	// Transition appends a status event and updates the cached status.
	Transition(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID, event StatusEvent) error

	// IncrementRetry bumps the retry counter and returns the new count.
	IncrementRetry(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) (int, error)

	// HaltRetries marks the request so no further automated sends occur.
	HaltRetries(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) error

	// ListOutstandingByDestination returns candidates still awaiting a
	// response that were sent to the given destination value.
	ListOutstandingByDestination(ctx context.Context, orgID id.OrgID, destinationValue string) ([]Request, error)

	// ListOutstanding returns all requests still awaiting a response.
	ListOutstanding(ctx context.Context, orgID id.OrgID) ([]Request, error)

	// ListStatusEvents returns the append-only transition history.
	ListStatusEvents(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) ([]StatusEvent, error)
}
