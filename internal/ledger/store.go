package ledger

import (
	"context"

	id "docrelay/pkg/domain"
)

// Store is the append-only persistence boundary for ledger entries. There is
// deliberately no update or delete operation; corrections are new entries.
// Implementations must return results in chronological ascending order.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]Entry, error)
	ListByReference(ctx context.Context, orgID id.OrgID, kind ReferenceKind, value string) ([]Entry, error)
}
