package resolution

import (
	"context"
	"time"

	id "docrelay/pkg/domain"
)

// Store is the persistence boundary for destination contacts and resolution
// histories. Contacts are never deleted; supersession marks the old record
// inactive and links its replacement. History rows are immutable except for
// the review annotation fields, which AnnotateReview alone may set.
type Store interface {
	SaveContact(ctx context.Context, contact DestinationContact) error
	FindContact(ctx context.Context, orgID id.OrgID, contactID id.ContactID) (DestinationContact, error)

	// Supersede marks old inactive with its replacement linked. The record
	// itself is otherwise left untouched.
	Supersede(ctx context.Context, orgID id.OrgID, oldID, newID id.ContactID) error

	// ListActiveByName returns active contacts for a layer matching the name
	// exactly (case-insensitive).
	ListActiveByName(ctx context.Context, orgID id.OrgID, name string, layer AuthorityLayer) ([]DestinationContact, error)

	// ListActiveByIdentifier returns active contacts for a layer where any
	// alternate identifier equals the value.
	ListActiveByIdentifier(ctx context.Context, orgID id.OrgID, identifier string, layer AuthorityLayer) ([]DestinationContact, error)

	// ListActiveByAnyIdentifier is the layer-agnostic variant used by inbound
	// reconciliation to locate the sender regardless of authority source.
	ListActiveByAnyIdentifier(ctx context.Context, orgID id.OrgID, identifier string) ([]DestinationContact, error)

	// ListActiveByLayer returns all active contacts in a layer, for fuzzy
	// matching.
	ListActiveByLayer(ctx context.Context, orgID id.OrgID, layer AuthorityLayer) ([]DestinationContact, error)

	// FindMostRecentSuccess returns the active contact for the name with the
	// latest successful delivery, within a layer.
	FindMostRecentSuccess(ctx context.Context, orgID id.OrgID, name string, layer AuthorityLayer) (DestinationContact, error)

	// RecordDeliveryOutcome bumps the success or failure counter and, on
	// success, advances LastSuccessAt.
	RecordDeliveryOutcome(ctx context.Context, orgID id.OrgID, contactID id.ContactID, success bool, at time.Time) error

	SaveHistory(ctx context.Context, history History) error
	FindHistory(ctx context.Context, orgID id.OrgID, historyID id.HistoryID) (History, error)
	ListHistoriesRequiringReview(ctx context.Context, orgID id.OrgID) ([]History, error)

	// AnnotateReview sets the review annotation fields on a history row.
	AnnotateReview(ctx context.Context, orgID id.OrgID, historyID id.HistoryID, annotation ReviewAnnotation) error
}

// ReviewAnnotation is the only mutation a history row accepts after creation.
type ReviewAnnotation struct {
	Reviewer            string
	ConfirmedValue      string
	ConfirmedDepartment string
	PromotedContactID   id.ContactID
}
