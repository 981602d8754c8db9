package domain

import (
	"github.com/google/uuid"

	dErrors "docrelay/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. Construct via the
// Parse* functions at trust boundaries; direct casting bypasses validation.
type (
	// OrgID scopes every entity. No entity is shared across organizations.
	OrgID uuid.UUID

	// CorrelationID ties together all audit entries and side effects belonging
	// to one orchestrated request.
	CorrelationID uuid.UUID

	// ContactID identifies a destination contact record.
	ContactID uuid.UUID

	// HistoryID identifies a persisted resolution history row.
	HistoryID uuid.UUID

	// EntryID identifies one audit ledger entry.
	EntryID uuid.UUID

	// OutboundID identifies one outbound delivery record.
	OutboundID uuid.UUID

	// DocumentID identifies one inbound document.
	DocumentID uuid.UUID

	// AttemptID identifies one scored match attempt.
	AttemptID uuid.UUID
)

func (i OrgID) IsNil() bool         { return uuid.UUID(i) == uuid.Nil }
func (i OrgID) String() string      { return uuid.UUID(i).String() }
func (i CorrelationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i CorrelationID) String() string {
	return uuid.UUID(i).String()
}
func (i ContactID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i ContactID) String() string  { return uuid.UUID(i).String() }
func (i HistoryID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i HistoryID) String() string  { return uuid.UUID(i).String() }
func (i EntryID) IsNil() bool       { return uuid.UUID(i) == uuid.Nil }
func (i EntryID) String() string    { return uuid.UUID(i).String() }
func (i OutboundID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i OutboundID) String() string { return uuid.UUID(i).String() }
func (i DocumentID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i DocumentID) String() string { return uuid.UUID(i).String() }
func (i AttemptID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i AttemptID) String() string  { return uuid.UUID(i).String() }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}

// ParseOrgID constructs an OrgID from external input.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrgID(uuid.Nil), err
	}
	return OrgID(u), nil
}

// ParseCorrelationID constructs a CorrelationID from external input.
func ParseCorrelationID(s string) (CorrelationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CorrelationID(uuid.Nil), err
	}
	return CorrelationID(u), nil
}

// ParseContactID constructs a ContactID from external input.
func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ContactID(uuid.Nil), err
	}
	return ContactID(u), nil
}

// ParseHistoryID constructs a HistoryID from external input.
func ParseHistoryID(s string) (HistoryID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return HistoryID(uuid.Nil), err
	}
	return HistoryID(u), nil
}

// ParseOutboundID constructs an OutboundID from external input.
func ParseOutboundID(s string) (OutboundID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OutboundID(uuid.Nil), err
	}
	return OutboundID(u), nil
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DocumentID(uuid.Nil), err
	}
	return DocumentID(u), nil
}

// NewCorrelationID generates a fresh correlation id for one orchestration.
func NewCorrelationID() CorrelationID { return CorrelationID(uuid.New()) }
