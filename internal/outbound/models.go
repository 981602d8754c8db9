package outbound

import (
	"time"

	id "docrelay/pkg/domain"
)

// Direction of a delivery record. Inbound documents live in their own
// package; the direction field exists so reporting can union both sides.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
)

// Status is the current state of a delivery record. Transitions are recorded
// as appended StatusEvents, never as destructive rewrites; Status is the
// cached head of that event stream.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusSending          Status = "sending"
	StatusDelivered        Status = "delivered"
	StatusFailed           Status = "failed"
	StatusResponseReceived Status = "response_received"
)

// Outstanding reports whether the request still awaits its response and may
// be considered as a match candidate for inbound documents.
func (s Status) Outstanding() bool {
	return s == StatusQueued || s == StatusSending || s == StatusDelivered
}

// Metadata carries the request's workflow context plus the reconciliation
// signals inbound matching scores against.
type Metadata struct {
	DocumentType         string  `json:"document_type"`
	WorkflowState        string  `json:"workflow_state"`
	ResolutionLayer      int     `json:"resolution_layer"`
	ResolutionConfidence float64 `json:"resolution_confidence"`

	// ReferenceID is printed on the outbound document and echoed back by
	// most responders; an exact match is the strongest inbound signal.
	ReferenceID string `json:"reference_id,omitempty"`

	PatientName string `json:"patient_name,omitempty"`
	PatientDOB  string `json:"patient_dob,omitempty"`  // YYYY-MM-DD
	ServiceDate string `json:"service_date,omitempty"` // YYYY-MM-DD

	Extra map[string]string `json:"extra,omitempty"`
}

// Request is one attempt to deliver a document to a destination.
type Request struct {
	ID            id.OutboundID
	OrgID         id.OrgID
	CorrelationID id.CorrelationID

	Direction        Direction
	Status           Status
	DestinationValue string
	DestinationName  string
	ContactID        id.ContactID

	RetryCount    int
	MaxRetries    int
	RetriesHalted bool

	Metadata Metadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusEvent is one append-only status transition.
type StatusEvent struct {
	OutboundID id.OutboundID
	From       Status
	To         Status
	Reason     string
	At         time.Time
}
