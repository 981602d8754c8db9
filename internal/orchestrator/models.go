package orchestrator

import (
	id "docrelay/pkg/domain"
)

// Phase names, recorded in spans and guard keys.
const (
	PhasePolicyCheck   = "policy_check"
	PhaseResolution    = "resolution"
	PhaseTimingCheck   = "timing_check"
	PhaseRecordCreated = "record_created"
	PhaseSendAttempt   = "send_attempt"
)

// OutcomeKind is the single terminal bucket of one orchestration. Exactly one
// is returned per call.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomePolicyDenied     OutcomeKind = "policy_denied"
	OutcomeResolutionFailed OutcomeKind = "resolution_failed"
	OutcomeTimingSuppressed OutcomeKind = "timing_suppressed"
	OutcomeError            OutcomeKind = "error"
)

// DeliverRequest is one outbound documentation request.
type DeliverRequest struct {
	// CorrelationID is the caller-supplied idempotency key. Retries must
	// reuse it so the send guard refuses a second transmission. Zero means
	// the orchestrator mints a fresh one.
	CorrelationID id.CorrelationID

	DestinationName string
	Address         string
	Identifier      string
	DocumentType    string
	WorkflowState   string

	// Channel constraint forwarded to the timing collaborator (e.g. a
	// business-hours-only destination).
	ChannelConstraint string

	// Reconciliation signals carried onto the delivery record.
	ReferenceID string
	PatientName string
	PatientDOB  string
	ServiceDate string

	// Domain records this request relates to, attached to every ledger
	// entry.
	IncidentID string
	ClaimID    string
	RecordIDs  []string

	Payload []byte
}

// ResolutionSummary mirrors the resolution result fields a caller needs
// without importing the resolution package.
type ResolutionSummary struct {
	Resolved            bool
	Value               string
	SourceLayer         int
	Confidence          float64
	RequiresHumanReview bool
	HistoryID           id.HistoryID
}

// Outcome is the structured terminal result of one orchestration. Every
// path, including faults, returns one; no raw error escapes Deliver. The
// AuditEntryIDs list is complete for the phases that ran, so a crash or
// failure still leaves an inspectable trail.
type Outcome struct {
	Kind          OutcomeKind
	CorrelationID id.CorrelationID
	OutboundID    id.OutboundID

	Message             string
	NextSteps           []string
	RequiresHumanReview bool

	PolicyAllowed       bool
	ResolutionSucceeded bool
	TimingAllowed       bool

	Resolution *ResolutionSummary

	AuditEntryIDs []id.EntryID
}

// FailureType classifies a delivery failure for HandleFailure.
type FailureType string

const (
	FailureInvalidDestination FailureType = "invalid_destination"
	FailureTransmission       FailureType = "transmission_failure"
	FailureUnmatchedResponse  FailureType = "unmatched_response"
	FailureGeneric            FailureType = "generic"
)

// Recommendation is HandleFailure's advisory output. It never executes the
// recommended actions; a separate human- or policy-driven call must.
type Recommendation struct {
	FailureType FailureType
	Retryable   bool
	Escalate    bool
	NextSteps   []string
}

// transmissionRetryCap is the hard retry ceiling after which failures are
// escalated to a human instead of retried.
const transmissionRetryCap = 3
