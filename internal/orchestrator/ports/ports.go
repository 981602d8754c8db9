// Package ports defines the external collaborators the orchestrator consults.
// Policy and timing rules live outside this module; the orchestrator only
// sequences them and records their verdicts.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/ports_mocks.go -package=mocks

import (
	"context"
	"time"

	id "docrelay/pkg/domain"
)

// PolicyStatus is the verdict of a policy evaluation. RequiresReview is
// distinct from denial: the rule set wants a human decision, not a refusal.
type PolicyStatus string

const (
	PolicyApproved       PolicyStatus = "approved"
	PolicyDenied         PolicyStatus = "denied"
	PolicyRequiresReview PolicyStatus = "requires_review"
)

// PolicyRequest carries what the policy rules evaluate.
type PolicyRequest struct {
	OrgID         id.OrgID
	DocumentType  string
	WorkflowState string
	Context       map[string]string
}

// PolicyDecision is logged verbatim into the ledger before any branching.
type PolicyDecision struct {
	Status          PolicyStatus
	DecisionID      string
	PolicyReference string
	Reasoning       string
	NextSteps       []string
}

// PolicyChecker evaluates whether a documentation request may proceed.
type PolicyChecker interface {
	Evaluate(ctx context.Context, req PolicyRequest) (PolicyDecision, error)
}

// TimingRequest asks whether sending is currently allowed.
type TimingRequest struct {
	CorrelationID     id.CorrelationID
	DocumentType      string
	RequestCreatedAt  time.Time
	ChannelConstraint string
}

// TimingDecision is the timing collaborator's verdict. Retry scheduling is
// owned entirely by that collaborator; nothing here computes timeouts.
type TimingDecision struct {
	CanSend                bool
	Reason                 string
	NextAllowedAt          *time.Time
	AttemptNumber          int
	EscalationLimitReached bool
}

// TimingGate decides whether a send is allowed now.
type TimingGate interface {
	CanSend(ctx context.Context, req TimingRequest) (TimingDecision, error)
}

// SendRequest is handed to the transport provider.
type SendRequest struct {
	CorrelationID    id.CorrelationID
	DestinationValue string
	DestinationName  string
	DocumentType     string
	Payload          []byte
}

// SendResult is the transport's opaque answer: success plus an optional
// provider-assigned tracking id.
type SendResult struct {
	Success    bool
	TrackingID string
}

// Transport is the opaque delivery channel.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
