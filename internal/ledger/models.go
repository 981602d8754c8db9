package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	id "docrelay/pkg/domain"
)

// ActionType classifies what a ledger entry records within a request's
// lifecycle. One entry is appended per phase, exactly once.
type ActionType string

const (
	ActionPolicyCheck ActionType = "policy_check"
	ActionResolution  ActionType = "resolution"
	ActionSendAttempt ActionType = "send_attempt"
	ActionReceive     ActionType = "receive"
	ActionReview      ActionType = "review"
	ActionSuppression ActionType = "suppression"
)

var validActions = map[ActionType]bool{
	ActionPolicyCheck: true,
	ActionResolution:  true,
	ActionSendAttempt: true,
	ActionReceive:     true,
	ActionReview:      true,
	ActionSuppression: true,
}

// IsValid checks the action against the supported enum values.
func (a ActionType) IsValid() bool { return validActions[a] }

// ReferenceKind names the domain record a ledger entry relates to.
type ReferenceKind string

const (
	RefIncident ReferenceKind = "incident"
	RefClaim    ReferenceKind = "claim"
	RefRecord   ReferenceKind = "record"
)

// Reference is one domain foreign key attached to an entry so downstream
// compliance queries can pivot by incident or claim.
type Reference struct {
	Kind  ReferenceKind `json:"kind"`
	Value string        `json:"value"`
}

// Detail is the structured outcome payload of an entry. Keys are versioned
// per action type; unrecognized provider metadata goes under open keys.
type Detail map[string]any

// Recognized detail keys per action type. Handlers and consumers should use
// these rather than raw strings.
const (
	DetailPolicyStatus    = "policy_status"            // policy_check: approved|denied|requires_review
	DetailPolicyReference = "policy_reference"         // policy_check: rule citation
	DetailPolicyReasoning = "policy_reasoning"         // policy_check
	DetailResolvedValue   = "resolved_value"           // resolution: destination value or ""
	DetailSourceLayer     = "source_layer"             // resolution: 1..4
	DetailConfidence      = "confidence"               // resolution, receive
	DetailRequiresReview  = "requires_review"          // resolution
	DetailSuppressReason  = "suppression_reason"       // suppression
	DetailNextAllowedAt   = "next_allowed_at"          // suppression: RFC3339
	DetailAttemptNumber   = "attempt_number"           // suppression, send_attempt
	DetailEscalationHit   = "escalation_limit_reached" // suppression
	DetailSendSuccess     = "send_success"             // send_attempt
	DetailTrackingID      = "tracking_id"              // send_attempt: provider-assigned
	DetailDurationMS      = "duration_ms"              // send_attempt
	DetailContentHash     = "content_hash"             // receive
	DetailDocumentType    = "document_type"            // receive, policy_check
	DetailMatchMethod     = "match_method"             // receive, review
	DetailErrorKind       = "error_kind"               // any: failure classification
)

// Entry is one immutable record of an action taken during request processing.
// It is created exactly once per phase and never updated or deleted; a
// correction is a new entry whose Corrects field points at the original.
type Entry struct {
	ID            id.EntryID
	OrgID         id.OrgID
	CorrelationID id.CorrelationID
	Action        ActionType
	Actor         string
	Outcome       string
	Detail        Detail
	References    []Reference

	// PolicyDecisionID links the entry to the policy decision that allowed
	// (or denied) the action. Part of the integrity hash.
	PolicyDecisionID string

	// Corrects points at a prior entry this one amends. The original is left
	// untouched.
	Corrects id.EntryID

	CreatedAt time.Time

	// Hash is the integrity digest over the entry's immutable identity
	// fields. Any post-write mutation of a hashed field makes Verify fail.
	Hash string
}

// ComputeHash derives the integrity digest from the entry's immutable
// identity fields. The input layout is fixed; changing it invalidates every
// stored hash, so treat it as a wire format.
func (e *Entry) ComputeHash() string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s",
		e.CorrelationID.String(),
		e.Action,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.Outcome,
		e.PolicyDecisionID,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the hash from the entry's current fields and compares it
// with the stored digest.
func (e *Entry) Verify() bool {
	return e.Hash != "" && e.Hash == e.ComputeHash()
}
