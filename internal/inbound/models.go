package inbound

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "docrelay/pkg/domain"
)

// ClassificationMethod records how a document's type was determined.
type ClassificationMethod string

const (
	ClassifiedByKeyword ClassificationMethod = "keyword"
	ClassifiedManually  ClassificationMethod = "manual"
	ClassifiedNone      ClassificationMethod = "none"
)

// MatchMethod records how a document was attached to an outbound request.
type MatchMethod string

const (
	MatchAuto   MatchMethod = "auto"
	MatchManual MatchMethod = "manual"
	MatchNone   MatchMethod = "none"
)

// ReviewStatus is where a document sits in the reconciliation workflow.
type ReviewStatus string

const (
	// ReviewNone: matched automatically or not yet processed.
	ReviewNone ReviewStatus = "none"
	// ReviewPending: a candidate scored in the review band and a human must
	// confirm or reject the proposed match.
	ReviewPending ReviewStatus = "pending_review"
	// ReviewManualQueue: no candidate scored high enough; a human must find
	// the owning request from scratch.
	ReviewManualQueue ReviewStatus = "manual_queue"
	// ReviewDone: a human resolved the document.
	ReviewDone ReviewStatus = "reviewed"
)

// DocTypeUnknown is the classification fallback when no keyword set scores
// above the minimum.
const DocTypeUnknown = "unknown"

// InboundDocument is one received document. The content hash, size, and
// sender are fixed at receipt; classification and match fields are filled by
// later phases but never overwrite the original content reference.
type InboundDocument struct {
	ID    id.DocumentID
	OrgID id.OrgID

	SenderIdentifier string
	ContentHash      string
	SizeBytes        int
	PageCount        int
	ProviderMetadata map[string]string

	DocumentType             string
	ClassificationConfidence float64
	ClassificationMethod     ClassificationMethod

	MatchedOutboundID id.OutboundID
	MatchConfidence   float64
	MatchMethod       MatchMethod
	AutoAttached      bool

	ReviewStatus ReviewStatus
	Reviewer     string
	ReviewedAt   *time.Time

	ReceivedAt time.Time
}

// MatchAttempt is one scored pairing between an inbound document and an
// outstanding outbound request. Every candidate considered is persisted,
// winner or not, so a reviewer can see why the scorer decided as it did.
type MatchAttempt struct {
	ID            id.AttemptID
	OrgID         id.OrgID
	DocumentID    id.DocumentID
	OutboundID    id.OutboundID
	CorrelationID id.CorrelationID

	ReferenceIDScore     float64
	SenderScore          float64
	NameScore            float64
	DOBBonus             float64
	ServiceDateScore     float64
	DestinationNameScore float64
	TotalScore           float64

	Selected  bool
	CreatedAt time.Time
}

// Result summarizes one Receive (or ManualMatch) call for the caller.
type Result struct {
	Document  InboundDocument
	Duplicate bool

	Matched        bool
	AutoAttached   bool
	RetriesHalted  bool
	RequiresReview bool

	AttemptsPersisted int
}

// HashContent computes the immutable content digest for a document body.
func HashContent(documentBytes []byte) string {
	sum := sha256.Sum256(documentBytes)
	return hex.EncodeToString(sum[:])
}
