package inbound

import (
	"context"
	"time"

	id "docrelay/pkg/domain"
)

// MatchUpdate is the mutable match slice of a document. Content fields are
// never part of an update; the original body reference and hash are fixed at
// receipt.
type MatchUpdate struct {
	OutboundID   id.OutboundID
	Confidence   float64
	Method       MatchMethod
	AutoAttached bool
	ReviewStatus ReviewStatus
	Reviewer     string
	ReviewedAt   *time.Time
}

// Store persists inbound documents and their match attempts. Documents are
// insert-then-annotate: SaveDocument happens exactly once, later phases only
// touch the classification, match, and review fields.
type Store interface {
	SaveDocument(ctx context.Context, doc InboundDocument) error
	FindDocument(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (InboundDocument, error)

	// FindByContentHash returns the earlier document carrying the same
	// content digest, or sentinel.ErrNotFound.
	FindByContentHash(ctx context.Context, orgID id.OrgID, contentHash string) (InboundDocument, error)

	UpdateClassification(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, docType string, confidence float64, method ClassificationMethod) error
	UpdateMatch(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, update MatchUpdate) error

	SaveAttempts(ctx context.Context, attempts []MatchAttempt) error
	ListAttemptsByDocument(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) ([]MatchAttempt, error)

	ListPendingReview(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error)
	ListManualQueue(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error)
}
