package handler

import (
	"time"

	"docrelay/internal/inbound"
)

type receiveRequest struct {
	SenderIdentifier string            `json:"sender_identifier"`
	Content          string            `json:"content"` // base64
	PageCount        int               `json:"page_count"`
	ProviderMetadata map[string]string `json:"provider_metadata,omitempty"`
}

type manualMatchRequest struct {
	OutboundID string `json:"outbound_id"`
}

type documentView struct {
	ID                       string     `json:"id"`
	SenderIdentifier         string     `json:"sender_identifier"`
	ContentHash              string     `json:"content_hash"`
	SizeBytes                int        `json:"size_bytes"`
	PageCount                int        `json:"page_count"`
	DocumentType             string     `json:"document_type"`
	ClassificationConfidence float64    `json:"classification_confidence"`
	ClassificationMethod     string     `json:"classification_method"`
	MatchedOutboundID        string     `json:"matched_outbound_id,omitempty"`
	MatchConfidence          float64    `json:"match_confidence"`
	MatchMethod              string     `json:"match_method"`
	AutoAttached             bool       `json:"auto_attached"`
	ReviewStatus             string     `json:"review_status"`
	Reviewer                 string     `json:"reviewer,omitempty"`
	ReviewedAt               *time.Time `json:"reviewed_at,omitempty"`
	ReceivedAt               time.Time  `json:"received_at"`
}

type attemptView struct {
	ID                   string  `json:"id"`
	OutboundID           string  `json:"outbound_id"`
	CorrelationID        string  `json:"correlation_id"`
	ReferenceIDScore     float64 `json:"reference_id_score"`
	SenderScore          float64 `json:"sender_score"`
	NameScore            float64 `json:"name_score"`
	DOBBonus             float64 `json:"dob_bonus"`
	ServiceDateScore     float64 `json:"service_date_score"`
	DestinationNameScore float64 `json:"destination_name_score"`
	TotalScore           float64 `json:"total_score"`
	Selected             bool    `json:"selected"`
}

type resultResponse struct {
	Document          documentView `json:"document"`
	Duplicate         bool         `json:"duplicate"`
	Matched           bool         `json:"matched"`
	AutoAttached      bool         `json:"auto_attached"`
	RetriesHalted     bool         `json:"retries_halted"`
	RequiresReview    bool         `json:"requires_review"`
	AttemptsPersisted int          `json:"attempts_persisted"`
}

type documentsResponse struct {
	Documents []documentView `json:"documents"`
}

type attemptsResponse struct {
	Attempts []attemptView `json:"attempts"`
}

func toDocument(doc inbound.InboundDocument) documentView {
	view := documentView{
		ID:                       doc.ID.String(),
		SenderIdentifier:         doc.SenderIdentifier,
		ContentHash:              doc.ContentHash,
		SizeBytes:                doc.SizeBytes,
		PageCount:                doc.PageCount,
		DocumentType:             doc.DocumentType,
		ClassificationConfidence: doc.ClassificationConfidence,
		ClassificationMethod:     string(doc.ClassificationMethod),
		MatchConfidence:          doc.MatchConfidence,
		MatchMethod:              string(doc.MatchMethod),
		AutoAttached:             doc.AutoAttached,
		ReviewStatus:             string(doc.ReviewStatus),
		Reviewer:                 doc.Reviewer,
		ReviewedAt:               doc.ReviewedAt,
		ReceivedAt:               doc.ReceivedAt,
	}
	if !doc.MatchedOutboundID.IsNil() {
		view.MatchedOutboundID = doc.MatchedOutboundID.String()
	}
	return view
}

func toDocuments(docs []inbound.InboundDocument) []documentView {
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, toDocument(doc))
	}
	return views
}

func toAttempts(attempts []inbound.MatchAttempt) []attemptView {
	views := make([]attemptView, 0, len(attempts))
	for _, attempt := range attempts {
		views = append(views, attemptView{
			ID:                   attempt.ID.String(),
			OutboundID:           attempt.OutboundID.String(),
			CorrelationID:        attempt.CorrelationID.String(),
			ReferenceIDScore:     attempt.ReferenceIDScore,
			SenderScore:          attempt.SenderScore,
			NameScore:            attempt.NameScore,
			DOBBonus:             attempt.DOBBonus,
			ServiceDateScore:     attempt.ServiceDateScore,
			DestinationNameScore: attempt.DestinationNameScore,
			TotalScore:           attempt.TotalScore,
			Selected:             attempt.Selected,
		})
	}
	return views
}

func toResult(result inbound.Result) resultResponse {
	return resultResponse{
		Document:          toDocument(result.Document),
		Duplicate:         result.Duplicate,
		Matched:           result.Matched,
		AutoAttached:      result.AutoAttached,
		RetriesHalted:     result.RetriesHalted,
		RequiresReview:    result.RequiresReview,
		AttemptsPersisted: result.AttemptsPersisted,
	}
}
