package handler

import (
	"time"

	"docrelay/internal/orchestrator"
	"docrelay/internal/outbound"
)

type deliverRequest struct {
	CorrelationID     string   `json:"correlation_id,omitempty"`
	DestinationName   string   `json:"destination_name"`
	Address           string   `json:"address,omitempty"`
	Identifier        string   `json:"identifier,omitempty"`
	DocumentType      string   `json:"document_type"`
	WorkflowState     string   `json:"workflow_state,omitempty"`
	ChannelConstraint string   `json:"channel_constraint,omitempty"`
	ReferenceID       string   `json:"reference_id,omitempty"`
	PatientName       string   `json:"patient_name,omitempty"`
	PatientDOB        string   `json:"patient_dob,omitempty"`
	ServiceDate       string   `json:"service_date,omitempty"`
	IncidentID        string   `json:"incident_id,omitempty"`
	ClaimID           string   `json:"claim_id,omitempty"`
	RecordIDs         []string `json:"record_ids,omitempty"`
	Payload           []byte   `json:"payload,omitempty"`
}

func (r deliverRequest) toDomain() orchestrator.DeliverRequest {
	return orchestrator.DeliverRequest{
		DestinationName:   r.DestinationName,
		Address:           r.Address,
		Identifier:        r.Identifier,
		DocumentType:      r.DocumentType,
		WorkflowState:     r.WorkflowState,
		ChannelConstraint: r.ChannelConstraint,
		ReferenceID:       r.ReferenceID,
		PatientName:       r.PatientName,
		PatientDOB:        r.PatientDOB,
		ServiceDate:       r.ServiceDate,
		IncidentID:        r.IncidentID,
		ClaimID:           r.ClaimID,
		RecordIDs:         r.RecordIDs,
		Payload:           r.Payload,
	}
}

type resolutionView struct {
	Resolved            bool    `json:"resolved"`
	Value               string  `json:"value,omitempty"`
	SourceLayer         int     `json:"source_layer,omitempty"`
	Confidence          float64 `json:"confidence"`
	RequiresHumanReview bool    `json:"requires_human_review"`
	HistoryID           string  `json:"history_id,omitempty"`
}

type outcomeResponse struct {
	Kind                string          `json:"kind"`
	CorrelationID       string          `json:"correlation_id"`
	OutboundID          string          `json:"outbound_id,omitempty"`
	Message             string          `json:"message,omitempty"`
	NextSteps           []string        `json:"next_steps,omitempty"`
	RequiresHumanReview bool            `json:"requires_human_review"`
	PolicyAllowed       bool            `json:"policy_allowed"`
	ResolutionSucceeded bool            `json:"resolution_succeeded"`
	TimingAllowed       bool            `json:"timing_allowed"`
	Resolution          *resolutionView `json:"resolution,omitempty"`
	AuditEntryIDs       []string        `json:"audit_entry_ids"`
}

type phaseResponse struct {
	CorrelationID string `json:"correlation_id"`
	Phase         string `json:"phase"`
}

type deliveryView struct {
	ID               string    `json:"id"`
	CorrelationID    string    `json:"correlation_id"`
	Status           string    `json:"status"`
	DestinationName  string    `json:"destination_name"`
	DestinationValue string    `json:"destination_value,omitempty"`
	DocumentType     string    `json:"document_type,omitempty"`
	ReferenceID      string    `json:"reference_id,omitempty"`
	RetryCount       int       `json:"retry_count"`
	MaxRetries       int       `json:"max_retries"`
	RetriesHalted    bool      `json:"retries_halted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type deliveriesResponse struct {
	Deliveries []deliveryView `json:"deliveries"`
}

func toDelivery(request outbound.Request) deliveryView {
	return deliveryView{
		ID:               request.ID.String(),
		CorrelationID:    request.CorrelationID.String(),
		Status:           string(request.Status),
		DestinationName:  request.DestinationName,
		DestinationValue: request.DestinationValue,
		DocumentType:     request.Metadata.DocumentType,
		ReferenceID:      request.Metadata.ReferenceID,
		RetryCount:       request.RetryCount,
		MaxRetries:       request.MaxRetries,
		RetriesHalted:    request.RetriesHalted,
		CreatedAt:        request.CreatedAt,
		UpdatedAt:        request.UpdatedAt,
	}
}

func toOutcome(out orchestrator.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Kind:                string(out.Kind),
		CorrelationID:       out.CorrelationID.String(),
		Message:             out.Message,
		NextSteps:           out.NextSteps,
		RequiresHumanReview: out.RequiresHumanReview,
		PolicyAllowed:       out.PolicyAllowed,
		ResolutionSucceeded: out.ResolutionSucceeded,
		TimingAllowed:       out.TimingAllowed,
		AuditEntryIDs:       make([]string, 0, len(out.AuditEntryIDs)),
	}
	if !out.OutboundID.IsNil() {
		resp.OutboundID = out.OutboundID.String()
	}
	for _, entryID := range out.AuditEntryIDs {
		resp.AuditEntryIDs = append(resp.AuditEntryIDs, entryID.String())
	}
	if out.Resolution != nil {
		view := resolutionView{
			Resolved:            out.Resolution.Resolved,
			Value:               out.Resolution.Value,
			SourceLayer:         out.Resolution.SourceLayer,
			Confidence:          out.Resolution.Confidence,
			RequiresHumanReview: out.Resolution.RequiresHumanReview,
		}
		if !out.Resolution.HistoryID.IsNil() {
			view.HistoryID = out.Resolution.HistoryID.String()
		}
		resp.Resolution = &view
	}
	return resp
}
