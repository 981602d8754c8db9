package handler

import (
	"time"

	"docrelay/internal/resolution"
)

type promoteRequest struct {
	ConfirmedValue      string `json:"confirmed_value"`
	ConfirmedDepartment string `json:"confirmed_department"`
}

type reviewView struct {
	ID              string    `json:"id"`
	CorrelationID   string    `json:"correlation_id"`
	DestinationName string    `json:"destination_name"`
	DocumentType    string    `json:"document_type,omitempty"`
	Resolved        bool      `json:"resolved"`
	Value           string    `json:"value,omitempty"`
	SourceLayer     int       `json:"source_layer,omitempty"`
	Confidence      float64   `json:"confidence"`
	Department      string    `json:"department,omitempty"`
	Conflicts       []string  `json:"conflicts,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type reviewsResponse struct {
	Reviews []reviewView `json:"reviews"`
}

type contactView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FaxNumber  string `json:"fax_number"`
	Department string `json:"department,omitempty"`
	Layer      int    `json:"layer"`
	Verified   bool   `json:"verified"`
}

func toReviews(histories []resolution.History) []reviewView {
	views := make([]reviewView, 0, len(histories))
	for _, hist := range histories {
		views = append(views, reviewView{
			ID:              hist.ID.String(),
			CorrelationID:   hist.CorrelationID.String(),
			DestinationName: hist.DestinationName,
			DocumentType:    hist.DocumentType,
			Resolved:        hist.Resolved,
			Value:           hist.Value,
			SourceLayer:     int(hist.SourceLayer),
			Confidence:      hist.Confidence,
			Department:      hist.Department,
			Conflicts:       hist.Conflicts,
			CreatedAt:       hist.CreatedAt,
		})
	}
	return views
}

func toContact(contact resolution.DestinationContact) contactView {
	return contactView{
		ID:         contact.ID.String(),
		Name:       contact.Name,
		FaxNumber:  contact.FaxNumber,
		Department: contact.Department,
		Layer:      int(contact.Layer),
		Verified:   contact.Verified,
	}
}
