package handler

import (
	"time"

	"docrelay/internal/ledger"
)

type entryView struct {
	ID               string             `json:"id"`
	CorrelationID    string             `json:"correlation_id"`
	Action           string             `json:"action"`
	Actor            string             `json:"actor,omitempty"`
	Outcome          string             `json:"outcome"`
	Detail           ledger.Detail      `json:"detail,omitempty"`
	References       []ledger.Reference `json:"references,omitempty"`
	PolicyDecisionID string             `json:"policy_decision_id,omitempty"`
	Corrects         string             `json:"corrects,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Hash             string             `json:"hash"`
}

type entriesResponse struct {
	Entries []entryView `json:"entries"`
}

type integrityResponse struct {
	Verified       bool     `json:"verified"`
	EntryCount     int      `json:"entry_count"`
	FailedEntryIDs []string `json:"failed_entry_ids,omitempty"`
}

func toEntries(entries []ledger.Entry) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		view := entryView{
			ID:               e.ID.String(),
			CorrelationID:    e.CorrelationID.String(),
			Action:           string(e.Action),
			Actor:            e.Actor,
			Outcome:          e.Outcome,
			Detail:           e.Detail,
			References:       e.References,
			PolicyDecisionID: e.PolicyDecisionID,
			CreatedAt:        e.CreatedAt,
			Hash:             e.Hash,
		}
		if !e.Corrects.IsNil() {
			view.Corrects = e.Corrects.String()
		}
		views = append(views, view)
	}
	return views
}
