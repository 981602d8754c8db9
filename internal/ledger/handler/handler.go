// Package handler exposes the audit ledger's query and verify surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docrelay/internal/http/shared"
	"docrelay/internal/ledger"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// Service defines the ledger operations the handler exposes.
type Service interface {
	QueryByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]ledger.Entry, error)
	QueryByIncident(ctx context.Context, orgID id.OrgID, incidentID string) ([]ledger.Entry, error)
	QueryByClaim(ctx context.Context, orgID id.OrgID, claimID string) ([]ledger.Entry, error)
	Verify(entry ledger.Entry) bool
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/correlations/{correlationID}", h.handleByCorrelation)
	r.Get("/audit/incidents/{incidentID}", h.handleByIncident)
	r.Get("/audit/claims/{claimID}", h.handleByClaim)
	r.Get("/audit/correlations/{correlationID}/integrity", h.handleIntegrity)
}

func (h *Handler) handleByCorrelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, err := id.ParseCorrelationID(chi.URLParam(r, "correlationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.service.QueryByCorrelation(ctx, requestcontext.OrgID(ctx), correlationID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed",
			"correlation_id", correlationID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entriesResponse{Entries: toEntries(entries)})
}

func (h *Handler) handleByIncident(w http.ResponseWriter, r *http.Request) {
	h.handleByReference(w, r, func(ctx context.Context, orgID id.OrgID) ([]ledger.Entry, error) {
		return h.service.QueryByIncident(ctx, orgID, chi.URLParam(r, "incidentID"))
	})
}

func (h *Handler) handleByClaim(w http.ResponseWriter, r *http.Request) {
	h.handleByReference(w, r, func(ctx context.Context, orgID id.OrgID) ([]ledger.Entry, error) {
		return h.service.QueryByClaim(ctx, orgID, chi.URLParam(r, "claimID"))
	})
}

func (h *Handler) handleByReference(w http.ResponseWriter, r *http.Request, query func(context.Context, id.OrgID) ([]ledger.Entry, error)) {
	ctx := r.Context()
	entries, err := query(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "audit reference query failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entriesResponse{Entries: toEntries(entries)})
}

// handleIntegrity re-verifies every entry in a correlation's trail and
// reports the ids that fail. Detection only; nothing is mutated.
func (h *Handler) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, err := id.ParseCorrelationID(chi.URLParam(r, "correlationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.service.QueryByCorrelation(ctx, requestcontext.OrgID(ctx), correlationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if len(entries) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no entries for correlation id"))
		return
	}

	var failed []string
	for _, entry := range entries {
		if !h.service.Verify(entry) {
			failed = append(failed, entry.ID.String())
		}
	}
	shared.WriteJSON(w, http.StatusOK, integrityResponse{
		Verified:       len(failed) == 0,
		EntryCount:     len(entries),
		FailedEntryIDs: failed,
	})
}
