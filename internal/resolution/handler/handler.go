// Package handler exposes the human-review side of destination resolution.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docrelay/internal/http/shared"
	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// Service defines the resolution operations the handler exposes.
type Service interface {
	ListRequiringReview(ctx context.Context, orgID id.OrgID) ([]resolution.History, error)
	PromoteToVerified(ctx context.Context, orgID id.OrgID, historyID id.HistoryID, confirmedValue, confirmedDepartment string) (resolution.DestinationContact, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the resolution review routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/resolution/reviews", h.handleListReviews)
	r.Post("/resolution/reviews/{historyID}/promote", h.handlePromote)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	histories, err := h.service.ListRequiringReview(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "review queue listing failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reviewsResponse{Reviews: toReviews(histories)})
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	historyID, err := id.ParseHistoryID(chi.URLParam(r, "historyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	contact, err := h.service.PromoteToVerified(ctx, requestcontext.OrgID(ctx), historyID, req.ConfirmedValue, req.ConfirmedDepartment)
	if err != nil {
		h.logger.ErrorContext(ctx, "promotion failed",
			"history_id", historyID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "destination promoted to verified",
		"history_id", historyID.String(),
		"contact_id", contact.ID.String(),
	)
	shared.WriteJSON(w, http.StatusOK, toContact(contact))
}
