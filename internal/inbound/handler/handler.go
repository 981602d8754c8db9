// Package handler exposes inbound document receipt and reconciliation.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docrelay/internal/http/shared"
	"docrelay/internal/inbound"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// Service defines the inbound operations the handler exposes.
type Service interface {
	Receive(ctx context.Context, orgID id.OrgID, senderIdentifier string, documentBytes []byte, pageCount int, providerMetadata map[string]string) (inbound.Result, error)
	ManualMatch(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, outboundID id.OutboundID) (inbound.Result, error)
	ListPendingReview(ctx context.Context, orgID id.OrgID) ([]inbound.InboundDocument, error)
	ListManualQueue(ctx context.Context, orgID id.OrgID) ([]inbound.InboundDocument, error)
	ListAttempts(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) ([]inbound.MatchAttempt, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the inbound routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/inbound/documents", h.handleReceive)
	r.Post("/inbound/documents/{documentID}/match", h.handleManualMatch)
	r.Get("/inbound/documents/{documentID}/attempts", h.handleListAttempts)
	r.Get("/inbound/reviews", h.handleListReviews)
	r.Get("/inbound/manual-queue", h.handleListManualQueue)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req receiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	documentBytes, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content must be base64 encoded"))
		return
	}

	result, err := h.service.Receive(ctx, requestcontext.OrgID(ctx), req.SenderIdentifier, documentBytes, req.PageCount, req.ProviderMetadata)
	if err != nil {
		h.logger.ErrorContext(ctx, "inbound receive failed",
			"sender", req.SenderIdentifier,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	shared.WriteJSON(w, status, toResult(result))
}

func (h *Handler) handleManualMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req manualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	outboundID, err := id.ParseOutboundID(req.OutboundID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.service.ManualMatch(ctx, requestcontext.OrgID(ctx), documentID, outboundID)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual match failed",
			"document_id", documentID.String(),
			"outbound_id", outboundID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResult(result))
}

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	attempts, err := h.service.ListAttempts(ctx, requestcontext.OrgID(ctx), documentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, attemptsResponse{Attempts: toAttempts(attempts)})
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	h.handleListDocuments(w, r, h.service.ListPendingReview)
}

func (h *Handler) handleListManualQueue(w http.ResponseWriter, r *http.Request) {
	h.handleListDocuments(w, r, h.service.ListManualQueue)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request, list func(context.Context, id.OrgID) ([]inbound.InboundDocument, error)) {
	ctx := r.Context()
	docs, err := list(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "inbound queue listing failed", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, documentsResponse{Documents: toDocuments(docs)})
}
