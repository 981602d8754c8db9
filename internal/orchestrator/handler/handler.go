// Package handler exposes the delivery orchestration entrypoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docrelay/internal/http/shared"
	"docrelay/internal/orchestrator"
	"docrelay/internal/outbound"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// Service defines the orchestration operations the handler exposes.
type Service interface {
	Deliver(ctx context.Context, orgID id.OrgID, req orchestrator.DeliverRequest) orchestrator.Outcome
	LastCompletedPhase(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (string, error)
	DeliveryByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (outbound.Request, error)
	ListOutstanding(ctx context.Context, orgID id.OrgID) ([]outbound.Request, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the delivery routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/deliveries", h.handleDeliver)
	r.Get("/deliveries/outstanding", h.handleListOutstanding)
	r.Get("/deliveries/{correlationID}", h.handleFindDelivery)
	r.Get("/deliveries/{correlationID}/phase", h.handleLastPhase)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	domainReq := req.toDomain()
	if req.CorrelationID != "" {
		corrID, err := id.ParseCorrelationID(req.CorrelationID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		domainReq.CorrelationID = corrID
	}

	outcome := h.service.Deliver(ctx, requestcontext.OrgID(ctx), domainReq)
	h.logger.InfoContext(ctx, "delivery completed",
		"correlation_id", outcome.CorrelationID.String(),
		"outcome", string(outcome.Kind),
		"requires_review", outcome.RequiresHumanReview,
	)
	shared.WriteJSON(w, statusForOutcome(outcome.Kind), toOutcome(outcome))
}

func (h *Handler) handleFindDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, err := id.ParseCorrelationID(chi.URLParam(r, "correlationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	request, err := h.service.DeliveryByCorrelation(ctx, requestcontext.OrgID(ctx), correlationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDelivery(request))
}

func (h *Handler) handleListOutstanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.service.ListOutstanding(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	views := make([]deliveryView, 0, len(requests))
	for _, request := range requests {
		views = append(views, toDelivery(request))
	}
	shared.WriteJSON(w, http.StatusOK, deliveriesResponse{Deliveries: views})
}

func (h *Handler) handleLastPhase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID, err := id.ParseCorrelationID(chi.URLParam(r, "correlationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	phase, err := h.service.LastCompletedPhase(ctx, requestcontext.OrgID(ctx), correlationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, phaseResponse{
		CorrelationID: correlationID.String(),
		Phase:         phase,
	})
}

// statusForOutcome maps terminal outcome kinds onto HTTP status codes. The
// body always carries the full structured outcome regardless of status.
func statusForOutcome(kind orchestrator.OutcomeKind) int {
	switch kind {
	case orchestrator.OutcomeSuccess:
		return http.StatusOK
	case orchestrator.OutcomePolicyDenied:
		return http.StatusForbidden
	case orchestrator.OutcomeResolutionFailed:
		return http.StatusUnprocessableEntity
	case orchestrator.OutcomeTimingSuppressed:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
