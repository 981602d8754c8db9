package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docrelay/internal/ledger"
	orchmetrics "docrelay/internal/orchestrator/metrics"
	"docrelay/internal/orchestrator/ports"
	"docrelay/internal/outbound"
	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/platform/sentinel"
	platformstrings "docrelay/pkg/platform/strings"
	"docrelay/pkg/requestcontext"
)

// Resolver is the slice of the resolution service the orchestrator drives.
type Resolver interface {
	Resolve(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID, query resolution.Query) (resolution.Result, id.HistoryID, error)
	RecordDeliveryOutcome(ctx context.Context, orgID id.OrgID, contactID id.ContactID, success bool) error
}

// Ledger is the slice of the audit ledger the orchestrator writes to.
type Ledger interface {
	Append(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
	QueryByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]ledger.Entry, error)
}

// Service sequences one outbound request through policy, resolution, timing,
// record creation, and the send attempt. Every phase is logged before its
// branch is taken, and every terminal outcome carries the ordered audit entry
// ids produced so far; no path completes without a queryable trail.
type Service struct {
	policy    ports.PolicyChecker
	timing    ports.TimingGate
	transport ports.Transport
	resolver  Resolver
	ledger    Ledger
	requests  outbound.Store
	guard     SendGuard
	logger    *slog.Logger
	metrics   *orchmetrics.Metrics
	tracer    trace.Tracer

	maxRetries int
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *orchmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSendGuard replaces the default in-memory replay guard.
func WithSendGuard(g SendGuard) Option {
	return func(s *Service) { s.guard = g }
}

func NewService(
	policy ports.PolicyChecker,
	timing ports.TimingGate,
	transport ports.Transport,
	resolver Resolver,
	auditLedger Ledger,
	requests outbound.Store,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		policy:     policy,
		timing:     timing,
		transport:  transport,
		resolver:   resolver,
		ledger:     auditLedger,
		requests:   requests,
		guard:      NewInMemoryGuard(),
		logger:     logger,
		tracer:     otel.Tracer("docrelay/orchestrator"),
		maxRetries: transmissionRetryCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run accumulates per-orchestration state shared by the phase methods.
type run struct {
	orgID      id.OrgID
	corrID     id.CorrelationID
	req        DeliverRequest
	references []ledger.Reference
	entryIDs   []id.EntryID

	lastResolution *ResolutionSummary
}

// Deliver executes the full state machine for one request. The caller's
// correlation id is honored when present so a retry contends on the same
// send-guard key; otherwise a fresh one is minted. It never returns a raw
// error: faults become an OutcomeError with requiresHumanReview set and the
// trail collected so far.
func (s *Service) Deliver(ctx context.Context, orgID id.OrgID, req DeliverRequest) (outcome Outcome) {
	corrID := req.CorrelationID
	if corrID.IsNil() {
		corrID = id.NewCorrelationID()
	}
	r := &run{
		orgID:      orgID,
		corrID:     corrID,
		req:        req,
		references: buildReferences(req),
	}

	ctx, span := s.tracer.Start(ctx, "orchestrator.Deliver",
		trace.WithAttributes(
			attribute.String("correlation_id", r.corrID.String()),
			attribute.String("document_type", req.DocumentType),
		))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "orchestration panic",
				"correlation_id", r.corrID.String(),
				"panic", rec,
			)
			outcome = s.systemError(r, fmt.Sprintf("unexpected fault: %v", rec))
		}
		s.metrics.IncOutcome(string(outcome.Kind))
		span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	}()

	if req.DestinationName == "" || req.DocumentType == "" {
		return s.systemError(r, "destination name and document type are required")
	}

	decision, outcome, done := s.policyPhase(ctx, r)
	if done {
		return outcome
	}

	result, outcome, done := s.resolutionPhase(ctx, r, decision)
	if done {
		return outcome
	}

	timing, outcome, done := s.timingPhase(ctx, r, decision)
	if done {
		return outcome
	}

	return s.sendPhase(ctx, r, decision, result, timing)
}

// policyPhase evaluates policy and logs the verdict before branching.
func (s *Service) policyPhase(ctx context.Context, r *run) (ports.PolicyDecision, Outcome, bool) {
	ctx, span := s.tracer.Start(ctx, "orchestrator."+PhasePolicyCheck)
	defer span.End()

	decision, err := s.policy.Evaluate(ctx, ports.PolicyRequest{
		OrgID:         r.orgID,
		DocumentType:  r.req.DocumentType,
		WorkflowState: r.req.WorkflowState,
	})
	if err != nil {
		s.appendEntry(ctx, r, ledger.Entry{
			Action:  ledger.ActionPolicyCheck,
			Outcome: "error",
			Detail:  ledger.Detail{ledger.DetailErrorKind: "system_error", "error": err.Error()},
		})
		return decision, s.systemError(r, "policy collaborator unavailable"), true
	}

	if !s.appendEntry(ctx, r, ledger.Entry{
		Action:           ledger.ActionPolicyCheck,
		Outcome:          string(decision.Status),
		PolicyDecisionID: decision.DecisionID,
		Detail: ledger.Detail{
			ledger.DetailPolicyStatus:    string(decision.Status),
			ledger.DetailPolicyReference: decision.PolicyReference,
			ledger.DetailPolicyReasoning: decision.Reasoning,
			ledger.DetailDocumentType:    r.req.DocumentType,
		},
	}) {
		return decision, s.systemError(r, "audit ledger unavailable"), true
	}

	switch decision.Status {
	case ports.PolicyApproved:
		return decision, Outcome{}, false
	case ports.PolicyRequiresReview:
		return decision, s.terminal(r, Outcome{
			Kind:                OutcomePolicyDenied,
			Message:             "policy requires human review before sending",
			NextSteps:           nextStepsOr(decision.NextSteps, "submit the request for policy review"),
			RequiresHumanReview: true,
		}), true
	default:
		return decision, s.terminal(r, Outcome{
			Kind:      OutcomePolicyDenied,
			Message:   "policy denied this documentation request",
			NextSteps: nextStepsOr(decision.NextSteps, "review the cited policy reference before retrying"),
		}), true
	}
}

// resolutionPhase drives the resolution engine and logs its outcome.
func (s *Service) resolutionPhase(ctx context.Context, r *run, decision ports.PolicyDecision) (resolution.Result, Outcome, bool) {
	ctx, span := s.tracer.Start(ctx, "orchestrator."+PhaseResolution)
	defer span.End()

	result, historyID, err := s.resolver.Resolve(ctx, r.orgID, r.corrID, resolution.Query{
		DestinationName: r.req.DestinationName,
		Address:         r.req.Address,
		Identifier:      r.req.Identifier,
		DocumentType:    r.req.DocumentType,
		WorkflowContext: r.req.WorkflowState,
	})
	if err != nil {
		s.appendEntry(ctx, r, ledger.Entry{
			Action:           ledger.ActionResolution,
			Outcome:          "error",
			PolicyDecisionID: decision.DecisionID,
			Detail:           ledger.Detail{ledger.DetailErrorKind: "system_error", "error": err.Error()},
		})
		return result, s.systemError(r, "resolution lookup failed"), true
	}

	summary := &ResolutionSummary{
		Resolved:            result.Resolved,
		Value:               result.Value,
		SourceLayer:         int(result.SourceLayer),
		Confidence:          result.Confidence,
		RequiresHumanReview: result.RequiresHumanReview,
		HistoryID:           historyID,
	}

	entryOutcome := "success"
	if !result.Resolved || result.RequiresHumanReview {
		entryOutcome = "review_required"
	}
	if !result.Resolved && !result.RequiresHumanReview {
		entryOutcome = "failed"
	}
	if !s.appendEntry(ctx, r, ledger.Entry{
		Action:           ledger.ActionResolution,
		Outcome:          entryOutcome,
		PolicyDecisionID: decision.DecisionID,
		Detail: ledger.Detail{
			ledger.DetailResolvedValue:  result.Value,
			ledger.DetailSourceLayer:    int(result.SourceLayer),
			ledger.DetailConfidence:     result.Confidence,
			ledger.DetailRequiresReview: result.RequiresHumanReview,
		},
	}) {
		return result, s.systemError(r, "audit ledger unavailable"), true
	}

	if !result.Resolved || result.RequiresHumanReview {
		out := s.terminal(r, Outcome{
			Kind:                OutcomeResolutionFailed,
			Message:             "destination could not be resolved with sufficient confidence",
			RequiresHumanReview: true,
			PolicyAllowed:       true,
			Resolution:          summary,
			NextSteps: []string{
				"verify the destination fax number manually",
				"check the facility contact database",
			},
		})
		return result, out, true
	}

	r.lastResolution = summary
	return result, Outcome{}, false
}

// timingPhase consults the timing collaborator and logs suppressions.
func (s *Service) timingPhase(ctx context.Context, r *run, decision ports.PolicyDecision) (ports.TimingDecision, Outcome, bool) {
	ctx, span := s.tracer.Start(ctx, "orchestrator."+PhaseTimingCheck)
	defer span.End()

	timing, err := s.timing.CanSend(ctx, ports.TimingRequest{
		CorrelationID:     r.corrID,
		DocumentType:      r.req.DocumentType,
		RequestCreatedAt:  requestcontext.Now(ctx),
		ChannelConstraint: r.req.ChannelConstraint,
	})
	if err != nil {
		s.appendEntry(ctx, r, ledger.Entry{
			Action:           ledger.ActionSuppression,
			Outcome:          "error",
			PolicyDecisionID: decision.DecisionID,
			Detail:           ledger.Detail{ledger.DetailErrorKind: "system_error", "error": err.Error()},
		})
		return timing, s.systemError(r, "timing collaborator unavailable"), true
	}

	if timing.CanSend {
		return timing, Outcome{}, false
	}

	detail := ledger.Detail{
		ledger.DetailSuppressReason: timing.Reason,
		ledger.DetailAttemptNumber:  timing.AttemptNumber,
		ledger.DetailEscalationHit:  timing.EscalationLimitReached,
	}
	if timing.NextAllowedAt != nil {
		detail[ledger.DetailNextAllowedAt] = timing.NextAllowedAt.UTC().Format(time.RFC3339)
	}
	if !s.appendEntry(ctx, r, ledger.Entry{
		Action:           ledger.ActionSuppression,
		Outcome:          "suppressed",
		PolicyDecisionID: decision.DecisionID,
		Detail:           detail,
	}) {
		return timing, s.systemError(r, "audit ledger unavailable"), true
	}

	out := Outcome{
		Kind:                OutcomeTimingSuppressed,
		Message:             "sending is currently suppressed: " + timing.Reason,
		PolicyAllowed:       true,
		ResolutionSucceeded: true,
		Resolution:          r.lastResolution,
	}
	if timing.EscalationLimitReached {
		out.RequiresHumanReview = true
		out.NextSteps = []string{"escalation limit reached; escalate to a supervisor"}
	} else {
		retryStep := "retry later"
		if timing.NextAllowedAt != nil {
			retryStep = "retry after " + timing.NextAllowedAt.UTC().Format(time.RFC3339)
		}
		out.NextSteps = []string{retryStep}
	}
	return timing, s.terminal(r, out), true
}

// sendPhase creates the delivery record and attempts the send.
func (s *Service) sendPhase(ctx context.Context, r *run, decision ports.PolicyDecision, result resolution.Result, timing ports.TimingDecision) Outcome {
	ctx, span := s.tracer.Start(ctx, "orchestrator."+PhaseSendAttempt)
	defer span.End()

	// Claim the correlation id before minting the record, so a replayed
	// request is refused without leaving a second delivery record behind.
	acquired, err := s.guard.Acquire(ctx, r.corrID)
	if err != nil {
		return s.systemError(r, "send replay guard unavailable")
	}
	if !acquired {
		return s.systemError(r, "send already attempted for this correlation id")
	}

	now := requestcontext.Now(ctx)
	request := outbound.Request{
		ID:               id.OutboundID(uuid.New()),
		OrgID:            r.orgID,
		CorrelationID:    r.corrID,
		Direction:        outbound.DirectionOutbound,
		Status:           outbound.StatusQueued,
		DestinationValue: result.Value,
		DestinationName:  r.req.DestinationName,
		ContactID:        result.ContactID,
		MaxRetries:       s.maxRetries,
		Metadata: outbound.Metadata{
			DocumentType:         r.req.DocumentType,
			WorkflowState:        r.req.WorkflowState,
			ResolutionLayer:      int(result.SourceLayer),
			ResolutionConfidence: result.Confidence,
			ReferenceID:          r.req.ReferenceID,
			PatientName:          r.req.PatientName,
			PatientDOB:           r.req.PatientDOB,
			ServiceDate:          r.req.ServiceDate,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return s.systemError(r, "delivery record creation failed")
	}

	if err := s.requests.Transition(ctx, r.orgID, request.ID, outbound.StatusEvent{
		OutboundID: request.ID,
		From:       outbound.StatusQueued,
		To:         outbound.StatusSending,
		Reason:     "send attempt started",
		At:         now,
	}); err != nil {
		return s.systemError(r, "delivery record transition failed")
	}

	start := time.Now()
	sendResult, sendErr := s.transport.Send(ctx, ports.SendRequest{
		CorrelationID:    r.corrID,
		DestinationValue: result.Value,
		DestinationName:  r.req.DestinationName,
		DocumentType:     r.req.DocumentType,
		Payload:          r.req.Payload,
	})
	elapsed := time.Since(start)
	success := sendErr == nil && sendResult.Success

	entryOutcome := "delivered"
	if !success {
		entryOutcome = "failed"
	}
	detail := ledger.Detail{
		ledger.DetailSendSuccess: success,
		ledger.DetailDurationMS:  elapsed.Milliseconds(),
		ledger.DetailTrackingID:  sendResult.TrackingID,
	}
	if sendErr != nil {
		detail[ledger.DetailErrorKind] = "transmission_failure"
		detail["error"] = sendErr.Error()
	}
	if !s.appendEntry(ctx, r, ledger.Entry{
		Action:           ledger.ActionSendAttempt,
		Outcome:          entryOutcome,
		PolicyDecisionID: decision.DecisionID,
		Detail:           detail,
	}) {
		return s.systemError(r, "audit ledger unavailable")
	}

	finalStatus := outbound.StatusDelivered
	reason := "transport confirmed delivery"
	if !success {
		finalStatus = outbound.StatusFailed
		reason = "transport reported failure"
	}
	if err := s.requests.Transition(ctx, r.orgID, request.ID, outbound.StatusEvent{
		OutboundID: request.ID,
		From:       outbound.StatusSending,
		To:         finalStatus,
		Reason:     reason,
		At:         requestcontext.Now(ctx),
	}); err != nil {
		s.logger.ErrorContext(ctx, "status transition after send failed",
			"correlation_id", r.corrID.String(),
			"error", err,
		)
	}

	if err := s.resolver.RecordDeliveryOutcome(ctx, r.orgID, result.ContactID, success); err != nil {
		s.logger.WarnContext(ctx, "delivery outcome not recorded on contact",
			"contact_id", result.ContactID.String(),
			"error", err,
		)
	}

	if !success {
		recommendation := s.HandleFailure(ctx, r.orgID, r.corrID, FailureTransmission, request.ID)
		out := s.terminal(r, Outcome{
			Kind:                OutcomeError,
			OutboundID:          request.ID,
			Message:             "transmission failed; no further action was taken",
			NextSteps:           recommendation.NextSteps,
			RequiresHumanReview: recommendation.Escalate,
			PolicyAllowed:       true,
			ResolutionSucceeded: true,
			TimingAllowed:       true,
			Resolution:          r.lastResolution,
		})
		return out
	}

	s.metrics.ObserveSendLatency(elapsed)
	return s.terminal(r, Outcome{
		Kind:                OutcomeSuccess,
		OutboundID:          request.ID,
		Message:             "document delivered",
		PolicyAllowed:       true,
		ResolutionSucceeded: true,
		TimingAllowed:       true,
		Resolution:          r.lastResolution,
	})
}

// LastCompletedPhase inspects the ledger trail for a correlation id so a
// caller recovering from a crash can decide whether to resume or restart.
// The system never resumes automatically.
func (s *Service) LastCompletedPhase(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (string, error) {
	entries, err := s.ledger.QueryByCorrelation(ctx, orgID, correlationID)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	last := entries[len(entries)-1]
	return string(last.Action), nil
}

// DeliveryByCorrelation returns the delivery record minted for the
// correlation id, including its current status and retry counters.
func (s *Service) DeliveryByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) (outbound.Request, error) {
	request, err := s.requests.FindByCorrelation(ctx, orgID, correlationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return outbound.Request{}, dErrors.New(dErrors.CodeNotFound, "no delivery for correlation id")
		}
		return outbound.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "load delivery record")
	}
	return request, nil
}

// ListOutstanding returns deliveries still awaiting an inbound response.
func (s *Service) ListOutstanding(ctx context.Context, orgID id.OrgID) ([]outbound.Request, error) {
	requests, err := s.requests.ListOutstanding(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list outstanding deliveries")
	}
	return requests, nil
}

// appendEntry writes one phase entry and records its id. A false return
// means the ledger is unavailable and the orchestration must stop: an
// unaudited action never completes successfully.
func (s *Service) appendEntry(ctx context.Context, r *run, entry ledger.Entry) bool {
	entry.OrgID = r.orgID
	entry.CorrelationID = r.corrID
	entry.References = r.references
	persisted, err := s.ledger.Append(ctx, entry)
	if err != nil {
		return false
	}
	r.entryIDs = append(r.entryIDs, persisted.ID)
	return true
}

func (s *Service) terminal(r *run, out Outcome) Outcome {
	out.CorrelationID = r.corrID
	out.AuditEntryIDs = append([]id.EntryID{}, r.entryIDs...)
	return out
}

func (s *Service) systemError(r *run, message string) Outcome {
	return s.terminal(r, Outcome{
		Kind:                OutcomeError,
		Message:             message,
		RequiresHumanReview: true,
		NextSteps:           []string{"inspect the audit trail for this correlation id"},
	})
}

func nextStepsOr(steps []string, fallback string) []string {
	if len(steps) > 0 {
		return steps
	}
	return []string{fallback}
}

func buildReferences(req DeliverRequest) []ledger.Reference {
	var refs []ledger.Reference
	if req.IncidentID != "" {
		refs = append(refs, ledger.Reference{Kind: ledger.RefIncident, Value: req.IncidentID})
	}
	if req.ClaimID != "" {
		refs = append(refs, ledger.Reference{Kind: ledger.RefClaim, Value: req.ClaimID})
	}
	for _, record := range platformstrings.DedupeAndTrim(req.RecordIDs) {
		refs = append(refs, ledger.Reference{Kind: ledger.RefRecord, Value: record})
	}
	return refs
}
