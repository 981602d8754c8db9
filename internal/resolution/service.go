package resolution

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	resolutionmetrics "docrelay/internal/resolution/metrics"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/platform/sentinel"
	"docrelay/pkg/platform/tx"
	"docrelay/pkg/requestcontext"
)

// Service wraps the engine with persistence: every Resolve call writes
// exactly one history row, whatever the outcome, and PromoteToVerified is the
// only path that moves contact data into the internal layer.
type Service struct {
	engine  *Engine
	store   Store
	txr     tx.Runner
	logger  *slog.Logger
	metrics *resolutionmetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *resolutionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTxRunner makes promotion's writes share one transactional boundary.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.txr = r }
}

func NewService(cfg Config, store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		engine: NewEngine(cfg, store),
		store:  store,
		txr:    tx.NopRunner{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve runs the cascade and persists the history row. The history id is
// returned with the result so callers can hand it to human review flows.
func (s *Service) Resolve(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID, query Query) (Result, id.HistoryID, error) {
	if query.DestinationName == "" {
		return Result{}, id.HistoryID{}, dErrors.New(dErrors.CodeBadRequest, "destination name is required")
	}

	result, resolveErr := s.engine.Resolve(ctx, orgID, query)
	if resolveErr != nil {
		// The trail carries the error step; the result stays unresolved and
		// review-required so the failure is still inspectable.
		result.Resolved = false
		result.RequiresHumanReview = true
	}

	history := History{
		ID:                  id.HistoryID(uuid.New()),
		OrgID:               orgID,
		CorrelationID:       correlationID,
		DestinationName:     query.DestinationName,
		DocumentType:        query.DocumentType,
		WorkflowContext:     query.WorkflowContext,
		Resolved:            result.Resolved,
		Value:               result.Value,
		SourceLayer:         result.SourceLayer,
		Confidence:          result.Confidence,
		Department:          result.Department,
		RequiresHumanReview: result.RequiresHumanReview,
		Conflicts:           result.Conflicts,
		Trail:               result.Trail,
		ContactID:           result.ContactID,
		CreatedAt:           requestcontext.Now(ctx),
	}
	if err := s.store.SaveHistory(ctx, history); err != nil {
		s.logger.ErrorContext(ctx, "resolution history write failed",
			"correlation_id", correlationID.String(),
			"error", err,
		)
		return Result{}, id.HistoryID{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolution history write failed")
	}

	s.metrics.ObserveResolution(int(result.SourceLayer), result.Resolved, result.RequiresHumanReview)

	if resolveErr != nil {
		return result, history.ID, dErrors.Wrap(resolveErr, dErrors.CodeInternal, "resolution lookup failed")
	}
	return result, history.ID, nil
}

// PromoteToVerified creates a verified layer-1 contact from a human-reviewed
// resolution and links it back to the history row. When the resolution had a
// winning contact with a different value, that record is superseded.
func (s *Service) PromoteToVerified(ctx context.Context, orgID id.OrgID, historyID id.HistoryID, confirmedValue, confirmedDepartment string) (DestinationContact, error) {
	if confirmedValue == "" {
		return DestinationContact{}, dErrors.New(dErrors.CodeBadRequest, "confirmed destination value is required")
	}

	history, err := s.store.FindHistory(ctx, orgID, historyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DestinationContact{}, dErrors.New(dErrors.CodeNotFound, "resolution history not found")
		}
		return DestinationContact{}, dErrors.Wrap(err, dErrors.CodeInternal, "load resolution history")
	}
	if history.Reviewed {
		return DestinationContact{}, dErrors.New(dErrors.CodeConflict, "resolution already reviewed")
	}

	if confirmedDepartment == "" {
		confirmedDepartment = history.Department
	}
	now := requestcontext.Now(ctx)
	promoted := DestinationContact{
		ID:         id.ContactID(uuid.New()),
		OrgID:      orgID,
		Name:       history.DestinationName,
		FaxNumber:  confirmedValue,
		Department: confirmedDepartment,
		Layer:      LayerInternal,
		Verified:   true,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var prior DestinationContact
	if !history.ContactID.IsNil() {
		prior, err = s.store.FindContact(ctx, orgID, history.ContactID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return DestinationContact{}, dErrors.Wrap(err, dErrors.CodeInternal, "load prior contact")
		}
		promoted.Address = prior.Address
		promoted.City = prior.City
		promoted.State = prior.State
		promoted.Zip = prior.Zip
		promoted.NPI = prior.NPI
		promoted.FacilityID = prior.FacilityID
		promoted.StateLicenseID = prior.StateLicenseID
	}

	annotation := ReviewAnnotation{
		Reviewer:            requestcontext.ActorID(ctx),
		ConfirmedValue:      confirmedValue,
		ConfirmedDepartment: confirmedDepartment,
		PromotedContactID:   promoted.ID,
	}
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveContact(ctx, promoted); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save promoted contact")
		}
		if !history.ContactID.IsNil() && prior.FaxNumber != confirmedValue {
			if err := s.store.Supersede(ctx, orgID, history.ContactID, promoted.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "supersede prior contact")
			}
		}
		if err := s.store.AnnotateReview(ctx, orgID, historyID, annotation); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "annotate resolution review")
		}
		return nil
	})
	if err != nil {
		return DestinationContact{}, err
	}

	s.metrics.IncPromotion()
	s.logger.InfoContext(ctx, "resolution promoted to verified contact",
		"history_id", historyID.String(),
		"contact_id", promoted.ID.String(),
	)
	return promoted, nil
}

// RecordDeliveryOutcome feeds delivery results back into contact quality
// counters so the recent-success strategy stays honest.
func (s *Service) RecordDeliveryOutcome(ctx context.Context, orgID id.OrgID, contactID id.ContactID, success bool) error {
	if contactID.IsNil() {
		return nil
	}
	return s.store.RecordDeliveryOutcome(ctx, orgID, contactID, success, requestcontext.Now(ctx))
}

// ListRequiringReview returns histories awaiting a human decision.
func (s *Service) ListRequiringReview(ctx context.Context, orgID id.OrgID) ([]History, error) {
	return s.store.ListHistoriesRequiringReview(ctx, orgID)
}
