package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	ledgermetrics "docrelay/internal/ledger/metrics"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// Service owns the append/verify/query surface of the audit ledger. Append is
// fail-loud: when the store is unavailable the caller gets an error and must
// treat the guarded action as failed. An unaudited action never completes
// successfully.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
	outbox  chan<- Entry
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOutbox sets a channel entries are fanned out to after a successful
// append. The outbox worker publishes them to Kafka for downstream
// compliance consumers; the store write remains the source of truth, so a
// full outbox is dropped-with-log rather than blocking Append.
func WithOutbox(outbox chan<- Entry) Option {
	return func(s *Service) { s.outbox = outbox }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append finalizes and persists one entry: fills identity, actor, timestamp,
// computes the integrity hash, and writes it. The persisted entry is returned
// so callers can thread its id into the phase outcome.
func (s *Service) Append(ctx context.Context, entry Entry) (Entry, error) {
	if !entry.Action.IsValid() {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "unknown ledger action type")
	}
	if entry.OrgID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "ledger entry requires an organization scope")
	}
	if entry.CorrelationID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeBadRequest, "ledger entry requires a correlation id")
	}

	if entry.ID.IsNil() {
		entry.ID = id.EntryID(uuid.New())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.Actor == "" {
		entry.Actor = requestcontext.ActorID(ctx)
	}
	entry.Hash = entry.ComputeHash()

	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.IncAppendFailure(string(entry.Action))
		s.logger.ErrorContext(ctx, "ledger append failed",
			"correlation_id", entry.CorrelationID.String(),
			"action", entry.Action,
			"error", err,
		)
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "ledger append failed")
	}
	s.metrics.IncAppend(string(entry.Action))

	if s.outbox != nil {
		select {
		case s.outbox <- entry:
		default:
			s.metrics.IncOutboxDropped()
			s.logger.WarnContext(ctx, "ledger outbox full, entry not fanned out",
				"entry_id", entry.ID.String(),
			)
		}
	}
	return entry, nil
}

// Verify recomputes the entry's integrity hash and compares. It is a
// detection operation: a mismatch is reported as false, not as an error.
func (s *Service) Verify(entry Entry) bool {
	ok := entry.Verify()
	if !ok {
		s.metrics.IncVerifyFailure()
	}
	return ok
}

// QueryByCorrelation returns the full chronological trail for one
// orchestrated request.
func (s *Service) QueryByCorrelation(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID) ([]Entry, error) {
	entries, err := s.store.ListByCorrelation(ctx, orgID, correlationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ledger query failed")
	}
	return entries, nil
}

// QueryByIncident returns all entries touching the given incident id.
func (s *Service) QueryByIncident(ctx context.Context, orgID id.OrgID, incidentID string) ([]Entry, error) {
	return s.queryByReference(ctx, orgID, RefIncident, incidentID)
}

// QueryByClaim returns all entries touching the given claim id.
func (s *Service) QueryByClaim(ctx context.Context, orgID id.OrgID, claimID string) ([]Entry, error) {
	return s.queryByReference(ctx, orgID, RefClaim, claimID)
}

func (s *Service) queryByReference(ctx context.Context, orgID id.OrgID, kind ReferenceKind, value string) ([]Entry, error) {
	if value == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reference value is required")
	}
	entries, err := s.store.ListByReference(ctx, orgID, kind, value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ledger query failed")
	}
	return entries, nil
}
