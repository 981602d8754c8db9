package inbound

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"docrelay/internal/inbound/metrics"
	"docrelay/internal/inbound/ports"
	"docrelay/internal/ledger"
	"docrelay/internal/outbound"
	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/platform/sentinel"
	"docrelay/pkg/requestcontext"
)

// Ledger is the slice of the audit ledger the inbound service writes to.
type Ledger interface {
	Append(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
}

// Service receives inbound documents, classifies them, and reconciles them
// against outstanding outbound requests. Receipt is durability-first: the
// document row exists before any classification or matching runs, so a crash
// mid-processing loses annotations, never the document.
type Service struct {
	store      Store
	requests   outbound.Store
	extractor  ports.Extractor
	classifier *Classifier
	matcher    *Matcher
	ledger     Ledger
	dedup      DedupIndex
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithExtractor plugs in the external text/field extraction capability.
// Without one, classification degrades to unknown and matching relies on
// sender and provider-metadata signals only.
func WithExtractor(extractor ports.Extractor) Option {
	return func(s *Service) { s.extractor = extractor }
}

// WithDedupIndex adds the shared fast-path duplicate check.
func WithDedupIndex(index DedupIndex) Option {
	return func(s *Service) { s.dedup = index }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	store Store,
	requests outbound.Store,
	classifier *Classifier,
	matcher *Matcher,
	auditLedger Ledger,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		requests:   requests,
		classifier: classifier,
		matcher:    matcher,
		ledger:     auditLedger,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Receive ingests one document. The body is hashed and persisted before any
// further processing; duplicates (same content hash within the org) are
// returned without reprocessing.
func (s *Service) Receive(ctx context.Context, orgID id.OrgID, senderIdentifier string, documentBytes []byte, pageCount int, providerMetadata map[string]string) (Result, error) {
	if senderIdentifier == "" {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "sender identifier is required")
	}
	if len(documentBytes) == 0 {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "document body is empty")
	}

	contentHash := HashContent(documentBytes)
	if existing, found, err := s.findDuplicate(ctx, orgID, contentHash); err != nil {
		return Result{}, err
	} else if found {
		s.metrics.IncDuplicate()
		s.logger.InfoContext(ctx, "duplicate inbound document",
			"document_id", existing.ID.String(),
			"content_hash", contentHash,
		)
		return Result{Document: existing, Duplicate: true}, nil
	}

	doc := InboundDocument{
		ID:                   id.DocumentID(uuid.New()),
		OrgID:                orgID,
		SenderIdentifier:     senderIdentifier,
		ContentHash:          contentHash,
		SizeBytes:            len(documentBytes),
		PageCount:            pageCount,
		ProviderMetadata:     providerMetadata,
		DocumentType:         DocTypeUnknown,
		ClassificationMethod: ClassifiedNone,
		MatchMethod:          MatchNone,
		ReviewStatus:         ReviewNone,
		ReceivedAt:           requestcontext.Now(ctx),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist inbound document")
	}

	fields := s.extract(ctx, doc, documentBytes, providerMetadata)

	docType, confidence, method := DocTypeUnknown, 0.0, ClassifiedNone
	if text := fields[extractedTextKey]; text != "" {
		docType, confidence = s.classifier.Classify(text)
		method = ClassifiedByKeyword
	}
	if err := s.store.UpdateClassification(ctx, orgID, doc.ID, docType, confidence, method); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist classification")
	}
	doc.DocumentType = docType
	doc.ClassificationConfidence = confidence
	doc.ClassificationMethod = method
	s.metrics.IncReceived(docType)

	return s.reconcile(ctx, doc, fields)
}

// extractedTextKey carries the free text alongside the structured fields so
// reconcile works from a single map.
const extractedTextKey = "__text"

// extract runs the extractor when present and merges provider metadata in as
// the lowest-precedence field source. Extraction failures degrade rather
// than abort: the document is already durable.
func (s *Service) extract(ctx context.Context, doc InboundDocument, documentBytes []byte, providerMetadata map[string]string) map[string]string {
	fields := make(map[string]string)
	for _, key := range []string{
		ports.FieldReferenceID, ports.FieldPatientName, ports.FieldPatientDOB,
		ports.FieldServiceDate, ports.FieldDestinationName,
	} {
		if v := providerMetadata[key]; v != "" {
			fields[key] = v
		}
	}
	if s.extractor == nil {
		return fields
	}
	extraction, err := s.extractor.Extract(ctx, documentBytes)
	if err != nil {
		s.logger.WarnContext(ctx, "extraction failed, degrading to metadata signals",
			"document_id", doc.ID.String(),
			"error", err,
		)
		return fields
	}
	for key, value := range extraction.Fields {
		if value != "" {
			fields[key] = value
		}
	}
	if extraction.Text != "" {
		fields[extractedTextKey] = extraction.Text
	}
	return fields
}

// reconcile scores candidates, persists every attempt, and applies the
// threshold decision.
func (s *Service) reconcile(ctx context.Context, doc InboundDocument, fields map[string]string) (Result, error) {
	attempts, err := s.matcher.Match(ctx, doc.OrgID, doc, fields)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "gather match candidates")
	}

	if len(attempts) == 0 {
		return s.queueManual(ctx, doc, nil)
	}

	best := &attempts[0]
	s.metrics.ObserveBestScore(best.TotalScore)

	switch {
	case best.TotalScore >= ThresholdAutoAttach:
		best.Selected = true
		if err := s.store.SaveAttempts(ctx, attempts); err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist match attempts")
		}
		return s.attach(ctx, doc, *best, MatchAuto, best.TotalScore, "", len(attempts))
	case best.TotalScore >= ThresholdReview:
		if err := s.store.SaveAttempts(ctx, attempts); err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist match attempts")
		}
		return s.flagForReview(ctx, doc, *best, len(attempts))
	default:
		return s.queueManual(ctx, doc, attempts)
	}
}

// attach performs the high-confidence side effects together: attach the
// document, halt outbound retries, and advance the request's workflow
// status. Used by both the automatic path and manual overrides.
func (s *Service) attach(ctx context.Context, doc InboundDocument, attempt MatchAttempt, method MatchMethod, confidence float64, reviewer string, attemptCount int) (Result, error) {
	update := MatchUpdate{
		OutboundID:   attempt.OutboundID,
		Confidence:   confidence,
		Method:       method,
		AutoAttached: method == MatchAuto,
		ReviewStatus: ReviewNone,
	}
	if method == MatchManual {
		update.ReviewStatus = ReviewDone
		update.Reviewer = reviewer
		now := requestcontext.Now(ctx)
		update.ReviewedAt = &now
	}
	if err := s.store.UpdateMatch(ctx, doc.OrgID, doc.ID, update); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "attach document")
	}

	if err := s.requests.HaltRetries(ctx, doc.OrgID, attempt.OutboundID); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "halt outbound retries")
	}
	if err := s.advanceToResponseReceived(ctx, doc.OrgID, attempt.OutboundID); err != nil {
		return Result{}, err
	}

	action := ledger.ActionReceive
	outcome := "matched"
	band := "auto_attach"
	if method == MatchManual {
		action = ledger.ActionReview
		outcome = "manual_match"
		band = "manual"
	}
	if err := s.appendEntry(ctx, doc, attempt.CorrelationID, action, outcome, confidence, method); err != nil {
		return Result{}, err
	}
	s.metrics.IncMatch(band)

	doc.MatchedOutboundID = attempt.OutboundID
	doc.MatchConfidence = confidence
	doc.MatchMethod = method
	doc.AutoAttached = update.AutoAttached
	doc.ReviewStatus = update.ReviewStatus
	doc.Reviewer = update.Reviewer
	doc.ReviewedAt = update.ReviewedAt
	return Result{
		Document:          doc,
		Matched:           true,
		AutoAttached:      update.AutoAttached,
		RetriesHalted:     true,
		AttemptsPersisted: attemptCount,
	}, nil
}

func (s *Service) flagForReview(ctx context.Context, doc InboundDocument, best MatchAttempt, attemptCount int) (Result, error) {
	update := MatchUpdate{
		OutboundID:   best.OutboundID,
		Confidence:   best.TotalScore,
		Method:       MatchAuto,
		AutoAttached: false,
		ReviewStatus: ReviewPending,
	}
	if err := s.store.UpdateMatch(ctx, doc.OrgID, doc.ID, update); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "flag document for review")
	}
	if err := s.appendEntry(ctx, doc, best.CorrelationID, ledger.ActionReceive, "review_required", best.TotalScore, MatchAuto); err != nil {
		return Result{}, err
	}
	s.metrics.IncMatch("review")

	doc.MatchedOutboundID = best.OutboundID
	doc.MatchConfidence = best.TotalScore
	doc.MatchMethod = MatchAuto
	doc.ReviewStatus = ReviewPending
	return Result{
		Document:          doc,
		Matched:           true,
		RequiresReview:    true,
		AttemptsPersisted: attemptCount,
	}, nil
}

func (s *Service) queueManual(ctx context.Context, doc InboundDocument, attempts []MatchAttempt) (Result, error) {
	if len(attempts) > 0 {
		if err := s.store.SaveAttempts(ctx, attempts); err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist match attempts")
		}
	}
	update := MatchUpdate{
		Method:       MatchNone,
		ReviewStatus: ReviewManualQueue,
	}
	if err := s.store.UpdateMatch(ctx, doc.OrgID, doc.ID, update); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "queue document for manual matching")
	}
	if err := s.appendEntry(ctx, doc, documentCorrelationID(doc), ledger.ActionReceive, "manual_queue", 0, MatchNone); err != nil {
		return Result{}, err
	}
	s.metrics.IncMatch("manual_queue")

	doc.ReviewStatus = ReviewManualQueue
	return Result{
		Document:          doc,
		RequiresReview:    true,
		AttemptsPersisted: len(attempts),
	}, nil
}

// ManualMatch overrides reconciliation for a document: a human names the
// owning request, recorded at full confidence with method "manual" and the
// same halt/update side effects as an automatic high-confidence match.
func (s *Service) ManualMatch(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, outboundID id.OutboundID) (Result, error) {
	doc, err := s.store.FindDocument(ctx, orgID, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "inbound document not found")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "load inbound document")
	}
	request, err := s.requests.Find(ctx, orgID, outboundID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.New(dErrors.CodeNotFound, "outbound request not found")
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "load outbound request")
	}

	attempt := MatchAttempt{
		ID:            id.AttemptID(uuid.New()),
		OrgID:         orgID,
		DocumentID:    documentID,
		OutboundID:    outboundID,
		CorrelationID: request.CorrelationID,
		TotalScore:    manualMatchConfidence,
		Selected:      true,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.SaveAttempts(ctx, []MatchAttempt{attempt}); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist manual match attempt")
	}

	return s.attach(ctx, doc, attempt, MatchManual, manualMatchConfidence, requestcontext.ActorID(ctx), 1)
}

// manualMatchConfidence is full confidence on the matcher's 0..1 scale.
const manualMatchConfidence = 1.0

// advanceToResponseReceived moves the request to its terminal reconciled
// state from whatever outstanding status it currently holds.
func (s *Service) advanceToResponseReceived(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) error {
	request, err := s.requests.Find(ctx, orgID, outboundID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load outbound request")
	}
	if request.Status == outbound.StatusResponseReceived {
		return nil
	}
	err = s.requests.Transition(ctx, orgID, outboundID, outbound.StatusEvent{
		OutboundID: outboundID,
		From:       request.Status,
		To:         outbound.StatusResponseReceived,
		Reason:     "inbound response attached",
		At:         requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "advance outbound request")
	}
	return nil
}

// documentCorrelationID derives a stable correlation id from the document
// identity. An unmatched document has no outbound request to correlate with,
// so its ledger entries are keyed by the document itself and stay queryable.
func documentCorrelationID(doc InboundDocument) id.CorrelationID {
	return id.CorrelationID(doc.ID)
}

func (s *Service) appendEntry(ctx context.Context, doc InboundDocument, correlationID id.CorrelationID, action ledger.ActionType, outcome string, matchConfidence float64, method MatchMethod) error {
	_, err := s.ledger.Append(ctx, ledger.Entry{
		OrgID:         doc.OrgID,
		CorrelationID: correlationID,
		Action:        action,
		Outcome:       outcome,
		Detail: ledger.Detail{
			ledger.DetailContentHash:  doc.ContentHash,
			ledger.DetailDocumentType: doc.DocumentType,
			ledger.DetailConfidence:   matchConfidence,
			ledger.DetailMatchMethod:  string(method),
		},
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append receive entry")
	}
	return nil
}

// findDuplicate checks the content hash for a previously received document.
// The shared index answers first: an unseen hash cannot be in the store, so
// the lookup is skipped. A seen hash still goes to the authoritative store
// to retrieve the original and to rule out an index false positive. Index
// errors only lose the fast path.
func (s *Service) findDuplicate(ctx context.Context, orgID id.OrgID, contentHash string) (InboundDocument, bool, error) {
	if s.dedup != nil {
		seen, err := s.dedup.MarkSeen(ctx, orgID, contentHash)
		if err != nil {
			s.logger.WarnContext(ctx, "dedup index unavailable", "error", err)
		} else if !seen {
			return InboundDocument{}, false, nil
		}
	}
	existing, err := s.store.FindByContentHash(ctx, orgID, contentHash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return InboundDocument{}, false, nil
	}
	if err != nil {
		return InboundDocument{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "check content hash")
	}
	return existing, true, nil
}

// ListPendingReview returns documents whose proposed match awaits a human
// decision.
func (s *Service) ListPendingReview(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.store.ListPendingReview(ctx, orgID)
}

// ListManualQueue returns documents with no usable candidate.
func (s *Service) ListManualQueue(ctx context.Context, orgID id.OrgID) ([]InboundDocument, error) {
	return s.store.ListManualQueue(ctx, orgID)
}

// ListAttempts exposes the full scored candidate breakdown for a document.
func (s *Service) ListAttempts(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) ([]MatchAttempt, error) {
	return s.store.ListAttemptsByDocument(ctx, orgID, documentID)
}
