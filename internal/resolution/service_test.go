package resolution

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
	"docrelay/pkg/requestcontext"
)

// =============================================================================
// Resolution Service Test Suite
// =============================================================================
// Justification for unit tests: the service owns the one-history-per-call
// invariant and the promotion path that feeds human review back into the
// internal layer. Tests pin both, plus the delivery-outcome bookkeeping.

type ResolutionServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	orgID   id.OrgID
}

func TestResolutionServiceSuite(t *testing.T) {
	suite.Run(t, new(ResolutionServiceSuite))
}

func (s *ResolutionServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.service = NewService(DefaultConfig(), s.store, logger)
	s.orgID = id.OrgID(uuid.New())
}

func (s *ResolutionServiceSuite) seedContact(c DestinationContact) DestinationContact {
	if c.ID.IsNil() {
		c.ID = id.ContactID(uuid.New())
	}
	c.OrgID = s.orgID
	c.Active = true
	c.CreatedAt = time.Now().UTC()
	s.Require().NoError(s.store.SaveContact(context.Background(), c))
	return c
}

func (s *ResolutionServiceSuite) TestResolveWritesExactlyOneHistory() {
	s.seedContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})
	corrID := id.NewCorrelationID()

	result, historyID, err := s.service.Resolve(context.Background(), s.orgID, corrID, Query{
		DestinationName: "City Hospital", DocumentType: "authorization",
	})
	s.Require().NoError(err)
	s.True(result.Resolved)
	s.False(historyID.IsNil())

	history, err := s.store.FindHistory(context.Background(), s.orgID, historyID)
	s.Require().NoError(err)
	s.Equal(corrID, history.CorrelationID)
	s.Equal(result.Value, history.Value)
	s.GreaterOrEqual(len(history.Trail), 1)
}

func (s *ResolutionServiceSuite) TestResolveUnresolvedStillWritesHistory() {
	_, historyID, err := s.service.Resolve(context.Background(), s.orgID, id.NewCorrelationID(), Query{
		DestinationName: "Nowhere Clinic", DocumentType: "referral",
	})
	s.Require().NoError(err)

	history, err := s.store.FindHistory(context.Background(), s.orgID, historyID)
	s.Require().NoError(err)
	s.False(history.Resolved)
	s.True(history.RequiresHumanReview)
	s.GreaterOrEqual(len(history.Trail), 1)
}

func (s *ResolutionServiceSuite) TestResolveRequiresName() {
	_, _, err := s.service.Resolve(context.Background(), s.orgID, id.NewCorrelationID(), Query{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ResolutionServiceSuite) TestPromoteToVerified() {
	prior := s.seedContact(DestinationContact{
		Name: "Regional Clinic", Department: "admissions", NPI: "4445556667",
		FaxNumber: "+15550200300", Layer: LayerAgency,
	})
	_, historyID, err := s.service.Resolve(context.Background(), s.orgID, id.NewCorrelationID(), Query{
		DestinationName: "Regional Clinic", DocumentType: "authorization",
	})
	s.Require().NoError(err)

	ctx := requestcontext.WithActorID(context.Background(), "reviewer-3")
	promoted, err := s.service.PromoteToVerified(ctx, s.orgID, historyID, "+15550200999", "")
	s.Require().NoError(err)

	s.Equal(LayerInternal, promoted.Layer)
	s.True(promoted.Verified)
	s.Equal("+15550200999", promoted.FaxNumber)
	s.Equal("admissions", promoted.Department)
	s.Equal("4445556667", promoted.NPI) // identity carried from the prior record

	// The prior record is superseded, not deleted.
	replaced, err := s.store.FindContact(context.Background(), s.orgID, prior.ID)
	s.Require().NoError(err)
	s.False(replaced.Active)
	s.Equal(promoted.ID, replaced.ReplacedByID)

	history, err := s.store.FindHistory(context.Background(), s.orgID, historyID)
	s.Require().NoError(err)
	s.True(history.Reviewed)
	s.Equal("reviewer-3", history.Reviewer)
	s.Equal(promoted.ID, history.PromotedContactID)

	s.Run("second promotion conflicts", func() {
		_, err := s.service.PromoteToVerified(ctx, s.orgID, historyID, "+15550200999", "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ResolutionServiceSuite) TestPromoteSameValueKeepsPriorActive() {
	prior := s.seedContact(DestinationContact{
		Name: "Regional Clinic", Department: "admissions",
		FaxNumber: "+15550200300", Layer: LayerAgency,
	})
	_, historyID, err := s.service.Resolve(context.Background(), s.orgID, id.NewCorrelationID(), Query{
		DestinationName: "Regional Clinic", DocumentType: "authorization",
	})
	s.Require().NoError(err)

	_, err = s.service.PromoteToVerified(context.Background(), s.orgID, historyID, "+15550200300", "")
	s.Require().NoError(err)

	kept, err := s.store.FindContact(context.Background(), s.orgID, prior.ID)
	s.Require().NoError(err)
	s.True(kept.Active)
}

func (s *ResolutionServiceSuite) TestPromoteValidation() {
	s.Run("empty value", func() {
		_, err := s.service.PromoteToVerified(context.Background(), s.orgID, id.HistoryID(uuid.New()), "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown history", func() {
		_, err := s.service.PromoteToVerified(context.Background(), s.orgID, id.HistoryID(uuid.New()), "+15550000000", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ResolutionServiceSuite) TestRecordDeliveryOutcome() {
	contact := s.seedContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})

	s.Require().NoError(s.service.RecordDeliveryOutcome(context.Background(), s.orgID, contact.ID, true))
	s.Require().NoError(s.service.RecordDeliveryOutcome(context.Background(), s.orgID, contact.ID, false))

	updated, err := s.store.FindContact(context.Background(), s.orgID, contact.ID)
	s.Require().NoError(err)
	s.Equal(1, updated.SuccessCount)
	s.Equal(1, updated.FailureCount)
	s.NotNil(updated.LastSuccessAt)

	s.Run("nil contact id is a no-op", func() {
		s.NoError(s.service.RecordDeliveryOutcome(context.Background(), s.orgID, id.ContactID{}, true))
	})
}

func (s *ResolutionServiceSuite) TestListRequiringReview() {
	_, _, err := s.service.Resolve(context.Background(), s.orgID, id.NewCorrelationID(), Query{
		DestinationName: "Nowhere Clinic", DocumentType: "referral",
	})
	s.Require().NoError(err)

	pending, err := s.service.ListRequiringReview(context.Background(), s.orgID)
	s.Require().NoError(err)
	s.Len(pending, 1)
}
