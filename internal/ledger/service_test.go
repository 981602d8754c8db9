package ledger

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
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the ledger is the compliance record of the
// whole system. Tests pin the integrity-hash behavior (verify passes after
// append, fails after any mutation of a hashed field), the append
// validations, chronological query ordering, and the non-blocking outbox.

type LedgerServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	orgID   id.OrgID
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.service = NewService(s.store, logger)
	s.orgID = id.OrgID(uuid.New())
}

func (s *LedgerServiceSuite) entry(action ActionType, correlationID id.CorrelationID) Entry {
	return Entry{
		OrgID:         s.orgID,
		CorrelationID: correlationID,
		Action:        action,
		Outcome:       "success",
		Detail:        Detail{DetailConfidence: 0.95},
	}
}

func (s *LedgerServiceSuite) TestAppendFinalizesEntry() {
	ctx := requestcontext.WithActorID(context.Background(), "worker-7")
	persisted, err := s.service.Append(ctx, s.entry(ActionPolicyCheck, id.NewCorrelationID()))
	s.Require().NoError(err)

	s.False(persisted.ID.IsNil())
	s.False(persisted.CreatedAt.IsZero())
	s.Equal("worker-7", persisted.Actor)
	s.NotEmpty(persisted.Hash)
}

func (s *LedgerServiceSuite) TestAppendValidation() {
	s.Run("unknown action", func() {
		entry := s.entry("self_destruct", id.NewCorrelationID())
		_, err := s.service.Append(context.Background(), entry)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("missing org scope", func() {
		entry := s.entry(ActionResolution, id.NewCorrelationID())
		entry.OrgID = id.OrgID{}
		_, err := s.service.Append(context.Background(), entry)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("missing correlation id", func() {
		entry := s.entry(ActionResolution, id.CorrelationID{})
		_, err := s.service.Append(context.Background(), entry)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *LedgerServiceSuite) TestVerify() {
	persisted, err := s.service.Append(context.Background(), s.entry(ActionSendAttempt, id.NewCorrelationID()))
	s.Require().NoError(err)

	s.Run("passes immediately after append", func() {
		s.True(s.service.Verify(persisted))
	})

	s.Run("fails after outcome mutation", func() {
		tampered := persisted
		tampered.Outcome = "failed"
		s.False(s.service.Verify(tampered))
	})

	s.Run("fails after timestamp mutation", func() {
		tampered := persisted
		tampered.CreatedAt = tampered.CreatedAt.Add(time.Second)
		s.False(s.service.Verify(tampered))
	})

	s.Run("fails after policy decision mutation", func() {
		tampered := persisted
		tampered.PolicyDecisionID = "pd-forged"
		s.False(s.service.Verify(tampered))
	})

	s.Run("fails with empty hash", func() {
		tampered := persisted
		tampered.Hash = ""
		s.False(s.service.Verify(tampered))
	})
}

func (s *LedgerServiceSuite) TestQueryByCorrelationChronological() {
	corrID := id.NewCorrelationID()
	base := time.Now().UTC()

	for i, action := range []ActionType{ActionPolicyCheck, ActionResolution, ActionSendAttempt} {
		entry := s.entry(action, corrID)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		_, err := s.service.Append(context.Background(), entry)
		s.Require().NoError(err)
	}

	entries, err := s.service.QueryByCorrelation(context.Background(), s.orgID, corrID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(ActionPolicyCheck, entries[0].Action)
	s.Equal(ActionResolution, entries[1].Action)
	s.Equal(ActionSendAttempt, entries[2].Action)
}

func (s *LedgerServiceSuite) TestQueryScopedByOrg() {
	corrID := id.NewCorrelationID()
	_, err := s.service.Append(context.Background(), s.entry(ActionReceive, corrID))
	s.Require().NoError(err)

	entries, err := s.service.QueryByCorrelation(context.Background(), id.OrgID(uuid.New()), corrID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *LedgerServiceSuite) TestQueryByReference() {
	corrID := id.NewCorrelationID()
	entry := s.entry(ActionPolicyCheck, corrID)
	entry.References = []Reference{
		{Kind: RefIncident, Value: "INC-12"},
		{Kind: RefClaim, Value: "CLM-34"},
	}
	_, err := s.service.Append(context.Background(), entry)
	s.Require().NoError(err)

	s.Run("by incident", func() {
		entries, err := s.service.QueryByIncident(context.Background(), s.orgID, "INC-12")
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("by claim", func() {
		entries, err := s.service.QueryByClaim(context.Background(), s.orgID, "CLM-34")
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("empty value rejected", func() {
		_, err := s.service.QueryByIncident(context.Background(), s.orgID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unreferenced value yields nothing", func() {
		entries, err := s.service.QueryByIncident(context.Background(), s.orgID, "INC-99")
		s.Require().NoError(err)
		s.Empty(entries)
	})
}

func (s *LedgerServiceSuite) TestOutboxFanOut() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	outbox := make(chan Entry, 1)
	service := NewService(s.store, logger, WithOutbox(outbox))

	first, err := service.Append(context.Background(), s.entry(ActionPolicyCheck, id.NewCorrelationID()))
	s.Require().NoError(err)

	select {
	case got := <-outbox:
		s.Equal(first.ID, got.ID)
	default:
		s.Fail("entry not fanned out")
	}

	// A full outbox must not block or fail the append.
	outbox <- first
	_, err = service.Append(context.Background(), s.entry(ActionResolution, id.NewCorrelationID()))
	s.NoError(err)
}

func (s *LedgerServiceSuite) TestCorrectionKeepsOriginal() {
	corrID := id.NewCorrelationID()
	original, err := s.service.Append(context.Background(), s.entry(ActionResolution, corrID))
	s.Require().NoError(err)

	correction := s.entry(ActionResolution, corrID)
	correction.Outcome = "corrected"
	correction.Corrects = original.ID
	persisted, err := s.service.Append(context.Background(), correction)
	s.Require().NoError(err)
	s.Equal(original.ID, persisted.Corrects)

	entries, err := s.service.QueryByCorrelation(context.Background(), s.orgID, corrID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.True(s.service.Verify(entries[0]))
	s.True(s.service.Verify(entries[1]))
}
