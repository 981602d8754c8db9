//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docrelay/internal/ledger"
	id "docrelay/pkg/domain"
	"docrelay/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
	orgID    id.OrgID
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = ledger.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ledger_entries"))
	s.orgID = id.OrgID(uuid.New())
}

func (s *PostgresLedgerSuite) entry(correlationID id.CorrelationID, action ledger.ActionType, at time.Time) ledger.Entry {
	e := ledger.Entry{
		ID:            id.EntryID(uuid.New()),
		OrgID:         s.orgID,
		CorrelationID: correlationID,
		Action:        action,
		Actor:         "worker-1",
		Outcome:       "success",
		Detail:        ledger.Detail{ledger.DetailConfidence: 0.95},
		CreatedAt:     at,
	}
	e.Hash = e.ComputeHash()
	return e
}

// TestRoundTripPreservesIntegrity verifies that an entry survives the
// JSONB round trip with a hash that still verifies.
func (s *PostgresLedgerSuite) TestRoundTripPreservesIntegrity() {
	ctx := context.Background()
	correlationID := id.CorrelationID(uuid.New())
	entry := s.entry(correlationID, ledger.ActionPolicyCheck, time.Now().UTC())
	entry.References = []ledger.Reference{{Kind: ledger.RefIncident, Value: "INC-99"}}
	entry.PolicyDecisionID = "pd-123"
	entry.Hash = entry.ComputeHash()

	s.Require().NoError(s.store.Append(ctx, entry))

	got, err := s.store.ListByCorrelation(ctx, s.orgID, correlationID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(entry.ID, got[0].ID)
	s.Equal("pd-123", got[0].PolicyDecisionID)
	s.True(got[0].Verify(), "hash must verify after a database round trip")
}

// TestChronologicalOrder: trails come back oldest first regardless of
// insertion order.
func (s *PostgresLedgerSuite) TestChronologicalOrder() {
	ctx := context.Background()
	correlationID := id.CorrelationID(uuid.New())
	base := time.Now().UTC().Add(-time.Hour)

	second := s.entry(correlationID, ledger.ActionResolution, base.Add(time.Minute))
	first := s.entry(correlationID, ledger.ActionPolicyCheck, base)
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, first))

	got, err := s.store.ListByCorrelation(ctx, s.orgID, correlationID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(ledger.ActionPolicyCheck, got[0].Action)
	s.Equal(ledger.ActionResolution, got[1].Action)
}

// TestReferenceQueryUsesContainment: the refs JSONB containment query finds
// entries by incident and claim without matching unrelated references.
func (s *PostgresLedgerSuite) TestReferenceQueryUsesContainment() {
	ctx := context.Background()
	tagged := s.entry(id.CorrelationID(uuid.New()), ledger.ActionSendAttempt, time.Now().UTC())
	tagged.References = []ledger.Reference{
		{Kind: ledger.RefIncident, Value: "INC-7"},
		{Kind: ledger.RefClaim, Value: "CLM-8"},
	}
	tagged.Hash = tagged.ComputeHash()
	other := s.entry(id.CorrelationID(uuid.New()), ledger.ActionSendAttempt, time.Now().UTC())

	s.Require().NoError(s.store.Append(ctx, tagged))
	s.Require().NoError(s.store.Append(ctx, other))

	byIncident, err := s.store.ListByReference(ctx, s.orgID, ledger.RefIncident, "INC-7")
	s.Require().NoError(err)
	s.Require().Len(byIncident, 1)
	s.Equal(tagged.ID, byIncident[0].ID)

	byClaim, err := s.store.ListByReference(ctx, s.orgID, ledger.RefClaim, "CLM-8")
	s.Require().NoError(err)
	s.Require().Len(byClaim, 1)

	none, err := s.store.ListByReference(ctx, s.orgID, ledger.RefIncident, "INC-404")
	s.Require().NoError(err)
	s.Empty(none)
}

// TestOrgScoping: another org's trail is invisible.
func (s *PostgresLedgerSuite) TestOrgScoping() {
	ctx := context.Background()
	correlationID := id.CorrelationID(uuid.New())
	entry := s.entry(correlationID, ledger.ActionReceive, time.Now().UTC())
	s.Require().NoError(s.store.Append(ctx, entry))

	got, err := s.store.ListByCorrelation(ctx, id.OrgID(uuid.New()), correlationID)
	s.Require().NoError(err)
	s.Empty(got)
}
