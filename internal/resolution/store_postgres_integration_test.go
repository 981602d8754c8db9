//go:build integration

package resolution_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	"docrelay/pkg/testutil/containers"
)

type PostgresContactSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *resolution.PostgresStore
	orgID    id.OrgID
}

func TestPostgresContactSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresContactSuite))
}

func (s *PostgresContactSuite) SetupSuite() {
	s.postgres = containers.GetPostgres(s.T())
	s.store = resolution.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresContactSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"destination_contacts", "resolution_histories"))
	s.orgID = id.OrgID(uuid.New())
}

func (s *PostgresContactSuite) contact(name, fax string, layer resolution.AuthorityLayer) resolution.DestinationContact {
	now := time.Now().UTC()
	return resolution.DestinationContact{
		ID:        id.ContactID(uuid.New()),
		OrgID:     s.orgID,
		Name:      name,
		FaxNumber: fax,
		Layer:     layer,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestSupersedeDeactivatesPrior: superseding marks the old record inactive
// with the replacement link, and lookups stop returning it.
func (s *PostgresContactSuite) TestSupersedeDeactivatesPrior() {
	ctx := context.Background()
	old := s.contact("City Hospital", "+15550100200", resolution.LayerAgency)
	replacement := s.contact("City Hospital", "+15550100300", resolution.LayerInternal)
	s.Require().NoError(s.store.SaveContact(ctx, old))
	s.Require().NoError(s.store.SaveContact(ctx, replacement))

	s.Require().NoError(s.store.Supersede(ctx, s.orgID, old.ID, replacement.ID))

	got, err := s.store.FindContact(ctx, s.orgID, old.ID)
	s.Require().NoError(err)
	s.False(got.Active)
	s.Equal(replacement.ID, got.ReplacedByID)

	active, err := s.store.ListActiveByName(ctx, s.orgID, "city hospital", resolution.LayerAgency)
	s.Require().NoError(err)
	s.Empty(active)
}

// TestIdentifierLookupAcrossLayers: the layer-agnostic identifier lookup
// finds contacts wherever they live in the cascade.
func (s *PostgresContactSuite) TestIdentifierLookupAcrossLayers() {
	ctx := context.Background()
	internal := s.contact("Clinic A", "+15550200100", resolution.LayerInternal)
	internal.NPI = "1234567890"
	external := s.contact("Clinic B", "+15550200200", resolution.LayerExternal)
	external.FacilityID = "1234567890"
	s.Require().NoError(s.store.SaveContact(ctx, internal))
	s.Require().NoError(s.store.SaveContact(ctx, external))

	got, err := s.store.ListActiveByAnyIdentifier(ctx, s.orgID, "1234567890")
	s.Require().NoError(err)
	s.Len(got, 2)

	scoped, err := s.store.ListActiveByIdentifier(ctx, s.orgID, "1234567890", resolution.LayerExternal)
	s.Require().NoError(err)
	s.Require().Len(scoped, 1)
	s.Equal(external.ID, scoped[0].ID)
}

// TestRecordDeliveryOutcomeCounters: success updates the counter and the
// last-success timestamp; failure touches only the failure counter.
func (s *PostgresContactSuite) TestRecordDeliveryOutcomeCounters() {
	ctx := context.Background()
	contact := s.contact("Radiology Group", "+15550300100", resolution.LayerAgency)
	s.Require().NoError(s.store.SaveContact(ctx, contact))

	at := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.RecordDeliveryOutcome(ctx, s.orgID, contact.ID, true, at))
	s.Require().NoError(s.store.RecordDeliveryOutcome(ctx, s.orgID, contact.ID, false, at.Add(time.Minute)))

	got, err := s.store.FindContact(ctx, s.orgID, contact.ID)
	s.Require().NoError(err)
	s.Equal(1, got.SuccessCount)
	s.Equal(1, got.FailureCount)
	s.Require().NotNil(got.LastSuccessAt)
	s.WithinDuration(at, *got.LastSuccessAt, time.Second)
}

// TestHistoryRoundTripWithTrail: conflicts and the trail survive the JSONB
// round trip, and review annotation flips the queue membership.
func (s *PostgresContactSuite) TestHistoryRoundTripWithTrail() {
	ctx := context.Background()
	history := resolution.History{
		ID:                  id.HistoryID(uuid.New()),
		OrgID:               s.orgID,
		CorrelationID:       id.CorrelationID(uuid.New()),
		DestinationName:     "County Clinic",
		DocumentType:        "authorization",
		Resolved:            true,
		Value:               "+15550400100",
		SourceLayer:         resolution.LayerAgency,
		Confidence:          0.63,
		RequiresHumanReview: true,
		Conflicts:           []string{"+15550400100", "+15550400200"},
		Trail: []resolution.TrailStep{
			{Layer: resolution.LayerInternal, Source: "internal", Action: "lookup", Result: "no_candidates", Timestamp: time.Now().UTC()},
			{Layer: resolution.LayerAgency, Source: "agency", Action: "lookup", Result: "conflict", Timestamp: time.Now().UTC()},
		},
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.SaveHistory(ctx, history))

	pending, err := s.store.ListHistoriesRequiringReview(ctx, s.orgID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal([]string{"+15550400100", "+15550400200"}, pending[0].Conflicts)
	s.Require().Len(pending[0].Trail, 2)
	s.Equal("conflict", pending[0].Trail[1].Result)

	promoted := id.ContactID(uuid.New())
	s.Require().NoError(s.store.AnnotateReview(ctx, s.orgID, history.ID, resolution.ReviewAnnotation{
		Reviewer:            "reviewer-7",
		ConfirmedValue:      "+15550400100",
		ConfirmedDepartment: "admissions",
		PromotedContactID:   promoted,
	}))

	pending, err = s.store.ListHistoriesRequiringReview(ctx, s.orgID)
	s.Require().NoError(err)
	s.Empty(pending)

	got, err := s.store.FindHistory(ctx, s.orgID, history.ID)
	s.Require().NoError(err)
	s.True(got.Reviewed)
	s.Equal("reviewer-7", got.Reviewer)
	s.Equal(promoted, got.PromotedContactID)
}
