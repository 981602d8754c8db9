package resolution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "docrelay/pkg/domain"
)

// =============================================================================
// Resolution Engine Test Suite
// =============================================================================
// Justification for unit tests: the cascade decides where regulated documents
// are sent. Tests pin the layer ordering, every strategy's confidence, the
// conflict penalty and agreement boost arithmetic, the review threshold, and
// the restricted layer-3 rules.

type EngineSuite struct {
	suite.Suite
	store  *InMemoryStore
	engine *Engine
	orgID  id.OrgID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.engine = NewEngine(DefaultConfig(), s.store)
	s.orgID = id.OrgID(uuid.New())
}

func (s *EngineSuite) addContact(c DestinationContact) DestinationContact {
	if c.ID.IsNil() {
		c.ID = id.ContactID(uuid.New())
	}
	c.OrgID = s.orgID
	c.Active = true
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.Require().NoError(s.store.SaveContact(context.Background(), c))
	return c
}

func (s *EngineSuite) resolve(query Query) Result {
	result, err := s.engine.Resolve(context.Background(), s.orgID, query)
	s.Require().NoError(err)
	return result
}

// =============================================================================
// Layer 1
// =============================================================================

func (s *EngineSuite) TestLayer1ExactDepartmentMatch() {
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})

	result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})

	s.True(result.Resolved)
	s.Equal(LayerInternal, result.SourceLayer)
	s.InDelta(1.0, result.Confidence, 0.001)
	s.Equal("+15550100200", result.Value)
	s.False(result.RequiresHumanReview)
	s.NotEmpty(result.Trail)
}

func (s *EngineSuite) TestLayer1StrategyConfidences() {
	s.Run("identifier match", func() {
		s.SetupTest()
		s.addContact(DestinationContact{
			Name: "Eastside Imaging", Department: "radiology",
			NPI: "1112223334", FaxNumber: "+15550100300", Layer: LayerInternal,
		})
		result := s.resolve(Query{DestinationName: "Other Name", Identifier: "1112223334", DocumentType: "claim"})
		s.True(result.Resolved)
		s.InDelta(0.98, result.Confidence, 0.001)
	})

	s.Run("general department fallback", func() {
		s.SetupTest()
		s.addContact(DestinationContact{
			Name: "City Hospital", Department: DepartmentGeneral,
			FaxNumber: "+15550100400", Layer: LayerInternal,
		})
		result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})
		s.True(result.Resolved)
		s.InDelta(0.95, result.Confidence, 0.001)
	})

	s.Run("recent success", func() {
		s.SetupTest()
		at := time.Now().UTC().Add(-time.Hour)
		s.addContact(DestinationContact{
			Name: "City Hospital", Department: "radiology",
			FaxNumber: "+15550100500", Layer: LayerInternal,
			SuccessCount: 3, LastSuccessAt: &at,
		})
		result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})
		s.True(result.Resolved)
		s.InDelta(0.92, result.Confidence, 0.001)
	})

	s.Run("fuzzy name and address", func() {
		s.SetupTest()
		s.addContact(DestinationContact{
			Name: "City Hospitall", Address: "100 Main Street",
			Department: "records", FaxNumber: "+15550100600", Layer: LayerInternal,
		})
		result := s.resolve(Query{
			DestinationName: "City Hospital", Address: "100 Main Street",
			DocumentType: "authorization",
		})
		s.True(result.Resolved)
		s.InDelta(0.90, result.Confidence, 0.001)
	})
}

func (s *EngineSuite) TestLayer1PreferredOverLowerLayers() {
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15559999999", Layer: LayerAgency, Verified: true,
	})

	result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})

	s.Equal(LayerInternal, result.SourceLayer)
	s.Equal("+15550100200", result.Value)
}

// =============================================================================
// Conflicts and agreement
// =============================================================================

func (s *EngineSuite) TestConflictingCandidatesDowngraded() {
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100999", Layer: LayerInternal,
	})

	result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})

	s.True(result.Resolved)
	s.InDelta(0.7, result.Confidence, 0.001) // 1.0 x 0.7
	s.True(result.RequiresHumanReview)
	s.Len(result.Conflicts, 2)

	var conflictStep bool
	for _, step := range result.Trail {
		if step.Action == "conflict" {
			conflictStep = true
		}
	}
	s.True(conflictStep)
}

func (s *EngineSuite) TestAgreeingCandidatesBoostedAndCapped() {
	// Same fax via two distinct records: agreement, not conflict.
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: DepartmentGeneral,
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})

	result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})

	s.True(result.Resolved)
	s.InDelta(1.0, result.Confidence, 0.001) // 1.0 x 1.05 capped
	s.False(result.RequiresHumanReview)
	s.Empty(result.Conflicts)
}

func (s *EngineSuite) TestDedupeKeepsHighestConfidencePerContact() {
	at := time.Now().UTC().Add(-time.Hour)
	s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions", NPI: "5556667778",
		FaxNumber: "+15550100200", Layer: LayerInternal,
		SuccessCount: 1, LastSuccessAt: &at,
	})

	// One contact matched by department, identifier, and recent success must
	// count once, at the exact-department confidence, with no agreement
	// boost.
	result := s.resolve(Query{
		DestinationName: "City Hospital", Identifier: "5556667778",
		DocumentType: "authorization",
	})

	s.True(result.Resolved)
	s.InDelta(1.0, result.Confidence, 0.001)
	s.Empty(result.Conflicts)
}

// =============================================================================
// Layer 2
// =============================================================================

func (s *EngineSuite) TestLayer2VerifiedExactDepartment() {
	s.addContact(DestinationContact{
		Name: "Regional Clinic", Department: "admissions",
		FaxNumber: "+15550200300", Layer: LayerAgency, Verified: true,
	})

	result := s.resolve(Query{DestinationName: "Regional Clinic", DocumentType: "authorization"})

	s.True(result.Resolved)
	s.Equal(LayerAgency, result.SourceLayer)
	s.InDelta(0.95, result.Confidence, 0.001) // 0.92 + verified boost
	s.False(result.RequiresHumanReview)
}

func (s *EngineSuite) TestLayer2UnverifiedStaysInBaseBand() {
	s.addContact(DestinationContact{
		Name: "Regional Clinic", Department: "admissions",
		FaxNumber: "+15550200300", Layer: LayerAgency,
	})

	result := s.resolve(Query{DestinationName: "Regional Clinic", DocumentType: "authorization"})

	s.True(result.Resolved)
	s.InDelta(0.92, result.Confidence, 0.001)
	s.False(result.RequiresHumanReview)
}

// =============================================================================
// Layer 3
// =============================================================================

func (s *EngineSuite) TestLayer3IdentifierMatch() {
	s.addContact(DestinationContact{
		Name: "State Reference Facility", City: "Springfield",
		FacilityID: "FAC-100", FaxNumber: "+15550300400", Layer: LayerExternal,
	})

	result := s.resolve(Query{
		DestinationName: "State Reference Facility", Identifier: "FAC-100",
		DocumentType: "claim",
	})

	s.True(result.Resolved)
	s.Equal(LayerExternal, result.SourceLayer)
	// Identifier and name strategies both hit the same record; dedupe
	// collapses them, so no agreement boost applies.
	s.InDelta(0.80, result.Confidence, 0.001)
	s.True(result.RequiresHumanReview) // below 0.85
}

func (s *EngineSuite) TestLayer3NameOnlyForcesReview() {
	s.addContact(DestinationContact{
		Name: "County Records Office", City: "Springfield",
		FaxNumber: "+15550300500", Layer: LayerExternal,
	})

	result := s.resolve(Query{DestinationName: "County Records Office", DocumentType: "medical_records"})

	s.True(result.Resolved)
	s.InDelta(0.75, result.Confidence, 0.001)
	s.True(result.RequiresHumanReview) // no strong identifier
}

// =============================================================================
// Layer 4
// =============================================================================

func (s *EngineSuite) TestLayer4Terminal() {
	result := s.resolve(Query{DestinationName: "Nowhere Clinic", DocumentType: "referral"})

	s.False(result.Resolved)
	s.Equal(LayerHuman, result.SourceLayer)
	s.Zero(result.Confidence)
	s.True(result.RequiresHumanReview)

	// Every layer visited left a trail step plus the terminal handoff.
	s.Require().Len(result.Trail, 4)
	s.Equal(LayerInternal, result.Trail[0].Layer)
	s.Equal(LayerAgency, result.Trail[1].Layer)
	s.Equal(LayerExternal, result.Trail[2].Layer)
	s.Equal(LayerHuman, result.Trail[3].Layer)
}

// =============================================================================
// Department routing
// =============================================================================

func (s *EngineSuite) TestDepartmentRouting() {
	cfg := DefaultConfig()
	s.Equal("admissions", cfg.RouteDepartment("authorization"))
	s.Equal("health_information", cfg.RouteDepartment("medical_records"))
	s.Equal("appeals", cfg.RouteDepartment("denial"))
	s.Equal("billing", cfg.RouteDepartment("claim"))
	s.Equal("case_management", cfg.RouteDepartment("referral"))
	s.Equal(DepartmentGeneral, cfg.RouteDepartment("mystery_document"))
}

func (s *EngineSuite) TestInactiveContactsIgnored() {
	contact := s.addContact(DestinationContact{
		Name: "City Hospital", Department: "admissions",
		FaxNumber: "+15550100200", Layer: LayerInternal,
	})
	replacement := id.ContactID(uuid.New())
	s.Require().NoError(s.store.Supersede(context.Background(), s.orgID, contact.ID, replacement))

	result := s.resolve(Query{DestinationName: "City Hospital", DocumentType: "authorization"})
	s.False(result.Resolved)
}
