package resolution

import (
	"time"

	id "docrelay/pkg/domain"
)

// AuthorityLayer orders contact sources most-trusted first. Resolution never
// consults a lower layer once a higher one yields a result.
type AuthorityLayer int

const (
	LayerInternal AuthorityLayer = 1 // curated by internal workflows
	LayerAgency   AuthorityLayer = 2 // entered by agency staff
	LayerExternal AuthorityLayer = 3 // bulk-loaded approved reference data
	LayerHuman    AuthorityLayer = 4 // no data; a human must resolve
)

// DestinationContact is a known address for a named destination. Records are
// never deleted: a correction creates a replacement and marks the old record
// inactive with ReplacedByID set.
type DestinationContact struct {
	ID    id.ContactID
	OrgID id.OrgID

	Name    string
	Address string
	City    string
	State   string
	Zip     string

	// Alternate identifiers. Any one of these is a strong identifier for
	// layer-3 purposes.
	NPI            string
	FacilityID     string
	StateLicenseID string

	FaxNumber  string
	Department string

	Layer    AuthorityLayer
	Verified bool

	SuccessCount  int
	FailureCount  int
	LastSuccessAt *time.Time

	Active       bool
	ReplacedByID id.ContactID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasStrongIdentifier reports whether the contact carries a unique external
// identifier.
func (c *DestinationContact) HasStrongIdentifier() bool {
	return c.NPI != "" || c.FacilityID != "" || c.StateLicenseID != ""
}

// MatchesIdentifier reports whether any identifier equals the given value.
func (c *DestinationContact) MatchesIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}
	return c.NPI == identifier || c.FacilityID == identifier || c.StateLicenseID == identifier
}

// Query is one resolution request. Identifier and Address are optional;
// WorkflowContext is carried into the history row for later review.
type Query struct {
	DestinationName string
	Address         string
	Identifier      string
	DocumentType    string
	WorkflowContext string
}

// TrailStep is one entry in a resolution's ordered audit trail. Every layer
// visited appends a step whether or not it produced a candidate.
type TrailStep struct {
	Layer     AuthorityLayer `json:"layer"`
	Source    string         `json:"source"`
	Action    string         `json:"action"`
	Result    string         `json:"result"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Result is the outcome of one resolution call.
type Result struct {
	Resolved            bool
	Value               string
	SourceLayer         AuthorityLayer
	Confidence          float64
	Department          string
	RequiresHumanReview bool

	// Conflicts lists the disagreeing destination values when deduplicated
	// candidates proposed different numbers.
	Conflicts []string

	Trail     []TrailStep
	ContactID id.ContactID
}

// History is a Result persisted once per resolution call. It is immutable
// after creation except for the human-review annotation fields.
type History struct {
	ID            id.HistoryID
	OrgID         id.OrgID
	CorrelationID id.CorrelationID

	DestinationName string
	DocumentType    string
	WorkflowContext string

	Resolved            bool
	Value               string
	SourceLayer         AuthorityLayer
	Confidence          float64
	Department          string
	RequiresHumanReview bool
	Conflicts           []string
	Trail               []TrailStep
	ContactID           id.ContactID

	// Review annotations, the only permitted post-write mutation.
	Reviewed            bool
	Reviewer            string
	ConfirmedValue      string
	ConfirmedDepartment string
	PromotedContactID   id.ContactID

	CreatedAt time.Time
}

// candidate is one strategy hit before dedup and scoring.
type candidate struct {
	contact    *DestinationContact
	confidence float64
	strategy   string
}
