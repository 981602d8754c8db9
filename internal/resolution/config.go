package resolution

import "strings"

// RoutingRule maps a document-type keyword onto a department tag. Rules are
// evaluated in order; the first keyword contained in the document type wins.
type RoutingRule struct {
	Keyword    string
	Department string
}

// Config gathers the tuning knobs of the resolution cascade. It is built once
// at startup and passed in immutable; components never reach for package
// state.
type Config struct {
	// ReviewThreshold forces human review at layers 1-2 when the final
	// confidence falls below it, even for resolved results.
	ReviewThreshold float64

	// ConflictPenalty multiplies the winner's confidence when deduplicated
	// candidates disagree on the destination value.
	ConflictPenalty float64

	// AgreementBoost multiplies confidence when independent candidates agree
	// on the same value, capped at 1.0.
	AgreementBoost float64

	// FuzzyNameFloor and FuzzyAddressFloor gate the fuzzy name+address
	// strategy.
	FuzzyNameFloor    float64
	FuzzyAddressFloor float64

	// DepartmentRouting routes document types to department tags. Unmatched
	// types route to DepartmentGeneral.
	DepartmentRouting []RoutingRule
}

// DepartmentGeneral is the fallback department tag.
const DepartmentGeneral = "general"

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ReviewThreshold:   0.8,
		ConflictPenalty:   0.7,
		AgreementBoost:    1.05,
		FuzzyNameFloor:    0.85,
		FuzzyAddressFloor: 0.80,
		DepartmentRouting: []RoutingRule{
			{Keyword: "authorization", Department: "admissions"},
			{Keyword: "medical_records", Department: "health_information"},
			{Keyword: "records_request", Department: "health_information"},
			{Keyword: "denial", Department: "appeals"},
			{Keyword: "appeal", Department: "appeals"},
			{Keyword: "claim", Department: "billing"},
			{Keyword: "invoice", Department: "billing"},
			{Keyword: "referral", Department: "case_management"},
			{Keyword: "discharge", Department: "case_management"},
		},
	}
}

// RouteDepartment maps a requested document type onto a department tag,
// falling back to the general department.
func (c Config) RouteDepartment(documentType string) string {
	normalized := strings.ToLower(strings.TrimSpace(documentType))
	if normalized == "" {
		return DepartmentGeneral
	}
	for _, rule := range c.DepartmentRouting {
		if strings.Contains(normalized, rule.Keyword) {
			return rule.Department
		}
	}
	return DepartmentGeneral
}
