package resolution

import (
	"context"
	"errors"
	"fmt"

	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/sentinel"
	"docrelay/pkg/platform/similarity"
	"docrelay/pkg/requestcontext"
)

// Engine walks the four-layer authority cascade. It only consults pre-loaded,
// authority-tagged records; there is no network lookup and no guessing. The
// first layer that yields a candidate terminates the cascade.
type Engine struct {
	cfg   Config
	store Store
}

func NewEngine(cfg Config, store Store) *Engine {
	return &Engine{cfg: cfg, store: store}
}

// Strategy tags recorded in trail steps and candidate provenance.
const (
	strategyExactDepartment = "exact_name_department"
	strategyExactGeneral    = "exact_name_general"
	strategyIdentifier      = "identifier"
	strategyFuzzy           = "fuzzy_name_address"
	strategyRecentSuccess   = "recent_success"
	strategyNameCity        = "name_city"
)

var layerSources = map[AuthorityLayer]string{
	LayerInternal: "internal",
	LayerAgency:   "agency",
	LayerExternal: "external_reference",
	LayerHuman:    "human_review",
}

// Resolve runs the cascade for one query. Every layer visited appends a trail
// step, so the returned trail always has at least one entry.
func (e *Engine) Resolve(ctx context.Context, orgID id.OrgID, query Query) (Result, error) {
	department := e.cfg.RouteDepartment(query.DocumentType)
	result := Result{Department: department}

	for _, layer := range []AuthorityLayer{LayerInternal, LayerAgency, LayerExternal} {
		candidates, err := e.layerCandidates(ctx, orgID, layer, query, department)
		if err != nil {
			result.Trail = append(result.Trail, e.step(ctx, layer, "lookup", "error", map[string]any{
				"error": err.Error(),
			}))
			return result, fmt.Errorf("layer %d lookup: %w", layer, err)
		}

		if len(candidates) == 0 {
			result.Trail = append(result.Trail, e.step(ctx, layer, "lookup", "no candidates", nil))
			continue
		}

		e.score(ctx, layer, candidates, &result)
		return result, nil
	}

	// Layer 4: terminal, a human must supply the destination.
	result.Trail = append(result.Trail, e.step(ctx, LayerHuman, "handoff",
		"no authoritative source; human review required", nil))
	result.Resolved = false
	result.SourceLayer = LayerHuman
	result.Confidence = 0
	result.RequiresHumanReview = true
	return result, nil
}

// layerCandidates runs each matching strategy for the layer, in order of
// preference, and returns the raw (pre-dedup) candidate set.
func (e *Engine) layerCandidates(ctx context.Context, orgID id.OrgID, layer AuthorityLayer, query Query, department string) ([]candidate, error) {
	if layer == LayerExternal {
		return e.externalCandidates(ctx, orgID, query)
	}

	var out []candidate

	byName, err := e.store.ListActiveByName(ctx, orgID, query.DestinationName, layer)
	if err != nil {
		return nil, err
	}
	for i := range byName {
		c := byName[i]
		switch {
		case c.Department == department:
			out = append(out, candidate{contact: &byName[i], confidence: e.base(layer, strategyExactDepartment), strategy: strategyExactDepartment})
		case c.Department == DepartmentGeneral:
			out = append(out, candidate{contact: &byName[i], confidence: e.base(layer, strategyExactGeneral), strategy: strategyExactGeneral})
		}
	}

	if query.Identifier != "" {
		byIdent, err := e.store.ListActiveByIdentifier(ctx, orgID, query.Identifier, layer)
		if err != nil {
			return nil, err
		}
		for i := range byIdent {
			out = append(out, candidate{contact: &byIdent[i], confidence: e.base(layer, strategyIdentifier), strategy: strategyIdentifier})
		}
	}

	fuzzy, err := e.fuzzyCandidates(ctx, orgID, layer, query)
	if err != nil {
		return nil, err
	}
	out = append(out, fuzzy...)

	recent, err := e.store.FindMostRecentSuccess(ctx, orgID, query.DestinationName, layer)
	switch {
	case err == nil:
		out = append(out, candidate{contact: &recent, confidence: e.base(layer, strategyRecentSuccess), strategy: strategyRecentSuccess})
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, err
	}

	return out, nil
}

// externalCandidates applies the restricted layer-3 strategies: identifier
// matches, then name+city matches capped at 0.75.
func (e *Engine) externalCandidates(ctx context.Context, orgID id.OrgID, query Query) ([]candidate, error) {
	var out []candidate

	if query.Identifier != "" {
		byIdent, err := e.store.ListActiveByIdentifier(ctx, orgID, query.Identifier, LayerExternal)
		if err != nil {
			return nil, err
		}
		for i := range byIdent {
			out = append(out, candidate{contact: &byIdent[i], confidence: 0.80, strategy: strategyIdentifier})
		}
	}

	contacts, err := e.store.ListActiveByName(ctx, orgID, query.DestinationName, LayerExternal)
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		out = append(out, candidate{contact: &contacts[i], confidence: 0.75, strategy: strategyNameCity})
	}
	return out, nil
}

func (e *Engine) fuzzyCandidates(ctx context.Context, orgID id.OrgID, layer AuthorityLayer, query Query) ([]candidate, error) {
	if query.Address == "" {
		return nil, nil
	}
	contacts, err := e.store.ListActiveByLayer(ctx, orgID, layer)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for i := range contacts {
		c := &contacts[i]
		if similarity.Ratio(c.Name, query.DestinationName) < e.cfg.FuzzyNameFloor {
			continue
		}
		if similarity.Ratio(c.Address, query.Address) < e.cfg.FuzzyAddressFloor {
			continue
		}
		out = append(out, candidate{contact: c, confidence: e.base(layer, strategyFuzzy), strategy: strategyFuzzy})
	}
	return out, nil
}

// base confidence per layer and strategy. Layer 2 mirrors layer 1 at lower
// trust; verified agency records are lifted by verifiedBoost afterwards.
func (e *Engine) base(layer AuthorityLayer, strategy string) float64 {
	if layer == LayerInternal {
		switch strategy {
		case strategyExactDepartment:
			return 1.0
		case strategyIdentifier:
			return 0.98
		case strategyExactGeneral:
			return 0.95
		case strategyRecentSuccess:
			return 0.92
		case strategyFuzzy:
			return 0.90
		}
	}
	// Layer 2 base band is 0.90-0.92 before the verified boost.
	switch strategy {
	case strategyExactDepartment:
		return 0.92
	case strategyIdentifier:
		return 0.91
	default:
		return 0.90
	}
}

// verifiedBoost lifts verified agency records to at least 0.93, capped at
// 0.95.
func verifiedBoost(confidence float64) float64 {
	boosted := confidence + 0.03
	if boosted < 0.93 {
		boosted = 0.93
	}
	if boosted > 0.95 {
		boosted = 0.95
	}
	return boosted
}

// score deduplicates candidates by contact identity, applies the conflict
// penalty or agreement boost, and finalizes the result for the layer.
func (e *Engine) score(ctx context.Context, layer AuthorityLayer, candidates []candidate, result *Result) {
	deduped := dedupe(candidates)

	if layer == LayerAgency {
		for i := range deduped {
			if deduped[i].contact.Verified {
				deduped[i].confidence = verifiedBoost(deduped[i].confidence)
			}
		}
	}

	winner := deduped[0]
	for _, c := range deduped[1:] {
		if c.confidence > winner.confidence {
			winner = c
		}
	}

	values := distinctValues(deduped)
	confidence := winner.confidence
	switch {
	case len(values) > 1:
		confidence *= e.cfg.ConflictPenalty
		result.Conflicts = values
	case len(deduped) > 1:
		confidence *= e.cfg.AgreementBoost
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	result.Resolved = true
	result.Value = winner.contact.FaxNumber
	result.SourceLayer = layer
	result.Confidence = confidence
	result.ContactID = winner.contact.ID

	detail := map[string]any{
		"strategy":   winner.strategy,
		"candidates": len(deduped),
		"contact_id": winner.contact.ID.String(),
		"confidence": confidence,
	}
	result.Trail = append(result.Trail, e.step(ctx, layer, "match",
		fmt.Sprintf("resolved via %s", winner.strategy), detail))

	if len(values) > 1 {
		result.Trail = append(result.Trail, e.step(ctx, layer, "conflict",
			"candidates disagree on destination value; confidence downgraded",
			map[string]any{"values": values}))
	}

	switch layer {
	case LayerExternal:
		// External reference data is never trusted unattended below 0.85 or
		// without a strong identifier.
		if confidence < 0.85 || !winner.contact.HasStrongIdentifier() {
			result.RequiresHumanReview = true
		}
	default:
		if confidence < e.cfg.ReviewThreshold {
			result.RequiresHumanReview = true
		}
	}
}

// dedupe keeps the highest base confidence per contact identity, preserving
// first-seen (strategy preference) order.
func dedupe(candidates []candidate) []candidate {
	byID := make(map[id.ContactID]int)
	var out []candidate
	for _, c := range candidates {
		idx, seen := byID[c.contact.ID]
		if !seen {
			byID[c.contact.ID] = len(out)
			out = append(out, c)
			continue
		}
		if c.confidence > out[idx].confidence {
			out[idx] = c
		}
	}
	return out
}

func distinctValues(candidates []candidate) []string {
	seen := make(map[string]bool)
	var values []string
	for _, c := range candidates {
		if !seen[c.contact.FaxNumber] {
			seen[c.contact.FaxNumber] = true
			values = append(values, c.contact.FaxNumber)
		}
	}
	if len(values) <= 1 {
		return nil
	}
	return values
}

func (e *Engine) step(ctx context.Context, layer AuthorityLayer, action, result string, detail map[string]any) TrailStep {
	return TrailStep{
		Layer:     layer,
		Source:    layerSources[layer],
		Action:    action,
		Result:    result,
		Detail:    detail,
		Timestamp: requestcontext.Now(ctx),
	}
}
