package inbound

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docrelay/internal/inbound/ports"
	"docrelay/internal/outbound"
	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	"docrelay/pkg/platform/similarity"
)

// Factor weights. The weighted sum is the match score; weights total 1.0
// with the date-of-birth bonus on top of the name factor.
const (
	weightReferenceID     = 0.40
	weightSender          = 0.25
	weightName            = 0.15
	bonusDOB              = 0.05
	weightServiceDate     = 0.10
	weightDestinationName = 0.05
)

// Decision thresholds over the total score.
const (
	// ThresholdAutoAttach and above: attach, halt retries, update workflow.
	ThresholdAutoAttach = 0.85
	// ThresholdReview and above (but below auto-attach): propose the match
	// for human review without attaching.
	ThresholdReview = 0.60
)

// OutstandingLister supplies match candidates still awaiting a response.
type OutstandingLister interface {
	ListOutstandingByDestination(ctx context.Context, orgID id.OrgID, destinationValue string) ([]outbound.Request, error)
}

// ContactDirectory is the fallback candidate source: contacts sharing the
// sender identifier whose fax numbers the requests were addressed to.
type ContactDirectory interface {
	ListActiveByAnyIdentifier(ctx context.Context, orgID id.OrgID, identifier string) ([]resolution.DestinationContact, error)
}

// Matcher scores an inbound document against outstanding outbound requests.
type Matcher struct {
	requests OutstandingLister
	contacts ContactDirectory
}

func NewMatcher(requests OutstandingLister, contacts ContactDirectory) *Matcher {
	return &Matcher{requests: requests, contacts: contacts}
}

// Match gathers candidates and returns one scored attempt per candidate,
// ordered best first. Nothing is persisted here; the caller owns attempt
// durability and the selected flag.
func (m *Matcher) Match(ctx context.Context, orgID id.OrgID, doc InboundDocument, fields map[string]string) ([]MatchAttempt, error) {
	candidates, err := m.gatherCandidates(ctx, orgID, doc.SenderIdentifier)
	if err != nil {
		return nil, err
	}

	attempts := make([]MatchAttempt, 0, len(candidates))
	for _, candidate := range candidates {
		attempts = append(attempts, m.score(doc, candidate, fields))
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].TotalScore > attempts[j].TotalScore
	})
	return attempts, nil
}

// gatherCandidates fetches the direct and fallback candidate sets
// concurrently. Direct candidates (requests sent to the sender identifier)
// win outright; the contact-directory fallback is used only when the direct
// set is empty.
func (m *Matcher) gatherCandidates(ctx context.Context, orgID id.OrgID, senderIdentifier string) ([]outbound.Request, error) {
	var direct, fallback []outbound.Request

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		direct, err = m.requests.ListOutstandingByDestination(gctx, orgID, senderIdentifier)
		return err
	})
	g.Go(func() error {
		contacts, err := m.contacts.ListActiveByAnyIdentifier(gctx, orgID, senderIdentifier)
		if err != nil {
			return err
		}
		seen := map[string]bool{senderIdentifier: true}
		for _, contact := range contacts {
			if contact.FaxNumber == "" || seen[contact.FaxNumber] {
				continue
			}
			seen[contact.FaxNumber] = true
			requests, err := m.requests.ListOutstandingByDestination(gctx, orgID, contact.FaxNumber)
			if err != nil {
				return err
			}
			fallback = append(fallback, requests...)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(direct) > 0 {
		return direct, nil
	}
	return fallback, nil
}

func (m *Matcher) score(doc InboundDocument, candidate outbound.Request, fields map[string]string) MatchAttempt {
	attempt := MatchAttempt{
		ID:            id.AttemptID(uuid.New()),
		OrgID:         doc.OrgID,
		DocumentID:    doc.ID,
		OutboundID:    candidate.ID,
		CorrelationID: candidate.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}
	md := candidate.Metadata

	if ref := fields[ports.FieldReferenceID]; ref != "" && ref == md.ReferenceID {
		attempt.ReferenceIDScore = weightReferenceID
	}
	if candidate.DestinationValue != "" && candidate.DestinationValue == doc.SenderIdentifier {
		attempt.SenderScore = weightSender
	}
	if name := fields[ports.FieldPatientName]; name != "" && md.PatientName != "" {
		attempt.NameScore = similarity.Ratio(name, md.PatientName) * weightName
	}
	if dob := fields[ports.FieldPatientDOB]; dob != "" && dob == md.PatientDOB {
		attempt.DOBBonus = bonusDOB
	}
	if date := fields[ports.FieldServiceDate]; date != "" && md.ServiceDate != "" {
		attempt.ServiceDateScore = similarity.Ratio(date, md.ServiceDate) * weightServiceDate
	}
	if dest := fields[ports.FieldDestinationName]; dest != "" && candidate.DestinationName != "" {
		attempt.DestinationNameScore = similarity.Ratio(dest, candidate.DestinationName) * weightDestinationName
	}

	attempt.TotalScore = attempt.ReferenceIDScore +
		attempt.SenderScore +
		attempt.NameScore +
		attempt.DOBBonus +
		attempt.ServiceDateScore +
		attempt.DestinationNameScore
	return attempt
}
