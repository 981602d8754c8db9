package orchestrator

import (
	"context"

	id "docrelay/pkg/domain"
	dErrors "docrelay/pkg/domain-errors"
)

// ClassifyFailure maps an error to a failure type using its domain code.
// Unknown errors fall into the generic bucket rather than guessing.
func ClassifyFailure(err error) FailureType {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvalidDestination):
		return FailureInvalidDestination
	case dErrors.HasCode(err, dErrors.CodeTransmissionFailure):
		return FailureTransmission
	case dErrors.HasCode(err, dErrors.CodeUnmatchedResponse):
		return FailureUnmatchedResponse
	default:
		return FailureGeneric
	}
}

// HandleFailure produces guidance for a delivery failure. It is advisory:
// the one side effect it ever takes is halting automated retries once a
// transmission failure reaches the retry cap, so a stuck request cannot
// loop forever. Everything else is left to the caller.
func (s *Service) HandleFailure(ctx context.Context, orgID id.OrgID, correlationID id.CorrelationID, failureType FailureType, outboundID id.OutboundID) Recommendation {
	rec := Recommendation{FailureType: failureType}

	switch failureType {
	case FailureInvalidDestination:
		rec.Escalate = true
		rec.NextSteps = []string{
			"the resolved destination was rejected by the provider",
			"verify the destination fax number manually",
			"promote a corrected contact before retrying",
		}
	case FailureTransmission:
		retryCount := s.retryCountFor(ctx, orgID, outboundID)
		if retryCount < s.maxRetries {
			rec.Retryable = true
			rec.NextSteps = []string{
				"transient transmission failure; the request may be retried",
				"retries are scheduled by the timing rules, not immediately",
			}
		} else {
			rec.Escalate = true
			rec.NextSteps = []string{
				"transmission retry limit reached; escalate to a human operator",
			}
			if !outboundID.IsNil() {
				if err := s.requests.HaltRetries(ctx, orgID, outboundID); err != nil {
					s.logger.ErrorContext(ctx, "halt retries failed",
						"outbound_id", outboundID.String(),
						"error", err,
					)
				}
			}
		}
	case FailureUnmatchedResponse:
		rec.Escalate = true
		rec.NextSteps = []string{
			"an inbound response could not be matched to any outstanding request",
			"review the manual reconciliation queue",
		}
	default:
		rec.FailureType = FailureGeneric
		rec.Escalate = true
		rec.NextSteps = []string{
			"inspect the audit trail for correlation id " + correlationID.String(),
		}
	}
	s.metrics.IncFailure(string(rec.FailureType))
	return rec
}

// retryCountFor bumps and reads the retry counter for the failed record.
// A missing record counts as already at the cap so the caller escalates
// instead of retrying something that cannot be found.
func (s *Service) retryCountFor(ctx context.Context, orgID id.OrgID, outboundID id.OutboundID) int {
	if outboundID.IsNil() {
		return s.maxRetries
	}
	count, err := s.requests.IncrementRetry(ctx, orgID, outboundID)
	if err != nil {
		s.logger.WarnContext(ctx, "retry counter unavailable",
			"outbound_id", outboundID.String(),
			"error", err,
		)
		return s.maxRetries
	}
	return count
}
