package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docrelay/internal/orchestrator/ports"
)

// Local implementations used when no collaborator URL is configured. They
// approve everything with deterministic identifiers so the full pipeline can
// run in development and tests without the external services.

// LocalPolicyChecker approves every request.
type LocalPolicyChecker struct{}

func (LocalPolicyChecker) Evaluate(_ context.Context, req ports.PolicyRequest) (ports.PolicyDecision, error) {
	return ports.PolicyDecision{
		Status:          ports.PolicyApproved,
		DecisionID:      uuid.NewString(),
		PolicyReference: "local/default-allow",
		Reasoning:       fmt.Sprintf("local policy: %s documents allowed", req.DocumentType),
	}, nil
}

// LocalTimingGate always allows sending immediately.
type LocalTimingGate struct{}

func (LocalTimingGate) CanSend(_ context.Context, _ ports.TimingRequest) (ports.TimingDecision, error) {
	return ports.TimingDecision{CanSend: true, AttemptNumber: 1}, nil
}

// LocalTransport reports success without sending anything. Latency mimics a
// real provider round trip.
type LocalTransport struct {
	Latency time.Duration
}

func (t LocalTransport) Send(_ context.Context, _ ports.SendRequest) (ports.SendResult, error) {
	time.Sleep(t.Latency)
	return ports.SendResult{Success: true, TrackingID: "local-" + uuid.NewString()}, nil
}
