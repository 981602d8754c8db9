// Package adapters provides client implementations of the orchestrator's
// ports. The policy rules, timing rules, and transport provider run as
// separate services; these clients speak JSON over HTTP to them.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docrelay/internal/orchestrator/ports"
	dErrors "docrelay/pkg/domain-errors"
)

const clientTimeout = 15 * time.Second

// PolicyClient calls a remote policy evaluation service.
type PolicyClient struct {
	baseURL string
	http    *http.Client
}

func NewPolicyClient(baseURL string) *PolicyClient {
	return &PolicyClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

type policyRequest struct {
	OrgID         string            `json:"org_id"`
	DocumentType  string            `json:"document_type"`
	WorkflowState string            `json:"workflow_state"`
	Context       map[string]string `json:"context,omitempty"`
}

type policyResponse struct {
	Status          string   `json:"status"`
	DecisionID      string   `json:"decision_id"`
	PolicyReference string   `json:"policy_reference"`
	Reasoning       string   `json:"reasoning"`
	NextSteps       []string `json:"next_steps"`
}

func (c *PolicyClient) Evaluate(ctx context.Context, req ports.PolicyRequest) (ports.PolicyDecision, error) {
	var resp policyResponse
	err := c.post(ctx, c.baseURL+"/evaluate", policyRequest{
		OrgID:         req.OrgID.String(),
		DocumentType:  req.DocumentType,
		WorkflowState: req.WorkflowState,
		Context:       req.Context,
	}, &resp)
	if err != nil {
		return ports.PolicyDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "policy service unavailable")
	}
	return ports.PolicyDecision{
		Status:          ports.PolicyStatus(resp.Status),
		DecisionID:      resp.DecisionID,
		PolicyReference: resp.PolicyReference,
		Reasoning:       resp.Reasoning,
		NextSteps:       resp.NextSteps,
	}, nil
}

func (c *PolicyClient) post(ctx context.Context, url string, in, out any) error {
	return postJSON(ctx, c.http, url, in, out)
}

// TimingClient calls a remote send-window service. Retry scheduling lives
// entirely on that side; this client only relays its verdict.
type TimingClient struct {
	baseURL string
	http    *http.Client
}

func NewTimingClient(baseURL string) *TimingClient {
	return &TimingClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

type timingRequest struct {
	CorrelationID     string    `json:"correlation_id"`
	DocumentType      string    `json:"document_type"`
	RequestCreatedAt  time.Time `json:"request_created_at"`
	ChannelConstraint string    `json:"channel_constraint,omitempty"`
}

type timingResponse struct {
	CanSend                bool       `json:"can_send"`
	Reason                 string     `json:"reason"`
	NextAllowedAt          *time.Time `json:"next_allowed_at"`
	AttemptNumber          int        `json:"attempt_number"`
	EscalationLimitReached bool       `json:"escalation_limit_reached"`
}

func (c *TimingClient) CanSend(ctx context.Context, req ports.TimingRequest) (ports.TimingDecision, error) {
	var resp timingResponse
	err := postJSON(ctx, c.http, c.baseURL+"/can-send", timingRequest{
		CorrelationID:     req.CorrelationID.String(),
		DocumentType:      req.DocumentType,
		RequestCreatedAt:  req.RequestCreatedAt,
		ChannelConstraint: req.ChannelConstraint,
	}, &resp)
	if err != nil {
		return ports.TimingDecision{}, dErrors.Wrap(err, dErrors.CodeInternal, "timing service unavailable")
	}
	return ports.TimingDecision{
		CanSend:                resp.CanSend,
		Reason:                 resp.Reason,
		NextAllowedAt:          resp.NextAllowedAt,
		AttemptNumber:          resp.AttemptNumber,
		EscalationLimitReached: resp.EscalationLimitReached,
	}, nil
}

// TransportClient submits documents to the delivery provider's gateway.
type TransportClient struct {
	baseURL string
	http    *http.Client
}

func NewTransportClient(baseURL string) *TransportClient {
	return &TransportClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

type sendRequest struct {
	CorrelationID    string `json:"correlation_id"`
	DestinationValue string `json:"destination_value"`
	DestinationName  string `json:"destination_name"`
	DocumentType     string `json:"document_type"`
	Payload          []byte `json:"payload"`
}

type sendResponse struct {
	Success    bool   `json:"success"`
	TrackingID string `json:"tracking_id"`
}

func (c *TransportClient) Send(ctx context.Context, req ports.SendRequest) (ports.SendResult, error) {
	var resp sendResponse
	err := postJSON(ctx, c.http, c.baseURL+"/send", sendRequest{
		CorrelationID:    req.CorrelationID.String(),
		DestinationValue: req.DestinationValue,
		DestinationName:  req.DestinationName,
		DocumentType:     req.DocumentType,
		Payload:          req.Payload,
	}, &resp)
	if err != nil {
		return ports.SendResult{}, dErrors.Wrap(err, dErrors.CodeTransmissionFailure, "transport provider unavailable")
	}
	return ports.SendResult{Success: resp.Success, TrackingID: resp.TrackingID}, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", url, httpResp.StatusCode)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
