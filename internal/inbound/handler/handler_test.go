package handler

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrelay/internal/inbound"
	"docrelay/internal/inbound/ports"
	"docrelay/internal/ledger"
	"docrelay/internal/outbound"
	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	"docrelay/pkg/testutil"
)

// The handler tests drive the real reconciliation pipeline with in-memory
// stores. Match signals come in through provider metadata, which needs no
// extractor.
func newInboundRouter(t *testing.T) (http.Handler, *outbound.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := inbound.NewInMemoryStore()
	requests := outbound.NewInMemoryStore()
	contacts := resolution.NewInMemoryStore()
	ledgerSvc := ledger.NewService(ledger.NewInMemoryStore(), logger)

	svc := inbound.NewService(
		store,
		requests,
		inbound.NewClassifier(inbound.DefaultClassifierConfig()),
		inbound.NewMatcher(requests, contacts),
		ledgerSvc,
		logger,
	)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, requests
}

func seedOutstanding(t *testing.T, requests *outbound.InMemoryStore, orgID id.OrgID, referenceID string) outbound.Request {
	t.Helper()
	request := outbound.Request{
		ID:               id.OutboundID(uuid.New()),
		OrgID:            orgID,
		CorrelationID:    id.NewCorrelationID(),
		Direction:        outbound.DirectionOutbound,
		Status:           outbound.StatusDelivered,
		DestinationValue: "+15550100200",
		DestinationName:  "City Hospital",
		MaxRetries:       3,
		Metadata: outbound.Metadata{
			DocumentType: "authorization",
			ReferenceID:  referenceID,
			PatientName:  "Jordan Smith",
			PatientDOB:   "1980-04-02",
			ServiceDate:  "2026-08-01",
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, requests.Save(context.Background(), request))
	return request
}

func receiveBody(content string, metadata map[string]string) receiveRequest {
	return receiveRequest{
		SenderIdentifier: "+15550100200",
		Content:          base64.StdEncoding.EncodeToString([]byte(content)),
		PageCount:        2,
		ProviderMetadata: metadata,
	}
}

func TestReceive_AutoAttach(t *testing.T) {
	router, requests := newInboundRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	request := seedOutstanding(t, requests, orgID, "REF-1001")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", receiveBody("fax body", map[string]string{
		ports.FieldReferenceID: "REF-1001",
		ports.FieldPatientName: "Jordan Smith",
		ports.FieldPatientDOB:  "1980-04-02",
		ports.FieldServiceDate: "2026-08-01",
	}))
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[resultResponse](t, rr)
	assert.True(t, resp.Matched)
	assert.True(t, resp.AutoAttached)
	assert.True(t, resp.RetriesHalted)
	assert.False(t, resp.RequiresReview)
	assert.Equal(t, request.ID.String(), resp.Document.MatchedOutboundID)
}

func TestReceive_DuplicateReturns200(t *testing.T) {
	router, requests := newInboundRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	seedOutstanding(t, requests, orgID, "REF-1001")

	body := receiveBody("same body", nil)
	first := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", body)
	first = testutil.WithOrg(first, orgID.String())
	rr := testutil.DoRequest(router, first)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[resultResponse](t, rr)

	second := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", body)
	second = testutil.WithOrg(second, orgID.String())
	rr = testutil.DoRequest(router, second)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[resultResponse](t, rr)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, created.Document.ID, resp.Document.ID)
}

func TestReceive_RejectsBadBase64(t *testing.T) {
	router, _ := newInboundRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", receiveRequest{
		SenderIdentifier: "+15550100200",
		Content:          "not base64!!",
		PageCount:        1,
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestManualMatch(t *testing.T) {
	router, requests := newInboundRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	request := seedOutstanding(t, requests, orgID, "REF-3003")

	// no metadata signals, so the document lands unmatched
	receive := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", receiveBody("unlabeled page", nil))
	receive = testutil.WithOrg(receive, orgID.String())
	rr := testutil.DoRequest(router, receive)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	received := testutil.UnmarshalResponse[resultResponse](t, rr)

	match := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents/"+received.Document.ID+"/match", manualMatchRequest{
		OutboundID: request.ID.String(),
	})
	match = testutil.WithAuth(match, orgID.String(), "reviewer-5")
	rr = testutil.DoRequest(router, match)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[resultResponse](t, rr)
	assert.True(t, resp.Matched)
	assert.Equal(t, request.ID.String(), resp.Document.MatchedOutboundID)
	assert.Equal(t, "manual", resp.Document.MatchMethod)
	assert.Equal(t, "reviewer-5", resp.Document.Reviewer)
}

func TestListAttempts(t *testing.T) {
	router, requests := newInboundRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	seedOutstanding(t, requests, orgID, "REF-4004")

	receive := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", receiveBody("response page", map[string]string{
		ports.FieldReferenceID: "REF-4004",
	}))
	receive = testutil.WithOrg(receive, orgID.String())
	rr := testutil.DoRequest(router, receive)
	received := testutil.UnmarshalResponse[resultResponse](t, rr)

	req := testutil.NewRequest(t, http.MethodGet, "/inbound/documents/"+received.Document.ID+"/attempts")
	req = testutil.WithOrg(req, orgID.String())
	rr = testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[attemptsResponse](t, rr)
	require.Len(t, resp.Attempts, 1)
	assert.InDelta(t, 0.40, resp.Attempts[0].ReferenceIDScore, 0.001)
	assert.InDelta(t, 0.25, resp.Attempts[0].SenderScore, 0.001)
}

func TestQueues_ScopedToOrg(t *testing.T) {
	router, requests := newInboundRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	seedOutstanding(t, requests, orgID, "REF-5005")

	// reference + sender lands in the review band
	receive := testutil.NewJSONRequest(t, http.MethodPost, "/inbound/documents", receiveBody("review page", map[string]string{
		ports.FieldReferenceID: "REF-5005",
	}))
	receive = testutil.WithOrg(receive, orgID.String())
	rr := testutil.DoRequest(router, receive)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	req := testutil.NewRequest(t, http.MethodGet, "/inbound/reviews")
	req = testutil.WithOrg(req, orgID.String())
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[documentsResponse](t, rr)
	require.Len(t, resp.Documents, 1)

	otherOrg, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	req = testutil.NewRequest(t, http.MethodGet, "/inbound/reviews")
	req = testutil.WithOrg(req, otherOrg.String())
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	resp = testutil.UnmarshalResponse[documentsResponse](t, rr)
	assert.Empty(t, resp.Documents)
}
