package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrelay/internal/ledger"
	id "docrelay/pkg/domain"
	"docrelay/pkg/testutil"
)

func newLedgerRouter(t *testing.T) (http.Handler, *ledger.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ledger.NewService(ledger.NewInMemoryStore(), logger)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func appendEntry(t *testing.T, svc *ledger.Service, orgID id.OrgID, correlationID id.CorrelationID, refs []ledger.Reference) ledger.Entry {
	t.Helper()
	entry, err := svc.Append(context.Background(), ledger.Entry{
		OrgID:         orgID,
		CorrelationID: correlationID,
		Action:        ledger.ActionSendAttempt,
		Actor:         "reviewer-7",
		Outcome:       "success",
		Detail:        ledger.Detail{ledger.DetailAttemptNumber: 1},
		References:    refs,
	})
	require.NoError(t, err)
	return entry
}

func TestQueryByCorrelation(t *testing.T) {
	router, svc := newLedgerRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	correlationID := id.NewCorrelationID()

	appendEntry(t, svc, orgID, correlationID, nil)
	appendEntry(t, svc, orgID, correlationID, nil)
	appendEntry(t, svc, orgID, id.NewCorrelationID(), nil)

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/"+correlationID.String())
	req = testutil.WithAuth(req, orgID.String(), "reviewer-7")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[entriesResponse](t, rr)
	require.Len(t, resp.Entries, 2)
	for _, entry := range resp.Entries {
		assert.Equal(t, correlationID.String(), entry.CorrelationID)
		assert.Equal(t, "send_attempt", entry.Action)
		assert.NotEmpty(t, entry.Hash)
	}
}

func TestQueryByCorrelation_RejectsMalformedID(t *testing.T) {
	router, _ := newLedgerRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/not-a-uuid")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestQueryByIncidentAndClaim(t *testing.T) {
	router, svc := newLedgerRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)

	appendEntry(t, svc, orgID, id.NewCorrelationID(), []ledger.Reference{
		{Kind: ledger.RefIncident, Value: "INC-100"},
		{Kind: ledger.RefClaim, Value: "CLM-200"},
	})
	appendEntry(t, svc, orgID, id.NewCorrelationID(), []ledger.Reference{
		{Kind: ledger.RefIncident, Value: "INC-999"},
	})

	req := testutil.NewRequest(t, http.MethodGet, "/audit/incidents/INC-100")
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[entriesResponse](t, rr)
	require.Len(t, resp.Entries, 1)

	req = testutil.NewRequest(t, http.MethodGet, "/audit/claims/CLM-200")
	req = testutil.WithOrg(req, orgID.String())
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	resp = testutil.UnmarshalResponse[entriesResponse](t, rr)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "INC-100", resp.Entries[0].References[0].Value)
}

func TestQueryScopedToOrg(t *testing.T) {
	router, svc := newLedgerRouter(t)
	orgA, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	orgB, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	correlationID := id.NewCorrelationID()

	appendEntry(t, svc, orgA, correlationID, nil)

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/"+correlationID.String())
	req = testutil.WithOrg(req, orgB.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[entriesResponse](t, rr)
	assert.Empty(t, resp.Entries)
}

func TestIntegrityCheck(t *testing.T) {
	router, svc := newLedgerRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	correlationID := id.NewCorrelationID()

	appendEntry(t, svc, orgID, correlationID, nil)
	appendEntry(t, svc, orgID, correlationID, nil)

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/"+correlationID.String()+"/integrity")
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[integrityResponse](t, rr)
	assert.True(t, resp.Verified)
	assert.Equal(t, 2, resp.EntryCount)
	assert.Empty(t, resp.FailedEntryIDs)
}

func TestIntegrityCheck_DetectsTamperedEntry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := ledger.NewInMemoryStore()
	svc := ledger.NewService(store, logger)

	h := New(svc, logger)
	router := chi.NewRouter()
	h.Register(router)

	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	correlationID := id.NewCorrelationID()

	tampered := ledger.Entry{
		ID:            id.EntryID(uuid.New()),
		OrgID:         orgID,
		CorrelationID: correlationID,
		Action:        ledger.ActionPolicyCheck,
		Actor:         "system",
		Outcome:       "approved",
		CreatedAt:     time.Now().UTC(),
	}
	tampered.Hash = tampered.ComputeHash()
	tampered.Outcome = "denied" // mutate after hashing
	require.NoError(t, store.Append(context.Background(), tampered))

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/"+correlationID.String()+"/integrity")
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[integrityResponse](t, rr)
	assert.False(t, resp.Verified)
	assert.Equal(t, []string{tampered.ID.String()}, resp.FailedEntryIDs)
}

func TestIntegrityCheck_EmptyTrailIsNotFound(t *testing.T) {
	router, _ := newLedgerRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)

	req := testutil.NewRequest(t, http.MethodGet, "/audit/correlations/"+id.NewCorrelationID().String()+"/integrity")
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
