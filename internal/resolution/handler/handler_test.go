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

	"docrelay/internal/resolution"
	id "docrelay/pkg/domain"
	"docrelay/pkg/testutil"
)

func newReviewRouter(t *testing.T) (http.Handler, *resolution.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := resolution.NewInMemoryStore()
	svc := resolution.NewService(resolution.DefaultConfig(), store, logger)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, store
}

func seedReviewHistory(t *testing.T, store *resolution.InMemoryStore, orgID id.OrgID) resolution.History {
	t.Helper()
	history := resolution.History{
		ID:                  id.HistoryID(uuid.New()),
		OrgID:               orgID,
		CorrelationID:       id.NewCorrelationID(),
		DestinationName:     "Riverside Orthopedics",
		DocumentType:        "medical_records",
		Resolved:            true,
		Value:               "+15551230001",
		SourceLayer:         resolution.LayerExternal,
		Confidence:          0.75,
		Department:          "Medical Records",
		RequiresHumanReview: true,
		Conflicts:           []string{"+15551230001", "+15551230002"},
		CreatedAt:           time.Now().UTC(),
	}
	require.NoError(t, store.SaveHistory(context.Background(), history))
	return history
}

func TestListReviews(t *testing.T) {
	router, store := newReviewRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)

	history := seedReviewHistory(t, store, orgID)
	otherOrg, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	seedReviewHistory(t, store, otherOrg)

	req := testutil.NewRequest(t, http.MethodGet, "/resolution/reviews")
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[reviewsResponse](t, rr)
	require.Len(t, resp.Reviews, 1)
	review := resp.Reviews[0]
	assert.Equal(t, history.ID.String(), review.ID)
	assert.Equal(t, "Riverside Orthopedics", review.DestinationName)
	assert.Equal(t, 3, review.SourceLayer)
	assert.InDelta(t, 0.75, review.Confidence, 0.0001)
	assert.Len(t, review.Conflicts, 2)
}

func TestPromote(t *testing.T) {
	router, store := newReviewRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	history := seedReviewHistory(t, store, orgID)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/resolution/reviews/"+history.ID.String()+"/promote", promoteRequest{
		ConfirmedValue: "+15551230002",
	})
	req = testutil.WithAuth(req, orgID.String(), "reviewer-3")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(t, rr)
	contact := testutil.UnmarshalResponse[contactView](t, rr)
	assert.Equal(t, "Riverside Orthopedics", contact.Name)
	assert.Equal(t, "+15551230002", contact.FaxNumber)
	assert.Equal(t, "Medical Records", contact.Department)
	assert.Equal(t, int(resolution.LayerInternal), contact.Layer)
	assert.True(t, contact.Verified)

	// the history leaves the review queue
	remaining, err := store.ListHistoriesRequiringReview(context.Background(), orgID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestPromote_SecondAttemptConflicts(t *testing.T) {
	router, store := newReviewRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	history := seedReviewHistory(t, store, orgID)

	promote := func() *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/resolution/reviews/"+history.ID.String()+"/promote", promoteRequest{
			ConfirmedValue: "+15551230002",
		})
		return testutil.WithAuth(req, orgID.String(), "reviewer-3")
	}

	rr := testutil.DoRequest(router, promote())
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(router, promote())
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func TestPromote_MissingHistoryIsNotFound(t *testing.T) {
	router, _ := newReviewRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/resolution/reviews/"+uuid.NewString()+"/promote", promoteRequest{
		ConfirmedValue: "+15551230002",
	})
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestPromote_RequiresConfirmedValue(t *testing.T) {
	router, store := newReviewRouter(t)
	orgID, err := id.ParseOrgID(uuid.NewString())
	require.NoError(t, err)
	history := seedReviewHistory(t, store, orgID)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/resolution/reviews/"+history.ID.String()+"/promote", promoteRequest{})
	req = testutil.WithOrg(req, orgID.String())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}
