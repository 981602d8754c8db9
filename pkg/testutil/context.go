package testutil

import (
	"context"
	"net/http"
	"time"

	id "docrelay/pkg/domain"
	"docrelay/pkg/requestcontext"
)

// WithOrg adds an organization scope to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the orgID is not a valid UUID, it will not be added to the context.
func WithOrg(req *http.Request, orgID string) *http.Request {
	if parsed, err := id.ParseOrgID(orgID); err == nil {
		return req.WithContext(requestcontext.WithOrgID(req.Context(), parsed))
	}
	return req
}

// WithActor adds an acting principal to the request context.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithAuth adds both org scope and actor to the request context.
// This is the typical state for an authenticated request.
// An invalid org ID is silently ignored.
func WithAuth(req *http.Request, orgID, actorID string) *http.Request {
	req = WithOrg(req, orgID)
	if actorID != "" {
		req = WithActor(req, actorID)
	}
	return req
}

// WithRequestTime pins the request time on the context, so handlers that
// stamp timestamps produce deterministic output.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
