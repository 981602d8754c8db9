package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "docrelay/pkg/domain"
	"docrelay/pkg/requestcontext"
)

// orgClaims are the claims every API token must carry. The org id scopes
// every read and write; the subject becomes the audit actor.
type orgClaims struct {
	OrgID string `json:"org_id"`
	jwt.RegisteredClaims
}

// OrgAuth validates the bearer token and puts the organization scope and
// actor into the request context. Requests without a valid org scope never
// reach a handler.
func OrgAuth(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims := &orgClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return signingKey, nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(r.Context(), "rejected api token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			orgID, err := id.ParseOrgID(claims.OrgID)
			if err != nil {
				logger.WarnContext(r.Context(), "api token without valid org scope",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			ctx := requestcontext.WithOrgID(r.Context(), orgID)
			if claims.Subject != "" {
				ctx = requestcontext.WithActorID(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"a valid bearer token is required"}`))
}
