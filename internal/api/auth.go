package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ess007/beathealth-outreach/internal/api/respond"
)

// RunScope is the claim required to invoke the outreach trigger endpoints.
const RunScope = "outreach:run"

type contextKey string

const callerSubjectKey contextKey = "caller_subject"

// CallerSubject returns the verified service subject for the request, or ""
// when the request did not pass ServiceAuthMiddleware.
func CallerSubject(ctx context.Context) string {
	sub, _ := ctx.Value(callerSubjectKey).(string)
	return sub
}

// ServiceClaims is the token shape for scheduler/ops callers. The subject
// names the calling service, never an end user; an end-user session token
// lacks the scope claim and is rejected.
type ServiceClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// ServiceAuthMiddleware authenticates service-to-service callers with an
// HS256 bearer token carrying the outreach:run scope.
func ServiceAuthMiddleware(secret, issuer string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				respond.WriteError(w, http.StatusUnauthorized, "MISSING_TOKEN", "Service credential required")
				return
			}

			claims := &ServiceClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
				}
				return key, nil
			}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				respond.WriteError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Service credential rejected")
				return
			}

			if !slices.Contains(claims.Scopes, RunScope) {
				respond.WriteError(w, http.StatusForbidden, "INSUFFICIENT_SCOPE", "Token lacks outreach:run scope")
				return
			}

			ctx := context.WithValue(r.Context(), callerSubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MintServiceToken issues a scheduler credential. Used by cmd/outreach and
// by ops tooling; the API only verifies.
func MintServiceToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Scopes: []string{RunScope},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
