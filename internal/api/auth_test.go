package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testIssuer = "beathealth-scheduler"
)

func protectedHandler(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return ServiceAuthMiddleware(testSecret, testIssuer)(next), &called
}

func TestServiceAuthAcceptsValidToken(t *testing.T) {
	token, err := MintServiceToken(testSecret, testIssuer, "scheduler", time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	h, called := protectedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !*called {
		t.Fatal("expected handler to be called")
	}
}

func TestServiceAuthRejectsMissingToken(t *testing.T) {
	h, called := protectedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run without a credential")
	}
}

func TestServiceAuthRejectsWrongSecret(t *testing.T) {
	token, err := MintServiceToken("other-secret", testIssuer, "scheduler", time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	h, called := protectedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run with a forged credential")
	}
}

func TestServiceAuthRejectsExpiredToken(t *testing.T) {
	token, err := MintServiceToken(testSecret, testIssuer, "scheduler", -time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	h, _ := protectedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// The verified subject must reach downstream middleware so the rate
// limiter can bucket per caller instead of per IP.
func TestServiceAuthExposesCallerSubject(t *testing.T) {
	token, err := MintServiceToken(testSecret, testIssuer, "scheduler", time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = CallerSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := ServiceAuthMiddleware(testSecret, testIssuer)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if subject != "scheduler" {
		t.Fatalf("expected caller subject %q, got %q", "scheduler", subject)
	}
}

// An end-user session token carries no scopes claim and must be rejected
// even when signed with the same secret.
func TestServiceAuthRejectsUserSessionToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   "user-123",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	h, called := protectedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outreach/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if *called {
		t.Fatal("handler must not run for an unscoped token")
	}
}
