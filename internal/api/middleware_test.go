package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/identity"

	jwt "github.com/golang-jwt/jwt/v5"
)

type stubParser struct {
	claims *identity.Claims
	err    error
}

func (p stubParser) ParseToken(string) (*identity.Claims, error) {
	return p.claims, p.err
}

type recordingObserver struct {
	method string
	status int
}

func (o *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	o.method = method
	o.status = status
}

func TestWithRequestIDSetsHeaderAndContext(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("header %q context %q", got, seen)
	}
}

func TestWithAuth(t *testing.T) {
	ownerClaims := &identity.Claims{
		Role:             identity.RoleOwner,
		HomeFacilityID:   3,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "12"},
	}

	tests := []struct {
		name     string
		header   string
		parser   stubParser
		status   int
		wantUser bool
	}{
		{name: "anonymous", status: http.StatusNoContent},
		{name: "valid token", header: "Bearer abc", parser: stubParser{claims: ownerClaims}, status: http.StatusNoContent, wantUser: true},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer abc", parser: stubParser{err: apperr.New(apperr.KindUnauthorized, "invalid token")}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user *authz.AuthUser
			handler := WithAuth(tt.parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user = authz.UserFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status %d want %d", rec.Code, tt.status)
			}
			if (user != nil) != tt.wantUser {
				t.Fatalf("user %+v, wantUser %v", user, tt.wantUser)
			}
			if tt.wantUser && (user.ID != 12 || user.Role != identity.RoleOwner || *user.HomeFacilityID != 3) {
				t.Fatalf("unexpected user %+v", user)
			}
		})
	}
}

func TestWithRecoveryWritesJSON(t *testing.T) {
	handler := WithRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	var body apiutil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "internal" {
		t.Fatalf("body %q err %v", rec.Body.String(), err)
	}
}

func TestWithMetricsObservesStatus(t *testing.T) {
	observer := &recordingObserver{}
	handler := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		WithMetrics(observer),
		WithLogging,
		WithRequestID,
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if observer.method != http.MethodPost || observer.status != http.StatusTeapot {
		t.Fatalf("observed %+v", observer)
	}
}

func TestWithMetricsDefaultsToOK(t *testing.T) {
	observer := &recordingObserver{}
	handler := WithMetrics(observer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if observer.status != http.StatusOK {
		t.Fatalf("status %d", observer.status)
	}
}
