package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireTerminal(t *testing.T) {
	secret := []byte("test-terminal-secret")

	token, err := IssueTerminalToken(secret, "bar-kassa-1", 4, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var claims TerminalClaims
	handler := RequireTerminal(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ = TerminalFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/api/pos/admission", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if claims.Terminal != "bar-kassa-1" || claims.LocationID != 4 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRequireTerminalRejects(t *testing.T) {
	secret := []byte("test-terminal-secret")
	handler := RequireTerminal(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing header", func(r *http.Request) {}},
		{"not a bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }},
		{"wrong secret", func(r *http.Request) {
			token, err := IssueTerminalToken([]byte("other-secret"), "bar-kassa-1", 4, time.Hour)
			if err != nil {
				t.Fatalf("issue token: %v", err)
			}
			r.Header.Set("Authorization", "Bearer "+token)
		}},
		{"expired", func(r *http.Request) {
			token, err := IssueTerminalToken(secret, "bar-kassa-1", 4, -time.Minute)
			if err != nil {
				t.Fatalf("issue token: %v", err)
			}
			r.Header.Set("Authorization", "Bearer "+token)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/pos/admission", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
