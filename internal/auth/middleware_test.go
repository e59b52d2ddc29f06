package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// okHandler records whether the wrapped handler ran and what identity it saw.
type okHandler struct {
	called   bool
	identity Identity
	found    bool
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.identity, h.found = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, authHeader string) (*httptest.ResponseRecorder, *okHandler) {
	t.Helper()

	inner := &okHandler{}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/user/1", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	mw(inner).ServeHTTP(rr, req)
	return rr, inner
}

// =========================================================================
// RequireAuth TESTS
// =========================================================================

func TestRequireAuth_ValidToken(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(42, "user")

	rr, inner := doRequest(t, RequireAuth(ts), "Bearer "+token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !inner.called {
		t.Fatal("inner handler was not called")
	}
	if !inner.found || inner.identity.UserID != 42 {
		t.Errorf("identity = %+v (found=%v), want UserID 42", inner.identity, inner.found)
	}
}

func TestRequireAuth_LowercaseBearerScheme(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(42, "user")

	// RFC 7235: the auth scheme is case-insensitive
	rr, _ := doRequest(t, RequireAuth(ts), "bearer "+token)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for lowercase scheme", rr.Code)
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	ts := newTestTokenService(t)
	expired, _ := ts.GenerateWithDuration(42, "user", -time.Minute)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"bearer with no token", "Bearer "},
		{"garbage token", "Bearer this.is.garbage"},
		{"expired token", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, inner := doRequest(t, RequireAuth(ts), tt.header)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
			if inner.called {
				t.Error("inner handler must not run on auth failure")
			}
		})
	}
}

// =========================================================================
// RequireAdmin TESTS
// =========================================================================

func TestRequireAdmin_AdminPasses(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(1, "admin")

	rr, inner := doRequest(t, RequireAdmin(ts), "Bearer "+token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if inner.identity.Role != "admin" {
		t.Errorf("identity.Role = %q, want admin", inner.identity.Role)
	}
}

func TestRequireAdmin_RegularUserGets403(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate(2, "user")

	rr, inner := doRequest(t, RequireAdmin(ts), "Bearer "+token)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
	if inner.called {
		t.Error("inner handler must not run for non-admin")
	}
}

func TestRequireAdmin_NoTokenGets401Not403(t *testing.T) {
	ts := newTestTokenService(t)

	// Without a credential we don't know who the caller is: 401, not 403.
	rr, _ := doRequest(t, RequireAdmin(ts), "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, ok := IdentityFromContext(req.Context()); ok {
		t.Error("IdentityFromContext() reported an identity on an anonymous request")
	}
}
