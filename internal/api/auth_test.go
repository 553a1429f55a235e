package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func protectedProbe(api *API) http.Handler {
	return api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value(claimsKey{}).(*Claims)
		w.Write([]byte(claims.Operator))
	}))
}

func issueToken(t *testing.T, api *API, operator, secret string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"operator": operator, "secret": secret})
	req := httptest.NewRequest("POST", "/api/auth/token", bytes.NewReader(body))
	w := httptest.NewRecorder()
	api.handleToken(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("token issue status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return resp["token"]
}

func TestAuthMiddleware(t *testing.T) {
	api := newTestAPI()
	probe := protectedProbe(api)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		probe.ServeHTTP(w, httptest.NewRequest("GET", "/api/claims", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		probe.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token := issueToken(t, api, "gerente", "test-secret")
		req := httptest.NewRequest("GET", "/api/claims", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		probe.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if w.Body.String() != "gerente" {
			t.Errorf("operator = %q", w.Body.String())
		}
	})
}

func TestTokenIssueRejectsWrongSecret(t *testing.T) {
	api := newTestAPI()

	body, _ := json.Marshal(map[string]string{"operator": "gerente", "secret": "nope"})
	req := httptest.NewRequest("POST", "/api/auth/token", bytes.NewReader(body))
	w := httptest.NewRecorder()
	api.handleToken(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
