package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewarePassesUserID(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, 42)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var gotID int
	var gotOK bool
	handler := New(secret).Wrap(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotOK || gotID != 42 {
		t.Fatalf("expected user 42 in context, got %d (%v)", gotID, gotOK)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := New([]byte("test-secret")).Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	handler := New([]byte("test-secret")).Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a bad token")
	})

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
