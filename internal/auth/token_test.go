package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-signing-secret"

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	userID, expiresAt, err := VerifyToken(testSecret, token)
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Expected subject 'user-1', got %q", userID)
	}

	remaining := time.Until(expiresAt)
	if remaining <= 55*time.Minute || remaining > time.Hour {
		t.Errorf("Expected expiry about an hour out, got %v remaining", remaining)
	}
}

func TestIssueTokenRequiresUserID(t *testing.T) {
	if _, err := IssueToken(testSecret, "", time.Hour); err == nil {
		t.Fatal("Expected error for empty user id")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	if _, _, err := VerifyToken(testSecret, token); err == nil {
		t.Fatal("Expected error for expired token")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	if _, _, err := VerifyToken("other-secret", token); err == nil {
		t.Fatal("Expected error for wrong signing secret")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, _, err := VerifyToken(testSecret, token); err == nil {
			t.Errorf("Expected error for token %q", token)
		}
	}
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	token, err := ExtractTokenFromRequest(r)
	if err != nil {
		t.Fatalf("Failed to extract token: %v", err)
	}
	if token != "abc123" {
		t.Errorf("Expected token 'abc123', got %q", token)
	}

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer a b"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if _, err := ExtractTokenFromRequest(r); err == nil {
			t.Errorf("Expected error for header %q", header)
		}
	}
}

func TestMiddlewareAuthenticatesAndInjectsUserID(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	var seenUserID string
	handler := Middleware(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/planetarium/sessions", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if seenUserID != "user-1" {
		t.Errorf("Expected user id 'user-1' in context, got %q", seenUserID)
	}
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	handler := Middleware(testSecret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run for unauthenticated request")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bogus token, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid token") {
		t.Errorf("Expected invalid token message, got %q", w.Body.String())
	}
}
