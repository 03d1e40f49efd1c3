package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("s3cret", time.Hour)
	tok, err := m.GenerateToken("u1", "u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	c, err := m.ValidateToken("Bearer " + tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Subject != "u1" || c.Email != "u1@example.com" {
		t.Fatalf("unexpected claims %+v", c)
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("s3cret", time.Hour)
	other, _ := NewManager("other", time.Hour).GenerateToken("u1", "")
	if _, err := m.ValidateToken(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "airport-shuttle",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	s, _ := expired.SignedString([]byte("s3cret"))
	if _, err := m.ValidateToken(s); err == nil {
		t.Fatal("expected expired token to fail")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "airport-shuttle"}})
	s, _ = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := m.ValidateToken(s); err == nil {
		t.Fatal("expected alg=none to fail")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager("s3cret", time.Hour)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	tok, _ := m.GenerateToken("u7", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "u7" {
		t.Fatalf("expected u7, got %q", seen)
	}

	seen = "x"
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != "" {
		t.Fatalf("anonymous request should have no user, got %q", seen)
	}

	seen = ""
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?access_token="+tok, nil))
	if seen != "u7" {
		t.Fatalf("expected query token to authenticate, got %q", seen)
	}

	rec := httptest.NewRecorder()
	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, bad)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
