package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

func TestAdminLoginIssuesToken(t *testing.T) {
	h := NewAdminAuthHandler("hunter2", "jwt-secret", time.Hour, logging.New("error"))
	if h == nil {
		t.Fatal("expected handler")
	}

	body := bytes.NewBufferString(`{"password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(resp.Token, &claims, func(token *jwt.Token) (any, error) {
		return []byte("jwt-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("subject = %q, want admin", claims.Subject)
	}
	if remaining := time.Until(claims.ExpiresAt.Time); remaining > time.Hour || remaining < 50*time.Minute {
		t.Errorf("unexpected expiry in %s", remaining)
	}
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	h := NewAdminAuthHandler("hunter2", "jwt-secret", time.Hour, logging.New("error"))

	body := bytes.NewBufferString(`{"password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminLoginRejectsBadBody(t *testing.T) {
	h := NewAdminAuthHandler("hunter2", "jwt-secret", time.Hour, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminAuthHandlerDisabledWithoutConfig(t *testing.T) {
	if h := NewAdminAuthHandler("", "jwt-secret", time.Hour, nil); h != nil {
		t.Error("expected nil handler without password")
	}
	if h := NewAdminAuthHandler("hunter2", "", time.Hour, nil); h != nil {
		t.Error("expected nil handler without secret")
	}
}
