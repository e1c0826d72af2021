package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medbook-ai/booking-assistant/internal/http/middleware"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// AdminAuthHandler exchanges the shared admin password for a short-lived JWT.
type AdminAuthHandler struct {
	password string
	secret   string
	tokenTTL time.Duration
	logger   *logging.Logger
}

// NewAdminAuthHandler creates the login handler. Returns nil when no password
// or secret is configured, which disables the admin surface entirely.
func NewAdminAuthHandler(password, secret string, tokenTTL time.Duration, logger *logging.Logger) *AdminAuthHandler {
	if password == "" || secret == "" {
		return nil
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAuthHandler{
		password: password,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /admin/login.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.Warn("admin login rejected", "remote_ip", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   middleware.AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.secret))
	if err != nil {
		h.logger.Error("failed to sign admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.logger.Info("admin login succeeded", "remote_ip", r.RemoteAddr)
	writeJSON(w, http.StatusOK, loginResponse{Token: signed, ExpiresAt: expiresAt})
}
