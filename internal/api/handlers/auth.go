package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/domain/accounts"
)

// AuthHandler serves the two-step login flow: password then one-time code.
type AuthHandler struct {
	accounts *accounts.Service
	env      string
}

func NewAuthHandler(service *accounts.Service, env string) *AuthHandler {
	return &AuthHandler{accounts: service, env: env}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message   string `json:"message"`
	AccountID int64  `json:"account_id"`
	MFA       bool   `json:"mfa_required"`
}

type VerifyMFARequest struct {
	AccountID int64  `json:"account_id"`
	Code      string `json:"code"`
}

type VerifyMFAResponse struct {
	Message   string                   `json:"message"`
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expires_at"`
	User      accounts.SessionIdentity `json:"user"`
}

// Login handles POST /api/v1/auth/login. Success means the password was
// right and a code is on its way; no token is issued yet.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email and password are required", nil, h.env)
		return
	}

	challenge, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password, audit.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrAccountLocked):
			problem.Write(w, r, http.StatusForbidden, problem.TypeLocked, "Account locked, try again later", err, h.env)
		case errors.Is(err, accounts.ErrAccountInactive):
			problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Account is not active", err, h.env)
		case errors.Is(err, accounts.ErrInvalidCredentials):
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Login failed", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "MFA code sent to email",
		AccountID: challenge.AccountID,
		MFA:       challenge.PendingMFA,
	})
}

// VerifyMFA handles POST /api/v1/auth/verify-mfa. All rejection causes
// collapse into one generic message.
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if req.AccountID <= 0 || req.Code == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Account id and code are required", nil, h.env)
		return
	}

	session, err := h.accounts.VerifySecondFactor(r.Context(), req.AccountID, req.Code, audit.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
		case errors.Is(err, accounts.ErrInvalidOrExpiredCode):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid or expired MFA code", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Verification failed", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusOK, VerifyMFAResponse{
		Message:   "Login successful",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.Identity,
	})
}
