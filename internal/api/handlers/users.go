package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mora-fusion/server/internal/api/middleware"
	"github.com/mora-fusion/server/internal/api/problem"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/domain/accounts"
	"github.com/mora-fusion/server/internal/sanitize"
)

// UsersHandler serves registration and account management.
type UsersHandler struct {
	accounts *accounts.Service
	env      string
}

func NewUsersHandler(service *accounts.Service, env string) *UsersHandler {
	return &UsersHandler{accounts: service, env: env}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(account *accounts.Account) UserResponse {
	return UserResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
		Status:    string(account.Status),
		CreatedAt: account.CreatedAt,
	}
}

// Register handles POST /api/v1/users. Self-registration cannot grant
// admin; that path exists only through the bootstrap account.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Name and email are required", nil, h.env)
		return
	}
	if len(req.Password) < 8 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Password must be at least 8 characters", nil, h.env)
		return
	}
	if auth.IsAdmin(req.Role) {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Cannot self-register as admin", nil, h.env)
		return
	}

	account, err := h.accounts.Register(r.Context(), accounts.RegisterParams{
		Name:     sanitize.Text(req.Name),
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email is already registered", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Registration failed", err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse(account))
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /api/v1/users/me/password for the
// authenticated account.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, h.env)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if len(req.NewPassword) < 8 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Password must be at least 8 characters", nil, h.env)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword, audit.ClientIP(r), identity)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Current password is incorrect", err, h.env)
		case errors.Is(err, accounts.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Password change failed", err, h.env)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/v1/admin/users/{id}/status, the approval
// path for pending registrations. Admin-only by route middleware.
func (h *UsersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthenticated", problem.ErrUnauthorized, h.env)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", nil, h.env)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}

	status := accounts.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	switch status {
	case accounts.StatusPending, accounts.StatusActive, accounts.StatusInactive:
	default:
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Status must be one of: pending, active, inactive", nil, h.env)
		return
	}

	account, err := h.accounts.SetStatus(r.Context(), id, status, identity, audit.ClientIP(r))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Status update failed", err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, userResponse(account))
}
