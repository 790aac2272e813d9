package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/domain/user"
	"github.com/geocoder89/eduai/internal/http/middlewares"
)

// AuthService is the part of the auth gate the HTTP layer needs.
type AuthService interface {
	Register(ctx context.Context, email, password, name string, role user.Role) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateUser(ctx context.Context, userID string, in auth.ProfileUpdate) (user.Public, error)
	GetAllUsers(ctx context.Context) ([]user.Public, error)
	GetUserByID(ctx context.Context, id string) (user.Public, error)
}

type AuthHandler struct {
	gate AuthService
	log  *slog.Logger
}

func NewAuthHandler(gate AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=120"`
	Avatar *string `json:"avatar" binding:"omitempty,max=2048"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req, "") {
		return
	}

	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		RespondBadRequest(ctx, "All fields are required", nil)
		return
	}

	// only learners and teachers may sign themselves up
	role := user.Role(req.Role)
	if !role.SelfRegistrable() {
		RespondBadRequest(ctx, "Invalid role specified", nil)
		return
	}

	session, err := h.gate.Register(ctx.Request.Context(), req.Email, req.Password, req.Name, role)
	if err != nil {
		h.respondGateError(ctx, err, http.StatusBadRequest, "Registration failed")
		return
	}

	RespondOK(ctx, http.StatusCreated, session, "User registered successfully")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req, "") {
		return
	}

	session, err := h.gate.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.respondGateError(ctx, err, status, "Login failed")
		return
	}

	RespondOK(ctx, http.StatusOK, session, "Login successful")
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "No token provided")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"user": u}, "")
}

func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "No token provided")
		return
	}

	var req UpdateProfileRequest
	if !BindJSON(ctx, &req, "") {
		return
	}

	updated, err := h.gate.UpdateUser(ctx.Request.Context(), u.ID, auth.ProfileUpdate{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.respondGateError(ctx, err, http.StatusBadRequest, "Update failed")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"user": updated}, "Profile updated successfully")
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "No token provided")
		return
	}

	var req ChangePasswordRequest
	if !BindJSON(ctx, &req, "Current and new password are required") {
		return
	}

	if err := h.gate.ChangePassword(ctx.Request.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondGateError(ctx, err, http.StatusBadRequest, "Password change failed")
		return
	}

	RespondOK(ctx, http.StatusOK, nil, "Password changed successfully")
}

func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	users, err := h.gate.GetAllUsers(ctx.Request.Context())
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list users failed", "err", err)
		RespondInternal(ctx, "Failed to get users")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"users": users}, "")
}

func (h *AuthHandler) GetUser(ctx *gin.Context) {
	u, err := h.gate.GetUserByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get user failed", "err", err)
		RespondInternal(ctx, "Failed to get user")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"user": u}, "")
}

// respondGateError maps a gate error onto the envelope. Errors the gate
// names get their own text at status; anything else is a 500 with fallback.
func (h *AuthHandler) respondGateError(ctx *gin.Context, err error, status int, fallback string) {
	msg := auth.PublicMessage(err)
	if msg == "" {
		h.log.ErrorContext(ctx.Request.Context(), "auth operation failed", "route", ctx.FullPath(), "err", err)
		RespondInternal(ctx, fallback)
		return
	}

	code := "invalid_request"
	switch {
	case status == http.StatusUnauthorized:
		code = "unauthorized"
	case errors.Is(err, auth.ErrDuplicateUser):
		code = "email_taken"
	case errors.Is(err, auth.ErrUserNotFound):
		status, code = http.StatusNotFound, "not_found"
	}

	RespondError(ctx, status, code, msg, nil)
}
