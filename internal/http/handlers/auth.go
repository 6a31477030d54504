package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/inventoryhub/internal/auth"
	"github.com/geocoder89/inventoryhub/internal/config"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"github.com/geocoder89/inventoryhub/internal/http/middlewares"
	"github.com/geocoder89/inventoryhub/internal/security"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (oid.ID, error)
	Login(ctx context.Context, email, password string) (string, user.Summary, error)
	Identify(ctx context.Context, userID string) (user.User, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

// Presence of the fields is checked by the authenticator so that every
// missing-field case answers with the same message.
type RegisterRequest struct {
	Username string `json:"username" binding:"max=100"`
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password" binding:"max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        user.Summary `json:"user"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt dominates here
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	id, err := h.auth.Register(cctx, req.Username, req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			RespondBadRequest(ctx, "Missing required fields", nil)
		case errors.Is(err, user.ErrEmailTaken):
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email already exists", nil)
		case errors.Is(err, security.ErrPasswordTooLong):
			RespondBadRequest(ctx, "Password is too long", nil)
		default:
			RespondInternal(ctx, "Could not create user", err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"id":      id,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	token, summary, err := h.auth.Login(cctx, req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			RespondBadRequest(ctx, "Missing email or password", nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		default:
			RespondInternal(ctx, "Could not log in", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        summary,
	})
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.auth.Identify(cctx, userID)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, user.ErrNotFound):
			RespondUnAuthorized(ctx, "unauthorized", "Unknown user")
		default:
			RespondInternal(ctx, "Could not load user", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}
