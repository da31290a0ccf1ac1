package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	authservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/auth"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Handler handles authentication HTTP requests
type Handler struct {
	authService *authservice.Service
}

// NewHandler creates a new auth handler
func NewHandler(authService *authservice.Service) *Handler {
	return &Handler{authService: authService}
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" binding:"required,oneof=student teacher"`
	Address   string `json:"address"`
}

// Signup registers a new account
// POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	out, err := h.authService.Signup(c.Request.Context(), &authservice.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Address:   req.Address,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, out)
}

// SocialLoginRequest represents an OAuth social login request
type SocialLoginRequest struct {
	Provider    string `json:"provider" binding:"required,oneof=google facebook"`
	AccessToken string `json:"access_token" binding:"required"`
	Role        string `json:"role" binding:"omitempty,oneof=student teacher"`
}

// SocialLogin authenticates through a third-party identity provider
// POST /api/auth/social
func (h *Handler) SocialLogin(c *gin.Context) {
	var req SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	out, err := h.authService.SocialLogin(c.Request.Context(), req.Provider, req.AccessToken, req.Role)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	out, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token
// POST /api/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	out, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// Logout revokes the caller's refresh token
// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user's profile
// GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// VerifyEmail confirms a verification token
// GET /api/auth/verify-email?token=...
func (h *Handler) VerifyEmail(c *gin.Context) {
	user, err := h.authService.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// ResendVerification sends a fresh verification email
// POST /api/auth/resend-verification
func (h *Handler) ResendVerification(c *gin.Context) {
	if err := h.authService.ResendVerification(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Verification email sent"})
}
