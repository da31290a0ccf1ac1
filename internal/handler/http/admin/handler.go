package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	adminservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/admin"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/pagination"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Handler handles admin HTTP requests
type Handler struct {
	adminService *adminservice.Service
}

// NewHandler creates a new admin handler
func NewHandler(adminService *adminservice.Service) *Handler {
	return &Handler{adminService: adminService}
}

// Stats returns platform-wide counters
// GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// RecentActivity returns the latest signups and calls
// GET /api/admin/activity
func (h *Handler) RecentActivity(c *gin.Context) {
	activity, err := h.adminService.RecentActivity(c.Request.Context())
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, activity)
}

// ListUsers returns users matching the filter
// GET /api/admin/users?role=&banned=&search=&page=&limit=
func (h *Handler) ListUsers(c *gin.Context) {
	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	filter := &domain.UserListFilter{
		Role:   c.Query("role"),
		Search: c.Query("search"),
	}
	switch c.Query("banned") {
	case "true":
		v := true
		filter.Banned = &v
	case "false":
		v := false
		filter.Banned = &v
	}

	users, total, err := h.adminService.ListUsers(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.NewPage(users, params, total))
}

// GetUser returns one user
// GET /api/admin/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	user, err := h.adminService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// UpdateUserRequest represents an admin profile edit
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Address   *string `json:"address"`
}

// UpdateUser edits a user's profile fields
// PATCH /api/admin/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.adminService.UpdateUser(c.Request.Context(), middleware.UserID(c), userID, &adminservice.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// BanRequest represents a ban request
type BanRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BanUser bans a user
// POST /api/admin/users/:id/ban
func (h *Handler) BanUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.adminService.BanUser(c.Request.Context(), middleware.UserID(c), userID, req.Reason); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "User banned"})
}

// UnbanUser lifts a ban
// POST /api/admin/users/:id/unban
func (h *Handler) UnbanUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	if err := h.adminService.UnbanUser(c.Request.Context(), middleware.UserID(c), userID); err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "User unbanned"})
}
