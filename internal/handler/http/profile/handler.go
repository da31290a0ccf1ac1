package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	userservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/user"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Handler handles profile HTTP requests
type Handler struct {
	userService *userservice.Service
}

// NewHandler creates a new profile handler
func NewHandler(userService *userservice.Service) *Handler {
	return &Handler{userService: userService}
}

// Get returns the caller's profile
// GET /api/profile
func (h *Handler) Get(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// UpdateRequest represents a partial profile update
type UpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Address   *string `json:"address"`
}

// Update applies partial profile changes
// PATCH /api/profile
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.UserID(c), &userservice.UpdateProfileInput{
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

// Download returns the caller's profile and subscription history as CSV
// GET /api/profile/download
func (h *Handler) Download(c *gin.Context) {
	data, filename, err := h.userService.ExportCSV(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// UploadPhoto stores a new profile picture
// POST /api/profile/photo
func (h *Handler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		response.ValidationError(c, "photo file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "Failed to read upload")
		return
	}
	defer src.Close()

	user, err := h.userService.UploadPhoto(
		c.Request.Context(),
		middleware.UserID(c),
		src,
		file.Size,
		file.Header.Get("Content-Type"),
	)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// RemovePhoto deletes the caller's profile picture
// DELETE /api/profile/photo
func (h *Handler) RemovePhoto(c *gin.Context) {
	user, err := h.userService.RemovePhoto(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
