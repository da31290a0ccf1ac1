package tutor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	tutorservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/tutor"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/pagination"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Handler handles tutor discovery HTTP requests
type Handler struct {
	tutorService *tutorservice.Service
}

// NewHandler creates a new tutor handler
func NewHandler(tutorService *tutorservice.Service) *Handler {
	return &Handler{tutorService: tutorService}
}

// List returns teachers for discovery
// GET /api/tutors?filter=all&search=&page=&limit=
func (h *Handler) List(c *gin.Context) {
	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tutors, total, err := h.tutorService.List(
		c.Request.Context(),
		c.Query("filter"),
		c.Query("search"),
		params.Limit,
		params.Offset,
	)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pagination.NewPage(tutors, params, total))
}

// Get returns one teacher's public profile
// GET /api/tutors/:id
func (h *Handler) Get(c *gin.Context) {
	teacherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid teacher ID")
		return
	}

	tutor, err := h.tutorService.Get(c.Request.Context(), teacherID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tutor)
}

// ToggleAvailability flips the caller between offline and available
// POST /api/tutors/availability
func (h *Handler) ToggleAvailability(c *gin.Context) {
	status, err := h.tutorService.ToggleAvailability(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tutor_status": status})
}
