package call

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	callservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/call"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/pagination"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// History pages are fixed-size
const historyPageSize = 15

// UserLoader fetches users to decorate call responses with participant info
type UserLoader interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Handler handles call lifecycle HTTP requests
type Handler struct {
	callService *callservice.Service
	users       UserLoader
	jitsiDomain string
}

// NewHandler creates a new call handler
func NewHandler(callService *callservice.Service, users UserLoader, jitsiDomain string) *Handler {
	return &Handler{
		callService: callService,
		users:       users,
		jitsiDomain: jitsiDomain,
	}
}

// StartCallRequest represents a call start request
type StartCallRequest struct {
	TeacherID string `json:"teacher_id" binding:"required,uuid"`
}

// Start begins a call with a teacher
// POST /api/calls/start
func (h *Handler) Start(c *gin.Context) {
	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	teacherID, err := uuid.Parse(req.TeacherID)
	if err != nil {
		response.ValidationError(c, "Invalid teacher ID")
		return
	}

	call, err := h.callService.StartCall(c.Request.Context(), middleware.UserID(c), teacherID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"call":  h.decorate(c, call),
		"video": h.videoInfo(c, call),
	})
}

// End gracefully ends an active call
// POST /api/calls/:id/end
func (h *Handler) End(c *gin.Context) {
	call, ok := h.loadCall(c)
	if !ok {
		return
	}

	ended, err := h.callService.EndCall(c.Request.Context(), call, middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"call":     h.decorate(c, ended),
		"duration": ended.DurationSeconds(),
	})
}

// Heartbeat keeps an active call alive
// POST /api/calls/:id/heartbeat
func (h *Handler) Heartbeat(c *gin.Context) {
	call, ok := h.loadCall(c)
	if !ok {
		return
	}

	updated, err := h.callService.Heartbeat(c.Request.Context(), call, middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"call_id":        updated.CallID,
		"last_heartbeat": updated.LastHeartbeat,
	})
}

// Active returns the caller's current active call, if any
// GET /api/calls/active
func (h *Handler) Active(c *gin.Context) {
	call, err := h.callService.FindActiveCall(c.Request.Context(), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	if call == nil {
		response.Success(c, http.StatusOK, gin.H{"call": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"call":  h.decorate(c, call),
		"video": h.videoInfo(c, call),
	})
}

// History returns the caller's completed calls, newest first
// GET /api/calls/history
func (h *Handler) History(c *gin.Context) {
	params, err := pagination.Parse(c.Query("page"), fmt.Sprint(historyPageSize))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	calls, total, err := h.callService.ListHistory(
		c.Request.Context(),
		middleware.UserID(c),
		middleware.Role(c),
		params.Limit,
		params.Offset,
	)
	if err != nil {
		response.AppError(c, err)
		return
	}

	items := make([]*domain.CallResponse, 0, len(calls))
	for _, call := range calls {
		items = append(items, h.decorate(c, call))
	}

	response.Success(c, http.StatusOK, pagination.NewPage(items, params, total))
}

// Video returns the room connection info for an active call
// GET /api/calls/:id/video
func (h *Handler) Video(c *gin.Context) {
	call, ok := h.loadCall(c)
	if !ok {
		return
	}
	if !call.IsParticipant(middleware.UserID(c)) {
		response.AppError(c, apperrors.NotAParticipantError())
		return
	}

	response.Success(c, http.StatusOK, h.videoInfo(c, call))
}

func (h *Handler) loadCall(c *gin.Context) (*domain.Call, bool) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call ID")
		return nil, false
	}

	call, err := h.callService.GetCall(c.Request.Context(), callID)
	if err != nil {
		response.AppError(c, err)
		return nil, false
	}
	return call, true
}

// decorate fills in participant info; lookups are best-effort and a failed
// one just leaves the field empty
func (h *Handler) decorate(c *gin.Context, call *domain.Call) *domain.CallResponse {
	var student, teacher *domain.ParticipantInfo
	if u, err := h.users.GetByID(c.Request.Context(), call.StudentID); err == nil {
		student = u.ToParticipantInfo()
	}
	if u, err := h.users.GetByID(c.Request.Context(), call.TeacherID); err == nil {
		teacher = u.ToParticipantInfo()
	}
	return call.ToResponse(student, teacher)
}

func (h *Handler) videoInfo(c *gin.Context, call *domain.Call) *domain.VideoRoomInfo {
	userName := ""
	if u, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c)); err == nil {
		userName = u.FullName()
	}
	return &domain.VideoRoomInfo{
		RoomURL:  fmt.Sprintf("https://%s/%s", h.jitsiDomain, call.RoomID),
		RoomName: call.RoomID,
		Domain:   h.jitsiDomain,
		UserName: userName,
	}
}
