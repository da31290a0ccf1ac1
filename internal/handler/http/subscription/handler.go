package subscription

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/middleware"
	subservice "github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/service/subscription"
	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/response"
)

// Handler handles subscription HTTP requests
type Handler struct {
	subscriptionService *subservice.Service
	webhookSecret       string
}

// NewHandler creates a new subscription handler
func NewHandler(subscriptionService *subservice.Service, webhookSecret string) *Handler {
	return &Handler{
		subscriptionService: subscriptionService,
		webhookSecret:       webhookSecret,
	}
}

// Plans lists the purchasable plans
// GET /api/subscriptions/plans
func (h *Handler) Plans(c *gin.Context) {
	response.Success(c, http.StatusOK, h.subscriptionService.Plans())
}

// CheckoutRequest represents a checkout request
type CheckoutRequest struct {
	PlanType string `json:"plan_type" binding:"required"`
}

// Checkout starts a payment session for a plan
// POST /api/subscriptions/checkout
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	session, err := h.subscriptionService.Checkout(
		c.Request.Context(),
		middleware.UserID(c),
		domain.PlanType(req.PlanType),
	)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// Current returns the caller's active subscription, if any
// GET /api/subscriptions/current
func (h *Handler) Current(c *gin.Context) {
	sub, err := h.subscriptionService.Current(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	if sub == nil {
		response.Success(c, http.StatusOK, gin.H{"subscription": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"subscription":           sub,
		"time_remaining_seconds": sub.TimeRemaining(time.Now()),
	})
}

// Success resolves the post-payment landing page
// GET /api/subscriptions/success?session_id=xxx
func (h *Handler) Success(c *gin.Context) {
	sub, err := h.subscriptionService.CheckoutSuccess(
		c.Request.Context(),
		middleware.UserID(c),
		c.Query("session_id"),
	)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":      "Subscription activated",
		"subscription": sub,
	})
}

// History returns the caller's past subscriptions
// GET /api/subscriptions/history
func (h *Handler) History(c *gin.Context) {
	subs, err := h.subscriptionService.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.Success(c, http.StatusOK, subs)
}

// WebhookRequest is the payment-completed webhook payload
type WebhookRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required,uuid"`
	PlanType  string `json:"plan_type" binding:"required"`
}

// Webhook activates a subscription from a completed payment
// POST /api/webhooks/payment
func (h *Handler) Webhook(c *gin.Context) {
	if h.webhookSecret != "" && c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		response.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	sub, err := h.subscriptionService.HandleCheckoutCompleted(
		c.Request.Context(),
		req.SessionID,
		req.PaymentID,
		userID,
		domain.PlanType(req.PlanType),
	)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, sub)
}
