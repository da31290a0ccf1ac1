package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/internal/domain"
	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
)

// SubscriptionRepository interface
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetCurrent(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error)
	ExpireLapsed(ctx context.Context) (int64, error)
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// CheckoutSession is a payment session handed to the client to complete
type CheckoutSession struct {
	SessionID   string          `json:"session_id"`
	CheckoutURL string          `json:"checkout_url"`
	PlanType    domain.PlanType `json:"plan_type"`
	AmountCents int64           `json:"amount_cents"`
}

// CheckoutProvider creates payment sessions with an external processor
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, plan domain.PlanType, amountCents int64) (*CheckoutSession, error)
}

// Service handles subscription plans, checkout and activation
type Service struct {
	subscriptionRepo SubscriptionRepository
	userRepo         UserRepository
	provider         CheckoutProvider
	log              *zap.Logger
}

// NewService creates a new subscription service
func NewService(
	subscriptionRepo SubscriptionRepository,
	userRepo UserRepository,
	provider CheckoutProvider,
	log *zap.Logger,
) *Service {
	return &Service{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		provider:         provider,
		log:              log,
	}
}

// Plans lists the purchasable plans
func (s *Service) Plans() []domain.Plan {
	return domain.Plans()
}

// Checkout starts a payment session for a plan. Only students buy
// subscriptions; the subscription itself is created when the payment
// webhook confirms completion.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, plan domain.PlanType) (*CheckoutSession, error) {
	if !domain.ValidPlan(plan) {
		return nil, apperrors.ValidationError("unknown plan type")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsStudent() {
		return nil, apperrors.NotAStudentError()
	}

	session, err := s.provider.CreateCheckoutSession(ctx, userID, plan, domain.PlanPrices[plan])
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.Info("checkout session created",
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan)),
		zap.String("session_id", session.SessionID),
	)

	return session, nil
}

// HandleCheckoutCompleted activates a subscription from a completed payment.
// Safe to call more than once per session; providers redeliver webhooks.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, sessionID, paymentID string, userID uuid.UUID, plan domain.PlanType) (*domain.Subscription, error) {
	if sessionID == "" {
		return nil, apperrors.ValidationError("missing checkout session id")
	}
	if !domain.ValidPlan(plan) {
		return nil, apperrors.ValidationError("unknown plan type")
	}

	existing, err := s.subscriptionRepo.GetByCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	sub := &domain.Subscription{
		SubscriptionID:    uuid.New(),
		UserID:            userID,
		PlanType:          plan,
		Status:            domain.SubscriptionActive,
		StartTime:         now,
		EndTime:           now.Add(domain.PlanDurations[plan]),
		PaymentID:         &paymentID,
		CheckoutSessionID: &sessionID,
		AmountCents:       domain.PlanPrices[plan],
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Info("subscription activated",
		zap.String("subscription_id", sub.SubscriptionID.String()),
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan)),
		zap.Time("end_time", sub.EndTime),
	)

	return sub, nil
}

// CheckoutSuccess resolves the post-payment landing request. With a session
// id it returns the subscription the webhook activated for it; without one
// it falls back to the user's current subscription. Not-yet-activated
// sessions surface as not found so the client keeps polling.
func (s *Service) CheckoutSuccess(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.Subscription, error) {
	if sessionID != "" {
		sub, err := s.subscriptionRepo.GetByCheckoutSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sub == nil || sub.UserID != userID {
			return nil, apperrors.NotFoundError("subscription")
		}
		return sub, nil
	}

	sub, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperrors.NotFoundError("subscription")
	}
	return sub, nil
}

// Current returns the user's currently active subscription, or nil
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptionRepo.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.CurrentlyActive(time.Now()) {
		return nil, nil
	}
	return sub, nil
}

// History returns all of the user's subscriptions, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*domain.Subscription, error) {
	return s.subscriptionRepo.ListByUser(ctx, userID)
}

// ExpireLapsed flips lapsed active rows to expired. Access control never
// depends on it because the active checks compare end_time to now; it only
// keeps the stored status column honest for reporting.
func (s *Service) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.subscriptionRepo.ExpireLapsed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired lapsed subscriptions", zap.Int64("count", n))
	}
	return n, nil
}

// DevCheckoutProvider is a no-payment provider for development and tests.
// The session it returns can be fed straight back to the webhook handler.
type DevCheckoutProvider struct {
	BaseURL string
}

// CreateCheckoutSession implements CheckoutProvider
func (p *DevCheckoutProvider) CreateCheckoutSession(_ context.Context, userID uuid.UUID, plan domain.PlanType, amountCents int64) (*CheckoutSession, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	sessionID := "dev_" + hex.EncodeToString(buf)
	return &CheckoutSession{
		SessionID:   sessionID,
		CheckoutURL: fmt.Sprintf("%s/dev/checkout/%s?user=%s&plan=%s", p.BaseURL, sessionID, userID, plan),
		PlanType:    plan,
		AmountCents: amountCents,
	}, nil
}
