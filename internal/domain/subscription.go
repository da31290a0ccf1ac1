package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanType identifies a subscription plan
type PlanType string

const (
	PlanOneHour    PlanType = "one_hour"
	PlanSixHour    PlanType = "six_hour"
	PlanTwelveHour PlanType = "twelve_hour"
)

// SubscriptionStatus is the state of a subscription row
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// PlanDurations maps plans to their access window
var PlanDurations = map[PlanType]time.Duration{
	PlanOneHour:    time.Hour,
	PlanSixHour:    6 * time.Hour,
	PlanTwelveHour: 12 * time.Hour,
}

// PlanPrices maps plans to their price in cents
var PlanPrices = map[PlanType]int64{
	PlanOneHour:    999,
	PlanSixHour:    3999,
	PlanTwelveHour: 5999,
}

// ValidPlan reports whether the plan type is known
func ValidPlan(p PlanType) bool {
	_, ok := PlanDurations[p]
	return ok
}

// Subscription represents a paid access window for a student
type Subscription struct {
	SubscriptionID    uuid.UUID          `json:"subscription_id"`
	UserID            uuid.UUID          `json:"user_id"`
	PlanType          PlanType           `json:"plan_type"`
	Status            SubscriptionStatus `json:"status"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           time.Time          `json:"end_time"`
	PaymentID         *string            `json:"payment_id,omitempty"`
	CheckoutSessionID *string            `json:"-"`
	AmountCents       int64              `json:"amount_cents"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CurrentlyActive reports whether the subscription grants access right now
func (s *Subscription) CurrentlyActive(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndTime.After(now)
}

// TimeRemaining returns the remaining access window in whole seconds
func (s *Subscription) TimeRemaining(now time.Time) int64 {
	if !s.CurrentlyActive(now) {
		return 0
	}
	return int64(s.EndTime.Sub(now).Seconds())
}

// Plan is a purchasable plan as presented to clients
type Plan struct {
	Type         PlanType `json:"type"`
	DurationSecs int64    `json:"duration_seconds"`
	PriceCents   int64    `json:"price_cents"`
}

// Plans lists the purchasable plans in ascending price order
func Plans() []Plan {
	return []Plan{
		{Type: PlanOneHour, DurationSecs: int64(PlanDurations[PlanOneHour].Seconds()), PriceCents: PlanPrices[PlanOneHour]},
		{Type: PlanSixHour, DurationSecs: int64(PlanDurations[PlanSixHour].Seconds()), PriceCents: PlanPrices[PlanSixHour]},
		{Type: PlanTwelveHour, DurationSecs: int64(PlanDurations[PlanTwelveHour].Seconds()), PriceCents: PlanPrices[PlanTwelveHour]},
	}
}
