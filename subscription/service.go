// Package subscription exposes the billing state of a user as a read-only
// entitlement signal.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/entities"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
	StatusFree       Status = "free"
)

type Plan string

const (
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

var planBusinessLimits = map[Plan]int{
	PlanPro:      1,
	PlanBusiness: 5,
}

// Subscription is the record kept under entities.SubscriptionKey.
type Subscription struct {
	Status           Status     `json:"status"`
	Plan             Plan       `json:"plan,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Active reports whether the subscription grants paid features.
func (s *Subscription) Active() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// BusinessLimit is the number of business profiles the subscription allows.
func (s *Subscription) BusinessLimit() int {
	if !s.Active() {
		return 0
	}

	return planBusinessLimits[s.Plan]
}

type Service struct {
	store  entities.Store
	logger *zap.Logger
}

func NewService(store entities.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		logger: logger,
	}
}

// Get returns the subscription of userID. Users without a record are on the
// free tier.
func (s *Service) Get(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription

	err := entities.GetJSON(ctx, s.store, entities.SubscriptionKey(userID), &sub)
	if errors.Is(err, entities.ErrNotFound) {
		return &Subscription{Status: StatusFree}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// HasActiveEntitlement fails closed: a store error is logged and reported as
// no entitlement.
func (s *Service) HasActiveEntitlement(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	sub, err := s.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("entitlement check failed", zap.String("user_id", userID), zap.Error(err))

		return false
	}

	return sub.Active()
}

// Save replaces the subscription record of userID.
func (s *Service) Save(ctx context.Context, userID string, sub *Subscription) error {
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}

	return entities.SetJSON(ctx, s.store, entities.SubscriptionKey(userID), sub)
}
