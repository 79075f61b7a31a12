package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"gorm.io/gorm"
)

const daysPerCreditedMonth = 30

// Service is the reconciliation engine: it converts a normalized payment
// event into a durable subscription change exactly once. All subscription
// and ledger writes in the application go through this service.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Reconcile validates a payment event, resolves the purchased plan, records
// the event in the ledger and credits the subscription. Replayed events
// (same gateway + transaction ref) are a no-op returning the current state.
func (s *Service) Reconcile(ctx context.Context, event PaymentEvent, target *CreditTarget) (*CreditResult, error) {
	if event.UserID == 0 || strings.TrimSpace(event.Gateway) == "" || strings.TrimSpace(event.TransactionRef) == "" {
		return nil, errors.New("billing: user_id, gateway and transaction_ref are required")
	}

	var (
		tier   Tier
		months int
	)
	if target != nil {
		tier = target.Tier
		months = target.Months
		if months <= 0 {
			months = 1
		}
		if tier == TierFree {
			return nil, ErrUnresolvableAmount
		}
	} else {
		var ok bool
		tier, months, ok = ResolveFromAmount(event.Amount)
		if !ok {
			return nil, ErrUnresolvableAmount
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if currency == "" {
		currency = "USD"
	}

	alreadyCompleted, err := s.repo.RecordOrGetExisting(
		ctx, event.Gateway, event.TransactionRef, event.UserID, event.Amount, currency)
	if err != nil {
		return nil, err
	}
	if alreadyCompleted {
		// Replay: return current state unchanged so webhook redeliveries and
		// client retries see the same answer as the first call.
		sub, err := s.repo.GetSubscription(ctx, event.UserID)
		if err != nil {
			return nil, err
		}
		res := &CreditResult{Tier: Tier(sub.Tier), AlreadyApplied: true}
		if sub.ExpiresAt != nil {
			res.ExpiresAt = *sub.ExpiresAt
		}
		return res, nil
	}

	return s.ApplyCredit(ctx, event.UserID, tier, months)
}

// ApplyCredit extends or restarts a user's subscription. A renewal on the
// same tier with time remaining extends from the current expiry; anything
// else (tier change, expired, first purchase) restarts the clock from now.
// Callers must have passed the ledger's idempotency gate first.
func (s *Service) ApplyCredit(ctx context.Context, userID uint, targetTier Tier, monthsToAdd int) (*CreditResult, error) {
	if monthsToAdd < 1 {
		monthsToAdd = 1
	}
	addition := time.Duration(monthsToAdd) * daysPerCreditedMonth * 24 * time.Hour
	now := s.now()

	sub, err := s.repo.WithSubscriptionLock(ctx, userID, func(sub *models.Subscription) error {
		if Tier(sub.Tier) == targetTier && sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
			expires := sub.ExpiresAt.Add(addition)
			sub.ExpiresAt = &expires
		} else {
			expires := now.Add(addition)
			sub.Tier = int(targetTier)
			sub.ExpiresAt = &expires
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreditResult{Tier: Tier(sub.Tier), ExpiresAt: *sub.ExpiresAt}, nil
}

// CurrentState returns the user's subscription as a credit result shape.
func (s *Service) CurrentState(ctx context.Context, userID uint) (*CreditResult, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &CreditResult{Tier: Tier(sub.Tier)}
	if sub.ExpiresAt != nil {
		res.ExpiresAt = *sub.ExpiresAt
	}
	return res, nil
}
