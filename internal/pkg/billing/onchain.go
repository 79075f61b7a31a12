package billing

import (
	"context"
	"strings"

	"github.com/localhub-app/LocalHub/app/models"
	"github.com/google/uuid"
)

// OnchainConfig is fixed at construction time. The mock-transaction toggle
// exists for non-production verification paths only and must never be
// flipped at runtime inside business logic.
type OnchainConfig struct {
	AllowMockTransactions bool
}

// OnchainAdapter accepts self-reported cryptocurrency transfers. The
// transfer itself is validated by an external on-chain verifier before this
// adapter runs, so the purchased plan arrives as an explicit target instead
// of being inferred from an on-chain amount.
type OnchainAdapter struct {
	svc *Service
	cfg OnchainConfig
}

// NewOnchainAdapter wires the adapter to the reconciliation service.
func NewOnchainAdapter(svc *Service, cfg OnchainConfig) *OnchainAdapter {
	return &OnchainAdapter{svc: svc, cfg: cfg}
}

// SubmitClaim reconciles a verified on-chain transfer. An empty transaction
// id is only accepted when mock transactions are enabled, in which case a
// synthetic reference is generated.
func (a *OnchainAdapter) SubmitClaim(ctx context.Context, userID uint, txID string, tier Tier, months int) (*CreditResult, error) {
	if tier == TierFree {
		return nil, ErrUnresolvableAmount
	}
	if months <= 0 {
		months = 1
	}

	txID = strings.TrimSpace(txID)
	if txID == "" {
		if !a.cfg.AllowMockTransactions {
			return nil, ErrMockTransactionDisabled
		}
		txID = "mock-" + uuid.NewString()
	}

	return a.svc.Reconcile(ctx, PaymentEvent{
		UserID:         userID,
		Amount:         TotalForSubscription(tier, months),
		Currency:       "USD",
		Gateway:        models.PaymentGatewayOnchain,
		TransactionRef: txID,
	}, &CreditTarget{Tier: tier, Months: months})
}
