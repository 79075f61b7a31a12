package billing

import "time"

// PaymentEvent is the normalized claim every gateway adapter produces after
// authenticating a payment. The reconciliation service only ever sees this
// shape, never a raw gateway payload.
type PaymentEvent struct {
	UserID         uint
	Amount         float64
	Currency       string
	Gateway        string
	TransactionRef string
}

// CreditTarget carries an explicit tier/months for adapters that already
// know the purchased plan (manual review, on-chain claims). When absent the
// service resolves the plan from the paid amount.
type CreditTarget struct {
	Tier   Tier
	Months int
}

// CreditResult is the subscription state after reconciling a payment event.
// AlreadyApplied is true when the event was a replay and no state changed.
type CreditResult struct {
	Tier           Tier
	ExpiresAt      time.Time
	AlreadyApplied bool
}
