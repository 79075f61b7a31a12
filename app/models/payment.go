package models

import "time"

const (
	PaymentGatewayCardWallet = "card_wallet"
	PaymentGatewayOnchain    = "onchain"
	PaymentGatewayManual     = "manual"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is the append-mostly ledger row for a single payment event.
// (gateway, transaction_ref) is the idempotency key: at most one row per
// pair, and a completed row never transitions to any other status.
type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Gateway        string    `gorm:"type:varchar(20);not null;index:ux_payments_gateway_ref,unique,priority:1" json:"gateway"`
	TransactionRef string    `gorm:"type:varchar(191);not null;index:ux_payments_gateway_ref,unique,priority:2" json:"transaction_ref"`
	Amount         float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string    `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Status         string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
