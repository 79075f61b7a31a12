package models

import "time"

const (
	ManualSubmissionStatusPending  = "pending"
	ManualSubmissionStatusApproved = "approved"
	ManualSubmissionStatusRejected = "rejected"
)

// Normalized payment methods for manual submissions. Regional aliases are
// collapsed into this closed vocabulary at submit time so reporting does
// not have to deal with free-form method strings.
const (
	ManualMethodBankTransfer = "bank_transfer"
	ManualMethodCashDeposit  = "cash_deposit"
	ManualMethodOther        = "other"
)

// ManualPaymentSubmission is a human-reviewed payment claim: a user uploads
// a bank-transfer receipt and an admin approves or rejects it. Review
// transitions are terminal; rejection is additionally gated by a cooldown.
type ManualPaymentSubmission struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	BusinessID  uint       `gorm:"not null;index" json:"business_id"`
	PlanID      string     `gorm:"type:varchar(50);not null" json:"plan_id"`
	AmountUSD   float64    `gorm:"type:decimal(10,2);not null" json:"amount_usd"`
	Method      string     `gorm:"type:varchar(32);not null" json:"method"`
	Reference   string     `gorm:"type:varchar(191);default:null" json:"reference,omitempty"`
	ReceiptRef  string     `gorm:"type:varchar(255);not null" json:"receipt_ref"`
	Status      string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	SubmittedAt time.Time  `gorm:"autoCreateTime;index" json:"submitted_at"`
	ReviewedAt  *time.Time `gorm:"type:timestamp;default:null" json:"reviewed_at,omitempty"`
	ReviewedBy  *uint      `gorm:"default:null" json:"reviewed_by,omitempty"`
	AdminNotes  string     `gorm:"type:text" json:"admin_notes,omitempty"`
}

// IsPending reports whether the submission is still awaiting review.
func (m *ManualPaymentSubmission) IsPending() bool {
	return m.Status == ManualSubmissionStatusPending
}
