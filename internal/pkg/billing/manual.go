package billing

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"github.com/google/uuid"
)

// rejectCooldown protects submitters from hasty rejections: a reviewer may
// only reject once this much time has passed since submission.
const rejectCooldown = 24 * time.Hour

// AssetStore deletes stored receipt assets by their opaque reference. Used
// for best-effort cleanup when a submission fails after upload.
type AssetStore interface {
	Delete(ctx context.Context, ref string) error
}

// ManualSubmitInput is a user-uploaded bank-transfer payment claim.
type ManualSubmitInput struct {
	UserID     uint
	BusinessID uint
	PlanID     string
	AmountUSD  float64
	Method     string
	ReceiptRef string
	Reference  string
}

// ManualReviewService implements the human-in-the-loop payment channel:
// users submit receipts, admins approve or reject. Approval feeds the
// reconciliation service; both transitions are terminal.
type ManualReviewService struct {
	repo   Repository
	svc    *Service
	assets AssetStore
	now    func() time.Time
}

// NewManualReviewService wires the manual channel to the reconciliation
// service and the receipt asset store.
func NewManualReviewService(repo Repository, svc *Service, assets AssetStore) *ManualReviewService {
	return &ManualReviewService{repo: repo, svc: svc, assets: assets, now: time.Now}
}

// Submit records a pending manual payment claim and mirrors it into the
// general ledger. If the submission insert fails after the receipt asset
// was stored, the orphaned asset is deleted best-effort.
func (m *ManualReviewService) Submit(ctx context.Context, in ManualSubmitInput) (*models.ManualPaymentSubmission, error) {
	// The receipt asset is stored before Submit runs, so every failure path
	// from here on must attempt to delete it.
	if in.UserID == 0 || in.BusinessID == 0 || strings.TrimSpace(in.ReceiptRef) == "" {
		m.cleanupReceipt(ctx, strings.TrimSpace(in.ReceiptRef))
		return nil, errors.New("billing: user_id, business_id and receipt are required")
	}
	if _, _, ok := ParsePlanID(in.PlanID); !ok {
		m.cleanupReceipt(ctx, in.ReceiptRef)
		return nil, ErrUnresolvableAmount
	}
	if in.AmountUSD <= 0 {
		m.cleanupReceipt(ctx, in.ReceiptRef)
		return nil, ErrUnresolvableAmount
	}

	sub := &models.ManualPaymentSubmission{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		BusinessID: in.BusinessID,
		PlanID:     strings.ToLower(strings.TrimSpace(in.PlanID)),
		AmountUSD:  round2(in.AmountUSD),
		Method:     NormalizeManualMethod(in.Method),
		Reference:  strings.TrimSpace(in.Reference),
		ReceiptRef: strings.TrimSpace(in.ReceiptRef),
		Status:     models.ManualSubmissionStatusPending,
	}
	if err := m.repo.CreateManualSubmission(ctx, sub); err != nil {
		m.cleanupReceipt(ctx, sub.ReceiptRef)
		return nil, err
	}

	// Mirror into the general ledger for reporting. The submission row is
	// the source of truth; a mirror failure is logged and not rolled back.
	if err := m.repo.CreatePendingPayment(ctx, models.PaymentGatewayManual, manualTransactionRef(sub.ID), sub.UserID, sub.AmountUSD, "USD"); err != nil {
		log.Printf("[Billing] mirror insert for manual submission %s failed: %v", sub.ID, err)
	}

	return sub, nil
}

// Approve credits the submission's plan to the user and marks the
// submission approved. Only valid from pending. If the credit fails the
// submission stays pending and can be retried.
func (m *ManualReviewService) Approve(ctx context.Context, submissionID string, reviewerID uint) (*CreditResult, error) {
	sub, err := m.repo.GetManualSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsPending() {
		return nil, ErrInvalidTransition
	}

	tier, months, ok := ParsePlanID(sub.PlanID)
	if !ok {
		return nil, ErrUnresolvableAmount
	}

	result, err := m.svc.Reconcile(ctx, PaymentEvent{
		UserID:         sub.UserID,
		Amount:         sub.AmountUSD,
		Currency:       "USD",
		Gateway:        models.PaymentGatewayManual,
		TransactionRef: manualTransactionRef(sub.ID),
	}, &CreditTarget{Tier: tier, Months: months})
	if err != nil {
		return nil, err
	}

	transitioned, err := m.repo.MarkManualSubmissionReviewed(
		ctx, sub.ID, models.ManualSubmissionStatusApproved, reviewerID, "", m.now())
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// A concurrent reviewer got there first. The ledger already
		// deduplicated the credit, so the outcome is identical.
		log.Printf("[Billing] manual submission %s was reviewed concurrently", sub.ID)
	}
	return result, nil
}

// Reject marks the submission rejected and mirrors the linked ledger row to
// failed. Only valid from pending, and only after the review cooldown; an
// early attempt reports the remaining wait in whole hours.
func (m *ManualReviewService) Reject(ctx context.Context, submissionID string, reviewerID uint, notes string) error {
	sub, err := m.repo.GetManualSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if !sub.IsPending() {
		return ErrInvalidTransition
	}

	if elapsed := m.now().Sub(sub.SubmittedAt); elapsed < rejectCooldown {
		remaining := int(math.Ceil((rejectCooldown - elapsed).Hours()))
		return &CooldownError{HoursRemaining: remaining}
	}

	transitioned, err := m.repo.MarkManualSubmissionReviewed(
		ctx, sub.ID, models.ManualSubmissionStatusRejected, reviewerID, strings.TrimSpace(notes), m.now())
	if err != nil {
		return err
	}
	if !transitioned {
		return ErrInvalidTransition
	}

	if err := m.repo.SetPaymentStatus(ctx, models.PaymentGatewayManual, manualTransactionRef(sub.ID), models.PaymentStatusFailed); err != nil {
		log.Printf("[Billing] mirror update for rejected submission %s failed: %v", sub.ID, err)
	}
	return nil
}

// MySubmissions lists a user's own manual submissions, newest first.
func (m *ManualReviewService) MySubmissions(ctx context.Context, userID uint) ([]models.ManualPaymentSubmission, error) {
	return m.repo.ListManualSubmissionsByUser(ctx, userID)
}

// PendingSubmissions lists the review queue, oldest first.
func (m *ManualReviewService) PendingSubmissions(ctx context.Context, offset, limit int) ([]models.ManualPaymentSubmission, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return m.repo.ListPendingManualSubmissions(ctx, offset, limit)
}

func (m *ManualReviewService) cleanupReceipt(ctx context.Context, ref string) {
	if m.assets == nil || ref == "" {
		return
	}
	if err := m.assets.Delete(ctx, ref); err != nil {
		log.Printf("[Billing] failed to delete orphaned receipt %s: %v", ref, err)
	}
}

func manualTransactionRef(submissionID string) string {
	return "manual:" + submissionID
}

// NormalizeManualMethod collapses regional payment-method aliases into the
// closed vocabulary stored on submissions. InstaPay and similar mobile
// transfer rails are treated as bank transfers for reporting purposes.
func NormalizeManualMethod(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case models.ManualMethodBankTransfer, "wire", "instapay", "mobile_transfer":
		return models.ManualMethodBankTransfer
	case models.ManualMethodCashDeposit, "cash":
		return models.ManualMethodCashDeposit
	default:
		return models.ManualMethodOther
	}
}
