package billing

import (
	"context"
	"errors"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing services. The ledger
// and subscription tables are only ever written through these methods. Every
// method honors the caller's context so request deadlines bound the DB work.
type Repository interface {
	// GetSubscription returns the user's subscription, or a zero-value free
	// subscription when no row exists yet.
	GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error)

	// WithSubscriptionLock runs fn against the user's locked subscription
	// row inside a transaction and persists the mutated row. The row is
	// created on first use.
	WithSubscriptionLock(ctx context.Context, userID uint, fn func(sub *models.Subscription) error) (*models.Subscription, error)

	// RecordOrGetExisting performs the idempotent ledger upsert for
	// (gateway, transactionRef). Exactly one concurrent caller observes
	// alreadyCompleted=false for a given pair.
	RecordOrGetExisting(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) (alreadyCompleted bool, err error)

	// CreatePendingPayment inserts a pending ledger row if none exists for
	// the pair. Used for the manual-submission mirror record.
	CreatePendingPayment(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) error

	// SetPaymentStatus moves a non-completed ledger row to the given status.
	// Completed rows are terminal and never downgraded.
	SetPaymentStatus(ctx context.Context, gateway, transactionRef, status string) error

	CreateManualSubmission(ctx context.Context, sub *models.ManualPaymentSubmission) error
	GetManualSubmission(ctx context.Context, id string) (*models.ManualPaymentSubmission, error)

	// MarkManualSubmissionReviewed transitions a pending submission to the
	// given terminal status. Returns false when the submission was no longer
	// pending (a concurrent reviewer won).
	MarkManualSubmissionReviewed(ctx context.Context, id, toStatus string, reviewerID uint, notes string, reviewedAt time.Time) (bool, error)

	ListPendingManualSubmissions(ctx context.Context, offset, limit int) ([]models.ManualPaymentSubmission, error)
	ListManualSubmissionsByUser(ctx context.Context, userID uint) ([]models.ManualPaymentSubmission, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Subscription{UserID: userID, Tier: int(TierFree)}, nil
	}
	if err != nil {
		return nil, storageErr("get subscription", err)
	}
	return &sub, nil
}

func (r *gormRepository) WithSubscriptionLock(ctx context.Context, userID uint, fn func(sub *models.Subscription) error) (*models.Subscription, error) {
	var out *models.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = models.Subscription{UserID: userID, Tier: int(TierFree)}
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := fn(&sub); err != nil {
			return err
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}
		out = &sub
		return nil
	})
	if err != nil {
		return nil, storageErr("apply subscription credit", err)
	}
	return out, nil
}

func (r *gormRepository) RecordOrGetExisting(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) (bool, error) {
	db := r.db.WithContext(ctx)
	row := &models.Payment{
		UserID:         userID,
		Gateway:        gateway,
		TransactionRef: transactionRef,
		Amount:         amount,
		Currency:       currency,
		Status:         models.PaymentStatusCompleted,
	}
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "gateway"},
			{Name: "transaction_ref"},
		},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, storageErr("insert ledger row", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return false, nil
	}

	// A row already exists for this reference.
	var existing models.Payment
	if err := db.Where("gateway = ? AND transaction_ref = ?", gateway, transactionRef).
		First(&existing).Error; err != nil {
		return false, storageErr("read ledger row", err)
	}
	if existing.Status == models.PaymentStatusCompleted {
		return true, nil
	}

	// Pending/failed row: the guarded update decides the winner when two
	// callers race on the same reference.
	res := db.Model(&models.Payment{}).
		Where("gateway = ? AND transaction_ref = ? AND status <> ?", gateway, transactionRef, models.PaymentStatusCompleted).
		Update("status", models.PaymentStatusCompleted)
	if res.Error != nil {
		return false, storageErr("complete ledger row", res.Error)
	}
	return res.RowsAffected == 0, nil
}

func (r *gormRepository) CreatePendingPayment(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) error {
	row := &models.Payment{
		UserID:         userID,
		Gateway:        gateway,
		TransactionRef: transactionRef,
		Amount:         amount,
		Currency:       currency,
		Status:         models.PaymentStatusPending,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "gateway"},
			{Name: "transaction_ref"},
		},
		DoNothing: true,
	}).Create(row).Error
	return storageErr("insert pending ledger row", err)
}

func (r *gormRepository) SetPaymentStatus(ctx context.Context, gateway, transactionRef, status string) error {
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("gateway = ? AND transaction_ref = ? AND status <> ?", gateway, transactionRef, models.PaymentStatusCompleted).
		Update("status", status).Error
	return storageErr("update ledger status", err)
}

func (r *gormRepository) CreateManualSubmission(ctx context.Context, sub *models.ManualPaymentSubmission) error {
	return storageErr("insert manual submission", r.db.WithContext(ctx).Create(sub).Error)
}

func (r *gormRepository) GetManualSubmission(ctx context.Context, id string) (*models.ManualPaymentSubmission, error) {
	var sub models.ManualPaymentSubmission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("get manual submission", err)
	}
	return &sub, nil
}

func (r *gormRepository) MarkManualSubmissionReviewed(ctx context.Context, id, toStatus string, reviewerID uint, notes string, reviewedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ManualPaymentSubmission{}).
		Where("id = ? AND status = ?", id, models.ManualSubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"reviewed_at": &reviewedAt,
			"reviewed_by": reviewerID,
			"admin_notes": notes,
		})
	if res.Error != nil {
		return false, storageErr("review manual submission", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ListPendingManualSubmissions(ctx context.Context, offset, limit int) ([]models.ManualPaymentSubmission, error) {
	var subs []models.ManualPaymentSubmission
	err := r.db.WithContext(ctx).Where("status = ?", models.ManualSubmissionStatusPending).
		Order("submitted_at ASC").
		Offset(offset).Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, storageErr("list pending manual submissions", err)
	}
	return subs, nil
}

func (r *gormRepository) ListManualSubmissionsByUser(ctx context.Context, userID uint) ([]models.ManualPaymentSubmission, error) {
	var subs []models.ManualPaymentSubmission
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, storageErr("list manual submissions", err)
	}
	return subs, nil
}
