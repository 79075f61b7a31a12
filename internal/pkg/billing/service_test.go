package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"gorm.io/gorm"
)

// fakeRepository mirrors the semantics of the GORM repository in memory,
// including the first-writer-wins behavior of the ledger upsert.
type fakeRepository struct {
	mu       sync.Mutex
	subs     map[uint]*models.Subscription
	payments map[string]*models.Payment
	manual   map[string]*models.ManualPaymentSubmission

	failCreateManual error
	failRecordOnce   error
	creditCalls      int
	lastRecordCtx    context.Context
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subs:     make(map[uint]*models.Subscription),
		payments: make(map[string]*models.Payment),
		manual:   make(map[string]*models.ManualPaymentSubmission),
	}
}

func ledgerKey(gateway, ref string) string { return gateway + "|" + ref }

func (f *fakeRepository) GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[userID]; ok {
		cp := *sub
		return &cp, nil
	}
	return &models.Subscription{UserID: userID, Tier: int(TierFree)}, nil
}

func (f *fakeRepository) WithSubscriptionLock(ctx context.Context, userID uint, fn func(sub *models.Subscription) error) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++
	sub, ok := f.subs[userID]
	if !ok {
		sub = &models.Subscription{UserID: userID, Tier: int(TierFree)}
		f.subs[userID] = sub
	}
	if err := fn(sub); err != nil {
		return nil, err
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeRepository) RecordOrGetExisting(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRecordCtx = ctx
	if err := f.failRecordOnce; err != nil {
		f.failRecordOnce = nil
		return false, err
	}
	key := ledgerKey(gateway, transactionRef)
	if row, ok := f.payments[key]; ok {
		if row.Status == models.PaymentStatusCompleted {
			return true, nil
		}
		row.Status = models.PaymentStatusCompleted
		return false, nil
	}
	f.payments[key] = &models.Payment{
		UserID:         userID,
		Gateway:        gateway,
		TransactionRef: transactionRef,
		Amount:         amount,
		Currency:       currency,
		Status:         models.PaymentStatusCompleted,
	}
	return false, nil
}

func (f *fakeRepository) CreatePendingPayment(ctx context.Context, gateway, transactionRef string, userID uint, amount float64, currency string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey(gateway, transactionRef)
	if _, ok := f.payments[key]; ok {
		return nil
	}
	f.payments[key] = &models.Payment{
		UserID:         userID,
		Gateway:        gateway,
		TransactionRef: transactionRef,
		Amount:         amount,
		Currency:       currency,
		Status:         models.PaymentStatusPending,
	}
	return nil
}

func (f *fakeRepository) SetPaymentStatus(ctx context.Context, gateway, transactionRef, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.payments[ledgerKey(gateway, transactionRef)]; ok && row.Status != models.PaymentStatusCompleted {
		row.Status = status
	}
	return nil
}

func (f *fakeRepository) CreateManualSubmission(ctx context.Context, sub *models.ManualPaymentSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateManual != nil {
		return f.failCreateManual
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	cp := *sub
	f.manual[sub.ID] = &cp
	return nil
}

func (f *fakeRepository) GetManualSubmission(ctx context.Context, id string) (*models.ManualPaymentSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.manual[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeRepository) MarkManualSubmissionReviewed(ctx context.Context, id, toStatus string, reviewerID uint, notes string, reviewedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.manual[id]
	if !ok || sub.Status != models.ManualSubmissionStatusPending {
		return false, nil
	}
	sub.Status = toStatus
	sub.ReviewedAt = &reviewedAt
	sub.ReviewedBy = &reviewerID
	sub.AdminNotes = notes
	return true, nil
}

func (f *fakeRepository) ListPendingManualSubmissions(ctx context.Context, offset, limit int) ([]models.ManualPaymentSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ManualPaymentSubmission
	for _, sub := range f.manual {
		if sub.Status == models.ManualSubmissionStatusPending {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListManualSubmissionsByUser(ctx context.Context, userID uint) ([]models.ManualPaymentSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ManualPaymentSubmission
	for _, sub := range f.manual {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func newTestService(repo *fakeRepository, now time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func TestReconcileScenarioA_FreeUserFounderMonth(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	res, err := svc.Reconcile(context.Background(), PaymentEvent{
		UserID:         1,
		Amount:         5.00,
		Currency:       "USD",
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_a",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierFounder {
		t.Fatalf("expected founder tier, got %v", res.Tier)
	}
	if want := now.Add(30 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}
	if res.AlreadyApplied {
		t.Fatalf("first application must not be marked as replay")
	}
}

func TestReconcileScenarioB_AnnualAmount(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	res, err := svc.Reconcile(context.Background(), PaymentEvent{
		UserID:         1,
		Amount:         50.00,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_b",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierFounder {
		t.Fatalf("expected founder tier, got %v", res.Tier)
	}
	// 12 months of service for 10 paid months.
	if want := now.Add(12 * 30 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	event := PaymentEvent{
		UserID:         7,
		Amount:         5.00,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_123",
	}

	first, err := svc.Reconcile(context.Background(), event, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		res, err := svc.Reconcile(context.Background(), event, nil)
		if err != nil {
			t.Fatalf("replay %d errored: %v", i, err)
		}
		if !res.AlreadyApplied {
			t.Fatalf("replay %d was not detected as duplicate", i)
		}
		if res.Tier != first.Tier || !res.ExpiresAt.Equal(first.ExpiresAt) {
			t.Fatalf("replay %d changed state: %+v vs %+v", i, res, first)
		}
	}
	if repo.creditCalls != 1 {
		t.Fatalf("expected exactly one subscription mutation, got %d", repo.creditCalls)
	}
}

func TestReconcileConcurrentSameRef(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	event := PaymentEvent{
		UserID:         9,
		Amount:         5.00,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_123",
	}

	var wg sync.WaitGroup
	results := make([]*CreditResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Reconcile(context.Background(), event, nil)
			if err != nil {
				t.Errorf("call %d errored: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	if repo.creditCalls != 1 {
		t.Fatalf("expected exactly one subscription mutation, got %d", repo.creditCalls)
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("call %d returned no result", i)
		}
		if res.Tier != results[0].Tier || !res.ExpiresAt.Equal(results[0].ExpiresAt) {
			t.Fatalf("call %d returned divergent state", i)
		}
	}
}

func TestReconcileUnresolvableAmount(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	_, err := svc.Reconcile(context.Background(), PaymentEvent{
		UserID:         1,
		Amount:         4.20,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_x",
	}, nil)
	if !errors.Is(err, ErrUnresolvableAmount) {
		t.Fatalf("expected ErrUnresolvableAmount, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatalf("no ledger row must be written for an unresolvable amount")
	}
	if repo.creditCalls != 0 {
		t.Fatalf("no credit must be applied for an unresolvable amount")
	}
}

func TestApplyCreditExtendsSameTier(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	expires := now.Add(10 * 24 * time.Hour)
	repo.subs[3] = &models.Subscription{UserID: 3, Tier: int(TierGrowth), ExpiresAt: &expires}

	res, err := svc.ApplyCredit(context.Background(), 3, TierGrowth, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := expires.Add(90 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("renewal must extend from current expiry: want %v, got %v", want, res.ExpiresAt)
	}
	if res.ExpiresAt.Before(expires) {
		t.Fatalf("expiry must never decrease")
	}
}

func TestApplyCreditTierChangeRestartsClock(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	expires := now.Add(200 * 24 * time.Hour)
	repo.subs[3] = &models.Subscription{UserID: 3, Tier: int(TierStarter), ExpiresAt: &expires}

	res, err := svc.ApplyCredit(context.Background(), 3, TierFounder, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierFounder {
		t.Fatalf("expected founder tier, got %v", res.Tier)
	}
	if want := now.Add(30 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("tier switch must restart from now: want %v, got %v", want, res.ExpiresAt)
	}
}

func TestApplyCreditExpiredSubscriptionRestartsClock(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	expired := now.Add(-24 * time.Hour)
	repo.subs[4] = &models.Subscription{UserID: 4, Tier: int(TierGrowth), ExpiresAt: &expired}

	res, err := svc.ApplyCredit(context.Background(), 4, TierGrowth, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.Add(30 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expired subscription must restart from now: want %v, got %v", want, res.ExpiresAt)
	}
}

func TestReconcileExplicitTargetSkipsResolver(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	// Amount alone would not resolve, but the adapter knows the plan.
	res, err := svc.Reconcile(context.Background(), PaymentEvent{
		UserID:         5,
		Amount:         0.0042,
		Gateway:        models.PaymentGatewayOnchain,
		TransactionRef: "0xabc",
	}, &CreditTarget{Tier: TierStarter, Months: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierStarter {
		t.Fatalf("expected starter tier, got %v", res.Tier)
	}
	if want := now.Add(90 * 24 * time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}
}

type ctxKey string

func TestReconcilePassesCallerContextToRepository(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	ctx := context.WithValue(context.Background(), ctxKey("req"), "r-42")
	_, err := svc.Reconcile(ctx, PaymentEvent{
		UserID:         1,
		Amount:         5.00,
		Gateway:        models.PaymentGatewayCardWallet,
		TransactionRef: "cap_ctx",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastRecordCtx == nil {
		t.Fatalf("repository never saw a context")
	}
	if got := repo.lastRecordCtx.Value(ctxKey("req")); got != "r-42" {
		t.Fatalf("repository must receive the caller's context, got value %v", got)
	}
}
