package billing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
)

func TestOnchainSubmitClaim(t *testing.T) {
	repo := newFakeRepository()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adapter := NewOnchainAdapter(newTestService(repo, now), OnchainConfig{})

	res, err := adapter.SubmitClaim(context.Background(), 1, "0xdeadbeef", TierGrowth, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierGrowth {
		t.Fatalf("expected growth tier, got %v", res.Tier)
	}

	row, ok := repo.payments[ledgerKey(models.PaymentGatewayOnchain, "0xdeadbeef")]
	if !ok {
		t.Fatalf("expected a ledger row for the transaction id")
	}
	if row.Status != models.PaymentStatusCompleted {
		t.Fatalf("ledger row must be completed, got %q", row.Status)
	}

	// The same transaction id cannot credit twice.
	replay, err := adapter.SubmitClaim(context.Background(), 1, "0xdeadbeef", TierGrowth, 3)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !replay.AlreadyApplied {
		t.Fatalf("replayed transaction id must be a no-op")
	}
}

func TestOnchainMockTransactionsGated(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, time.Now())

	// Disabled (production): empty tx id is refused outright.
	adapter := NewOnchainAdapter(svc, OnchainConfig{AllowMockTransactions: false})
	if _, err := adapter.SubmitClaim(context.Background(), 1, "", TierFounder, 1); !errors.Is(err, ErrMockTransactionDisabled) {
		t.Fatalf("expected ErrMockTransactionDisabled, got %v", err)
	}

	// Enabled (dev): a synthetic reference is generated.
	adapter = NewOnchainAdapter(svc, OnchainConfig{AllowMockTransactions: true})
	res, err := adapter.SubmitClaim(context.Background(), 1, "", TierFounder, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Tier != TierFounder {
		t.Fatalf("expected founder tier, got %v", res.Tier)
	}

	found := false
	for key := range repo.payments {
		if strings.HasPrefix(key, models.PaymentGatewayOnchain+"|mock-") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a mock-prefixed ledger row, got %v", repo.payments)
	}
}

func TestOnchainRejectsFreeTier(t *testing.T) {
	repo := newFakeRepository()
	adapter := NewOnchainAdapter(newTestService(repo, time.Now()), OnchainConfig{})
	if _, err := adapter.SubmitClaim(context.Background(), 1, "0xabc", TierFree, 1); !errors.Is(err, ErrUnresolvableAmount) {
		t.Fatalf("expected ErrUnresolvableAmount, got %v", err)
	}
}
