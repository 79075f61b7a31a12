package entitlements

import (
	"testing"
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"github.com/localhub-app/LocalHub/internal/pkg/billing"
	"github.com/stretchr/testify/assert"
)

func TestForTierIsMonotonic(t *testing.T) {
	prev := ForTier(billing.TierFree)
	for _, tier := range billing.PaidTiers() {
		cur := ForTier(tier)
		assert.GreaterOrEqual(t, cur.MaxListings, prev.MaxListings, "listings must not shrink at %v", tier)
		assert.GreaterOrEqual(t, cur.MaxGalleryImages, prev.MaxGalleryImages, "gallery slots must not shrink at %v", tier)
		if prev.FeaturedPlacement {
			assert.True(t, cur.FeaturedPlacement, "featured placement must persist at %v", tier)
		}
		prev = cur
	}
	assert.True(t, ForTier(billing.TierFounder).PrioritySupport)
}

func TestEffectiveTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	assert.Equal(t, billing.TierFree, EffectiveTier(nil, now))

	active := &models.Subscription{UserID: 1, Tier: int(billing.TierGrowth), ExpiresAt: &future}
	assert.Equal(t, billing.TierGrowth, EffectiveTier(active, now))

	expired := &models.Subscription{UserID: 1, Tier: int(billing.TierGrowth), ExpiresAt: &past}
	assert.Equal(t, billing.TierFree, EffectiveTier(expired, now))

	noExpiry := &models.Subscription{UserID: 1, Tier: int(billing.TierFounder)}
	assert.Equal(t, billing.TierFree, EffectiveTier(noExpiry, now))
}
