package entitlements

import (
	"time"

	"github.com/localhub-app/LocalHub/app/models"
	"github.com/localhub-app/LocalHub/internal/pkg/billing"
)

// Limits describes what a membership tier allows in the directory.
type Limits struct {
	MaxListings       int  `json:"max_listings"`
	MaxGalleryImages  int  `json:"max_gallery_images"`
	FeaturedPlacement bool `json:"featured_placement"`
	PrioritySupport   bool `json:"priority_support"`
}

// ForTier returns the directory allowances for a tier. Higher tiers are a
// strict superset of lower ones.
func ForTier(t billing.Tier) Limits {
	switch t {
	case billing.TierFounder:
		return Limits{MaxListings: 25, MaxGalleryImages: 50, FeaturedPlacement: true, PrioritySupport: true}
	case billing.TierGrowth:
		return Limits{MaxListings: 10, MaxGalleryImages: 20, FeaturedPlacement: true, PrioritySupport: false}
	case billing.TierStarter:
		return Limits{MaxListings: 3, MaxGalleryImages: 10, FeaturedPlacement: false, PrioritySupport: false}
	default:
		return Limits{MaxListings: 1, MaxGalleryImages: 3, FeaturedPlacement: false, PrioritySupport: false}
	}
}

// EffectiveTier returns the tier a subscription actually grants at t.
// A missing or lapsed expiry means free, regardless of the stored tier.
func EffectiveTier(sub *models.Subscription, t time.Time) billing.Tier {
	if sub == nil || !sub.IsActive(t) {
		return billing.TierFree
	}
	return billing.Tier(sub.Tier)
}
