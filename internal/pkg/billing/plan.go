package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier is the ordinal membership level of a directory account. Higher tiers
// grant a superset of the lower tiers' benefits.
type Tier int

const (
	TierFree Tier = iota
	TierStarter
	TierGrowth
	TierFounder
)

// Monthly plan prices in USD. Chosen so that no plan total for the offered
// durations collides with a lower tier within the matching tolerance.
var monthlyPrices = map[Tier]float64{
	TierFree:    0,
	TierStarter: 1.99,
	TierGrowth:  3.49,
	TierFounder: 5.00,
}

const (
	// amountTolerance absorbs gateway fee rounding when matching an amount
	// against a plan total.
	amountTolerance = 0.11

	// An annual commitment is billed as 10 months for 12 months of service.
	annualPaidMonths    = 10
	annualServiceMonths = 12
)

func (t Tier) String() string {
	switch t {
	case TierStarter:
		return "starter"
	case TierGrowth:
		return "growth"
	case TierFounder:
		return "founder"
	default:
		return "free"
	}
}

// ParseTier maps a plan name back to its tier. Unknown names map to free.
func ParseTier(name string) Tier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "starter":
		return TierStarter
	case "growth":
		return TierGrowth
	case "founder":
		return TierFounder
	default:
		return TierFree
	}
}

// PaidTiers returns the purchasable tiers in ascending price order.
func PaidTiers() []Tier {
	return []Tier{TierStarter, TierGrowth, TierFounder}
}

// PriceForTier returns the monthly price of a tier. Free is 0.
func PriceForTier(t Tier) float64 {
	return monthlyPrices[t]
}

// TotalForSubscription returns the charge for a tier over the given number
// of months. Twelve months are billed as ten (annual discount). Returns 0
// for the free tier or non-positive durations.
func TotalForSubscription(t Tier, months int) float64 {
	if t == TierFree || months <= 0 {
		return 0
	}
	effective := months
	if months == annualServiceMonths {
		effective = annualPaidMonths
	}
	return round2(PriceForTier(t) * float64(effective))
}

// ResolveFromAmount maps a paid amount back to (tier, months). Tiers are
// tried in ascending price order and the first one whose plan total matches
// within tolerance wins; this makes resolution deterministic when an amount
// could in principle fit more than one tier. Ten paid months resolve to
// twelve months of service per the annual rule. Returns ok=false when no
// tier matches; callers must reject the claim rather than guess.
func ResolveFromAmount(amount float64) (Tier, int, bool) {
	amount = round2(amount)
	if amount <= 0 {
		return TierFree, 0, false
	}
	for _, t := range PaidTiers() {
		price := PriceForTier(t)
		months := int(math.Round(amount / price))
		if months < 1 {
			continue
		}
		if math.Abs(amount-round2(price*float64(months))) <= amountTolerance {
			if months == annualPaidMonths {
				months = annualServiceMonths
			}
			return t, months, true
		}
	}
	return TierFree, 0, false
}

// PlanID encodes a purchasable plan as "<tier>_<months>", e.g. "growth_3".
func PlanID(t Tier, months int) string {
	return fmt.Sprintf("%s_%d", t, months)
}

// ParsePlanID decodes a plan id produced by PlanID. The months component
// must be one of the offered durations.
func ParsePlanID(id string) (Tier, int, bool) {
	name, monthsPart, found := strings.Cut(strings.ToLower(strings.TrimSpace(id)), "_")
	if !found {
		return TierFree, 0, false
	}
	tier := ParseTier(name)
	if tier == TierFree {
		return TierFree, 0, false
	}
	months, err := strconv.Atoi(monthsPart)
	if err != nil {
		return TierFree, 0, false
	}
	switch months {
	case 1, 3, annualServiceMonths:
		return tier, months, true
	default:
		return TierFree, 0, false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
