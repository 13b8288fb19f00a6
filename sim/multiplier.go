package sim

// MultiplierTier is one band of the time-weight schedule. Holding duration
// scales a holder's yield share: longer continuous holding earns a larger
// slice of each week's emission.
type MultiplierTier struct {
	Label       string  `json:"label" yaml:"label"`
	MaxWeeks    *int    `json:"max_weeks" yaml:"max_weeks"` // nil = no upper bound
	Multiplier  float64 `json:"multiplier" yaml:"multiplier"`
	Description string  `json:"description" yaml:"description"`
}

func weeksPtr(w int) *int { return &w }

// multiplierTiers is ordered by ascending MaxWeeks; the final tier is
// unbounded. MultiplierFor relies on this ordering.
var multiplierTiers = []MultiplierTier{
	{Label: "New", MaxWeeks: weeksPtr(4), Multiplier: 1.00, Description: "Holding < 4 weeks. Base yield share."},
	{Label: "Holder", MaxWeeks: weeksPtr(52), Multiplier: 1.15, Description: "Holding 4 weeks–1 year. 15% boost."},
	{Label: "LongTerm", MaxWeeks: nil, Multiplier: 1.20, Description: "Holding > 1 year. 20% boost."},
}

// Tiers returns the full time-weight schedule, ordered shortest first.
// The returned slice is shared; callers must not modify it.
func Tiers() []MultiplierTier {
	return multiplierTiers
}

// TierFor returns the tier a holding duration falls into.
func TierFor(weeksHeld int) MultiplierTier {
	for _, tier := range multiplierTiers {
		if tier.MaxWeeks == nil || weeksHeld < *tier.MaxWeeks {
			return tier
		}
	}
	return multiplierTiers[len(multiplierTiers)-1]
}

// MultiplierFor returns the time-weight multiplier for a holding duration.
// Monotonic step function: 1.00x below 4 weeks, 1.15x to a year, 1.20x beyond.
func MultiplierFor(weeksHeld int) float64 {
	return TierFor(weeksHeld).Multiplier
}
