package sim

import (
	"fmt"
	"sort"
	"strings"
)

// ArchetypeID names a behavioral preset. The set is closed: holder
// construction resolves the ID once and samples plain numeric traits, so
// no dispatch by ID happens after creation. ArchetypeCustom marks holders
// whose traits were supplied directly rather than sampled.
type ArchetypeID string

const (
	ArchetypeBeliever    ArchetypeID = "believer"
	ArchetypeYieldSeeker ArchetypeID = "yield_seeker"
	ArchetypeInstitution ArchetypeID = "institution"
	ArchetypeSpeculator  ArchetypeID = "speculator"
	ArchetypeCustom      ArchetypeID = "custom"
)

// Range is a closed sampling interval; traits are drawn uniformly from it.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Archetype carries the sampling ranges that parameterize a holder's
// behavior. B = f(P, E): person attributes are drawn once from these
// ranges, the environment is the model's aggregate state.
type Archetype struct {
	ID          ArchetypeID `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`

	MissionAlignment Range `json:"mission_alignment"`
	Engagement       Range `json:"engagement"`
	PriceSensitivity Range `json:"price_sensitivity"`
	HoldHorizon      Range `json:"hold_horizon"`

	RSCRange             Range   `json:"rsc_range"`
	YieldThresholdOffset float64 `json:"yield_threshold_offset"`
}

var archetypes = map[ArchetypeID]Archetype{
	ArchetypeBeliever: {
		ID:               ArchetypeBeliever,
		Name:             "Believer",
		Description:      "Believes in open science. Holds long-term (reaches 1.2x), deploys reliably, low churn.",
		MissionAlignment: Range{0.7, 1.0},
		Engagement:       Range{0.6, 0.9},
		PriceSensitivity: Range{0.0, 0.2},
		HoldHorizon:      Range{0.7, 1.0},
		RSCRange:         Range{5_000, 50_000},
		// Tolerates yield 4% below the mean threshold.
		YieldThresholdOffset: -0.04,
	},
	ArchetypeYieldSeeker: {
		ID:                   ArchetypeYieldSeeker,
		Name:                 "Yield Seeker",
		Description:          "Joins when yield > threshold, exits when it falls. Primary self-balancing force.",
		MissionAlignment:     Range{0.1, 0.4},
		Engagement:           Range{0.2, 0.5},
		PriceSensitivity:     Range{0.7, 1.0},
		HoldHorizon:          Range{0.2, 0.5},
		RSCRange:             Range{1_000, 20_000},
		YieldThresholdOffset: 0.01,
	},
	ArchetypeInstitution: {
		ID:                   ArchetypeInstitution,
		Name:                 "Institution",
		Description:          "Universities and foundations. Large RSC, very long-term, anchors participation.",
		MissionAlignment:     Range{0.6, 0.9},
		Engagement:           Range{0.4, 0.7},
		PriceSensitivity:     Range{0.0, 0.15},
		HoldHorizon:          Range{0.85, 1.0},
		RSCRange:             Range{100_000, 1_000_000},
		YieldThresholdOffset: -0.06,
	},
	ArchetypeSpeculator: {
		ID:                   ArchetypeSpeculator,
		Name:                 "Speculator",
		Description:          "Enters on high yield, exits quickly. Amplifies participation rate swings.",
		MissionAlignment:     Range{0.0, 0.15},
		Engagement:           Range{0.05, 0.2},
		PriceSensitivity:     Range{0.85, 1.0},
		HoldHorizon:          Range{0.0, 0.2},
		RSCRange:             Range{500, 15_000},
		YieldThresholdOffset: 0.03,
	},
}

// DefaultArchetypeMix returns the default population fractions.
func DefaultArchetypeMix() map[ArchetypeID]float64 {
	return map[ArchetypeID]float64{
		ArchetypeBeliever:    0.25,
		ArchetypeYieldSeeker: 0.35,
		ArchetypeInstitution: 0.15,
		ArchetypeSpeculator:  0.25,
	}
}

// ArchetypeByID resolves an archetype ID. Unknown IDs fail with an error
// naming the valid set; nothing is silently substituted.
func ArchetypeByID(id ArchetypeID) (Archetype, error) {
	arch, ok := archetypes[id]
	if !ok {
		return Archetype{}, fmt.Errorf("unknown archetype %q, valid: %s", id, strings.Join(archetypeIDStrings(), ", "))
	}
	return arch, nil
}

// Archetypes returns all archetype definitions in stable ID order.
func Archetypes() []Archetype {
	out := make([]Archetype, 0, len(archetypes))
	for _, id := range archetypeIDs() {
		out = append(out, archetypes[id])
	}
	return out
}

func archetypeIDs() []ArchetypeID {
	ids := make([]ArchetypeID, 0, len(archetypes))
	for id := range archetypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func archetypeIDStrings() []string {
	ids := archetypeIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
