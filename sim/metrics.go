package sim

// MetricsRow is one per-step snapshot of the model's aggregate state,
// keyed by step. Row 0 is recorded at construction, then one row per
// Step() call.
type MetricsRow struct {
	Step              int     `json:"step"`
	Year              float64 `json:"year"`
	ParticipationRate float64 `json:"participation_rate"`
	CurrentAPY        float64 `json:"current_apy"`
	TotalRSCHeld      float64 `json:"total_rsc_held"`
	EffectiveRSC      float64 `json:"effective_rsc"`
	CirculatingSupply float64 `json:"circulating_supply"`
	WeeklyEmission    float64 `json:"weekly_emission"`
	TotalBurned       float64 `json:"total_burned"`
	CumulativeEmitted float64 `json:"cumulative_emissions"`

	ActiveHolders      int `json:"active_holders"`
	ExitedHolders      int `json:"exited_holders"`
	OpenProposals      int `json:"open_proposals"`
	FundedProposals    int `json:"funded_proposals"`
	CompletedProposals int `json:"completed_proposals"`

	// Per-archetype RSC held by active holders.
	RSCByArchetype map[ArchetypeID]float64 `json:"rsc_by_archetype"`

	// Active holder counts per time-weight tier label.
	CountByTier map[string]int `json:"count_by_tier"`

	// Per-step flows.
	ExitsStep            int     `json:"exits_step"`
	EntriesStep          int     `json:"entries_step"`
	CreditsGeneratedStep float64 `json:"credits_generated_step"`
	CreditsDeployedStep  float64 `json:"credits_deployed_step"`
}

// snapshotMetrics builds the current MetricsRow from model state.
func (m *Model) snapshotMetrics() MetricsRow {
	row := MetricsRow{
		Step:              m.stepCount,
		Year:              float64(m.stepCount) / WeeksPerYear,
		ParticipationRate: m.ParticipationRate(),
		CurrentAPY:        m.CurrentAPY(),
		TotalRSCHeld:      m.TotalRSCHeld(),
		EffectiveRSC:      m.TotalEffectiveRSC(),
		CirculatingSupply: m.CirculatingSupply(),
		WeeklyEmission:    WeeklyEmission(m.stepCount),
		TotalBurned:       m.totalBurned,
		CumulativeEmitted: m.cumulativeEmissions,

		RSCByArchetype: make(map[ArchetypeID]float64),
		CountByTier:    make(map[string]int),

		ExitsStep:            m.stepExits,
		EntriesStep:          m.stepEntries,
		CreditsGeneratedStep: m.stepCreditsGenerated,
		CreditsDeployedStep:  m.stepCreditsDeployed,
	}

	for _, id := range archetypeIDs() {
		row.RSCByArchetype[id] = 0
	}
	for _, tier := range Tiers() {
		row.CountByTier[tier.Label] = 0
	}

	for _, h := range m.holders {
		if !h.Active {
			row.ExitedHolders++
			continue
		}
		row.ActiveHolders++
		row.RSCByArchetype[h.Archetype] += h.RSCHeld
		row.CountByTier[TierFor(h.WeeksHeld).Label]++
	}

	for _, p := range m.proposals {
		switch p.Status {
		case StatusOpen:
			row.OpenProposals++
		case StatusFunded:
			row.FundedProposals++
		case StatusCompleted:
			row.CompletedProposals++
		}
	}
	return row
}

// History returns every recorded metrics row in step order. The returned
// slice is a copy; repeated calls without an intervening Step() are
// identical.
func (m *Model) History() []MetricsRow {
	out := make([]MetricsRow, len(m.history))
	copy(out, m.history)
	return out
}
