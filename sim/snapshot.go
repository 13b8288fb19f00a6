package sim

import (
	"gonum.org/v1/gonum/stat"
)

// HolderView is the flat serialized record for one holder. Every holder
// attribute the engine tracks is a required field here.
type HolderView struct {
	ID        int         `json:"id"`
	Archetype ArchetypeID `json:"archetype"`
	Active    bool        `json:"active"`

	MissionAlignment float64 `json:"mission_alignment"`
	Engagement       float64 `json:"engagement"`
	PriceSensitivity float64 `json:"price_sensitivity"`
	HoldHorizon      float64 `json:"hold_horizon"`

	RSCHeld         float64 `json:"rsc_held"`
	WeeksHeld       int     `json:"weeks_held"`
	YieldThreshold  float64 `json:"yield_threshold"`
	Credits         float64 `json:"credits"`
	Multiplier      float64 `json:"multiplier"`
	MultiplierLabel string  `json:"multiplier_label"`
	EffectiveRSC    float64 `json:"effective_rsc"`

	TotalDeployed    float64 `json:"total_deployed"`
	TotalBurned      float64 `json:"total_burned"`
	TotalExpired     float64 `json:"total_expired"`
	DeploymentsCount int     `json:"deployments_count"`
	IdleSteps        int     `json:"idle_steps"`
}

// ProposalView is the flat serialized record for one proposal.
type ProposalView struct {
	ID              int            `json:"id"`
	FundingTarget   float64        `json:"funding_target"`
	CreditsReceived float64        `json:"credits_received"`
	FundingProgress float64        `json:"funding_progress"` // percent
	BackerCount     int            `json:"backer_count"`
	Status          ProposalStatus `json:"status"`
	StepCreated     int            `json:"step_created"`
	StepFunded      *int           `json:"step_funded"`
	StepResolved    *int           `json:"step_resolved"`
}

// DeploymentView is one deployment from the current step, for the
// dashboard's flow animation.
type DeploymentView struct {
	HolderID   int         `json:"holder_id"`
	Archetype  ArchetypeID `json:"archetype"`
	ProposalID int         `json:"proposal_id"`
	Credits    float64     `json:"credits"`
	Burned     float64     `json:"burned"`
}

// ArchetypeMetrics aggregates behavioral outcomes for one archetype group.
type ArchetypeMetrics struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Exited int `json:"exited"`

	AvgRSC        float64 `json:"avg_rsc"`
	StddevRSC     float64 `json:"stddev_rsc"`
	AvgWeeksHeld  float64 `json:"avg_weeks_held"`
	AvgMultiplier float64 `json:"avg_multiplier"`
	AvgCredits    float64 `json:"avg_credits"`
	TotalDeployed float64 `json:"total_deployed"`
	TotalBurned   float64 `json:"total_burned"`
}

// TierDistribution describes the active population at one time-weight tier.
type TierDistribution struct {
	Count      int     `json:"count"`
	RSC        float64 `json:"rsc"`
	Multiplier float64 `json:"multiplier"`
}

// ParticipationData is the primary equilibrium readout plus the three
// fixed reference scenarios at hypothetical participation rates.
type ParticipationData struct {
	ParticipationRate float64            `json:"participation_rate"`
	CurrentAPY        float64            `json:"current_apy"`
	TotalRSCHeld      float64            `json:"total_rsc_held"`
	CirculatingSupply float64            `json:"circulating_supply"`
	AnnualEmission    float64            `json:"annual_emission"`
	Year              float64            `json:"year"`
	Scenarios         map[string]float64 `json:"scenarios"`
}

// ModelMetrics is the computed summary used by dashboards and the CLI's
// end-of-run report.
type ModelMetrics struct {
	Step int     `json:"step"`
	Year float64 `json:"year"`

	ParticipationRate float64 `json:"participation_rate"`
	CurrentAPY        float64 `json:"current_apy"`
	TotalRSCHeld      float64 `json:"total_rsc_held"`
	CirculatingSupply float64 `json:"circulating_supply"`
	AnnualEmission    float64 `json:"annual_emission"`
	WeeklyEmission    float64 `json:"weekly_emission"`

	TotalCredits          float64 `json:"total_credits"`
	TotalBurned           float64 `json:"total_burned"`
	TotalCreditsGenerated float64 `json:"total_credits_generated"`
	TotalCreditsDeployed  float64 `json:"total_credits_deployed"`
	DeploymentRate        float64 `json:"deployment_rate"`

	MultiplierDistribution map[string]TierDistribution `json:"multiplier_distribution"`

	OpenProposals      int     `json:"open_proposals"`
	FundedProposals    int     `json:"funded_proposals"`
	CompletedProposals int     `json:"completed_proposals"`
	FailedProposals    int     `json:"failed_proposals"`
	SuccessRateActual  float64 `json:"success_rate_actual"`

	NumHolders    int `json:"num_holders"`
	ActiveHolders int `json:"active_holders"`
	ExitedHolders int `json:"exited_holders"`
	NumProposals  int `json:"num_proposals"`
}

// State is the full serialized model document.
type State struct {
	ModelMetrics

	ArchetypeDistribution map[ArchetypeID]int              `json:"archetype_distribution"`
	ArchetypeMetrics      map[ArchetypeID]ArchetypeMetrics `json:"archetype_metrics"`
	Participation         ParticipationData                `json:"participation_data"`
	StepDeployments       []DeploymentView                 `json:"step_deployments"`

	CreditsGeneratedStep float64 `json:"credits_generated_step"`
	CreditsDeployedStep  float64 `json:"credits_deployed_step"`
	ExitsStep            int     `json:"exits_step"`
	EntriesStep          int     `json:"entries_step"`

	Params Config `json:"params"`
}

// Holders returns flat records for every holder ever created, active or
// exited, in creation order.
func (m *Model) Holders() []HolderView {
	out := make([]HolderView, 0, len(m.holders))
	for _, h := range m.holders {
		out = append(out, HolderView{
			ID:               h.ID,
			Archetype:        h.Archetype,
			Active:           h.Active,
			MissionAlignment: h.MissionAlignment,
			Engagement:       h.Engagement,
			PriceSensitivity: h.PriceSensitivity,
			HoldHorizon:      h.HoldHorizon,
			RSCHeld:          h.RSCHeld,
			WeeksHeld:        h.WeeksHeld,
			YieldThreshold:   h.YieldThreshold,
			Credits:          h.Credits,
			Multiplier:       h.Multiplier(),
			MultiplierLabel:  TierFor(h.WeeksHeld).Label,
			EffectiveRSC:     h.EffectiveRSC(),
			TotalDeployed:    h.TotalDeployed,
			TotalBurned:      h.TotalBurned,
			TotalExpired:     h.TotalExpired,
			DeploymentsCount: len(h.Deployments),
			IdleSteps:        h.IdleSteps,
		})
	}
	return out
}

// Holder returns the flat record for one holder ID.
func (m *Model) Holder(id int) (HolderView, bool) {
	for _, v := range m.Holders() {
		if v.ID == id {
			return v, true
		}
	}
	return HolderView{}, false
}

// Proposals returns flat records for every proposal in creation order.
func (m *Model) Proposals() []ProposalView {
	out := make([]ProposalView, 0, len(m.proposals))
	for _, p := range m.proposals {
		out = append(out, ProposalView{
			ID:              p.ID,
			FundingTarget:   p.FundingTarget,
			CreditsReceived: p.CreditsReceived,
			FundingProgress: p.FundingProgress() * 100,
			BackerCount:     len(p.Backers),
			Status:          p.Status,
			StepCreated:     p.StepCreated,
			StepFunded:      p.StepFunded,
			StepResolved:    p.StepResolved,
		})
	}
	return out
}

// Proposal returns the flat record for one proposal ID.
func (m *Model) Proposal(id int) (ProposalView, bool) {
	for _, v := range m.Proposals() {
		if v.ID == id {
			return v, true
		}
	}
	return ProposalView{}, false
}

// Events returns up to limit events, most recent first.
func (m *Model) Events(limit int) []Event {
	return m.events.Recent(limit)
}

// StepDeployments returns the deployments that happened in the current
// step only.
func (m *Model) StepDeployments() []DeploymentView {
	out := []DeploymentView{}
	for _, h := range m.holders {
		for _, d := range h.Deployments {
			if d.Step == m.stepCount {
				out = append(out, DeploymentView{
					HolderID:   h.ID,
					Archetype:  h.Archetype,
					ProposalID: d.ProposalID,
					Credits:    d.Credits,
					Burned:     d.Burned,
				})
			}
		}
	}
	return out
}

// ArchetypeDistribution counts active holders per archetype.
func (m *Model) ArchetypeDistribution() map[ArchetypeID]int {
	dist := make(map[ArchetypeID]int)
	for _, h := range m.holders {
		if h.Active {
			dist[h.Archetype]++
		}
	}
	return dist
}

// ArchetypeMetricsByID aggregates behavioral metrics per archetype.
// Archetypes with no holders are omitted.
func (m *Model) ArchetypeMetricsByID() map[ArchetypeID]ArchetypeMetrics {
	groups := make(map[ArchetypeID][]*Holder)
	for _, h := range m.holders {
		groups[h.Archetype] = append(groups[h.Archetype], h)
	}

	out := make(map[ArchetypeID]ArchetypeMetrics, len(groups))
	for id, group := range groups {
		var active []*Holder
		metrics := ArchetypeMetrics{Total: len(group)}
		for _, h := range group {
			metrics.TotalDeployed += h.TotalDeployed
			metrics.TotalBurned += h.TotalBurned
			if h.Active {
				active = append(active, h)
			}
		}
		metrics.Active = len(active)
		metrics.Exited = metrics.Total - metrics.Active

		if len(active) > 0 {
			rsc := make([]float64, len(active))
			weeks := make([]float64, len(active))
			mults := make([]float64, len(active))
			credits := make([]float64, len(active))
			for i, h := range active {
				rsc[i] = h.RSCHeld
				weeks[i] = float64(h.WeeksHeld)
				mults[i] = h.Multiplier()
				credits[i] = h.Credits
			}
			metrics.AvgRSC = stat.Mean(rsc, nil)
			metrics.StddevRSC = stat.StdDev(rsc, nil)
			metrics.AvgWeeksHeld = stat.Mean(weeks, nil)
			metrics.AvgMultiplier = stat.Mean(mults, nil)
			metrics.AvgCredits = stat.Mean(credits, nil)
		}
		out[id] = metrics
	}
	return out
}

// MultiplierDistribution reports active holder count and RSC per tier.
func (m *Model) MultiplierDistribution() map[string]TierDistribution {
	dist := make(map[string]TierDistribution, len(Tiers()))
	for _, tier := range Tiers() {
		dist[tier.Label] = TierDistribution{Multiplier: tier.Multiplier}
	}
	for _, h := range m.holders {
		if !h.Active {
			continue
		}
		tier := TierFor(h.WeeksHeld)
		d := dist[tier.Label]
		d.Count++
		d.RSC += h.RSCHeld
		dist[tier.Label] = d
	}
	return dist
}

// Participation returns the equilibrium readout with the fixed reference
// scenarios: hypothetical APY at 15%, 30% and 70% participation.
func (m *Model) Participation() ParticipationData {
	circ := m.CirculatingSupply()
	annual := AnnualEmission(m.stepCount)
	scenarios := map[string]float64{"15pct": 0, "30pct": 0, "70pct": 0}
	if circ > 0 {
		scenarios["15pct"] = annual / (circ * 0.15)
		scenarios["30pct"] = annual / (circ * 0.30)
		scenarios["70pct"] = annual / (circ * 0.70)
	}
	return ParticipationData{
		ParticipationRate: m.ParticipationRate(),
		CurrentAPY:        m.CurrentAPY(),
		TotalRSCHeld:      m.TotalRSCHeld(),
		CirculatingSupply: circ,
		AnnualEmission:    annual,
		Year:              float64(m.stepCount) / WeeksPerYear,
		Scenarios:         scenarios,
	}
}

// Metrics returns the computed summary for the current state.
func (m *Model) Metrics() ModelMetrics {
	var totalCredits float64
	active, exited := 0, 0
	for _, h := range m.holders {
		if h.Active {
			active++
			totalCredits += h.Credits
		} else {
			exited++
		}
	}

	open, funded, completed, failed := 0, 0, 0, 0
	for _, p := range m.proposals {
		switch p.Status {
		case StatusOpen:
			open++
		case StatusFunded:
			funded++
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		}
	}
	successActual := 0.0
	if completed+failed > 0 {
		successActual = float64(completed) / float64(completed+failed)
	}

	deploymentRate := m.totalCreditsDeployed
	if m.stepCount > 0 {
		deploymentRate = m.totalCreditsDeployed / float64(m.stepCount)
	}

	return ModelMetrics{
		Step:              m.stepCount,
		Year:              float64(m.stepCount) / WeeksPerYear,
		ParticipationRate: m.ParticipationRate(),
		CurrentAPY:        m.CurrentAPY(),
		TotalRSCHeld:      m.TotalRSCHeld(),
		CirculatingSupply: m.CirculatingSupply(),
		AnnualEmission:    AnnualEmission(m.stepCount),
		WeeklyEmission:    WeeklyEmission(m.stepCount),

		TotalCredits:          totalCredits,
		TotalBurned:           m.totalBurned,
		TotalCreditsGenerated: m.totalCreditsGenerated,
		TotalCreditsDeployed:  m.totalCreditsDeployed,
		DeploymentRate:        deploymentRate,

		MultiplierDistribution: m.MultiplierDistribution(),

		OpenProposals:      open,
		FundedProposals:    funded,
		CompletedProposals: completed,
		FailedProposals:    failed,
		SuccessRateActual:  successActual,

		NumHolders:    len(m.holders),
		ActiveHolders: active,
		ExitedHolders: exited,
		NumProposals:  len(m.proposals),
	}
}

// Snapshot returns the full model document.
func (m *Model) Snapshot() State {
	return State{
		ModelMetrics:          m.Metrics(),
		ArchetypeDistribution: m.ArchetypeDistribution(),
		ArchetypeMetrics:      m.ArchetypeMetricsByID(),
		Participation:         m.Participation(),
		StepDeployments:       m.StepDeployments(),
		CreditsGeneratedStep:  m.stepCreditsGenerated,
		CreditsDeployedStep:   m.stepCreditsDeployed,
		ExitsStep:             m.stepExits,
		EntriesStep:           m.stepEntries,
		Params:                m.cfg,
	}
}
