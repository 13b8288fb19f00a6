package sim

import (
	"fmt"
	"sort"
)

// Model is the simulation orchestrator. It owns the holder and proposal
// collections and all mutable aggregate state; holders only ever read the
// per-step AggregateSnapshot and mutate their own fields.
//
// Single-threaded by design: one Step() is one atomic pass with no
// suspension points. A concurrent host must serialize Step() calls.
type Model struct {
	cfg Config
	rng *PartitionedRNG

	holders   []*Holder
	proposals []*Proposal

	stepCount           int
	cumulativeEmissions float64

	totalBurned           float64
	totalCreditsGenerated float64
	totalCreditsDeployed  float64

	nextHolderID   int
	nextProposalID int

	events  EventLog
	history []MetricsRow

	// Per-step counters, reset at the top of each Step.
	stepCreditsGenerated float64
	stepCreditsDeployed  float64
	stepExits            int
	stepEntries          int
}

// NewModel validates the configuration and builds the initial population
// and proposal set. A step-0 metrics row is recorded immediately.
// Configuration errors surface here; nothing is partially constructed.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Model{
		cfg: cfg,
		rng: NewPartitionedRNG(cfg.Seed),
	}

	m.spawnInitialHolders(cfg.NumHolders)
	for i := 0; i < cfg.NumProposals; i++ {
		m.addProposal()
	}

	m.history = append(m.history, m.snapshotMetrics())
	m.events.Append(0, "init", fmt.Sprintf(
		"model initialized: %d holders, %.0f%% participation target, APY=%.1f%%, mix: %s",
		len(m.holders), cfg.InitialParticipationRate*100, m.CurrentAPY()*100, describeMix(cfg.ArchetypeMix)))
	return m, nil
}

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.cfg }

// StepCount returns the number of completed steps.
func (m *Model) StepCount() int { return m.stepCount }

// CumulativeEmissions returns total RSC emitted since genesis.
func (m *Model) CumulativeEmissions() float64 { return m.cumulativeEmissions }

// === Aggregate accessors ===

// TotalRSCHeld sums RSC over active holders.
func (m *Model) TotalRSCHeld() float64 {
	total := 0.0
	for _, h := range m.holders {
		if h.Active {
			total += h.RSCHeld
		}
	}
	return total
}

// TotalEffectiveRSC sums time-weighted RSC over active holders. This is
// the yield-share denominator.
func (m *Model) TotalEffectiveRSC() float64 {
	total := 0.0
	for _, h := range m.holders {
		if h.Active {
			total += h.EffectiveRSC()
		}
	}
	return total
}

// CirculatingSupply is the genesis supply plus everything emitted so far.
// The cumulative term is the discrete sum of weekly emissions, never a
// closed-form integral of the decay curve.
func (m *Model) CirculatingSupply() float64 {
	return Year0Circulating + m.cumulativeEmissions
}

// ParticipationRate is the fraction of circulating supply held by active
// holders: the simulation's primary output. Returns 0 when supply is
// degenerate; the model stays steppable even with zero holders.
func (m *Model) ParticipationRate() float64 {
	circ := m.CirculatingSupply()
	if circ <= 0 {
		return 0
	}
	return m.TotalRSCHeld() / circ
}

// CurrentAPY is the base (1.0x multiplier) annualized yield rate:
// annual emission over total held. Returns 0 when nothing is held.
// An individual holder's effective rate is this times their multiplier.
func (m *Model) CurrentAPY() float64 {
	total := m.TotalRSCHeld()
	if total <= 0 {
		return 0
	}
	return AnnualEmission(m.stepCount) / total
}

// === Holder management ===

// spawnInitialHolders distributes count holders across the archetype mix.
// Fractions are rounded per archetype in descending-fraction order; the
// remainder lands on the smallest fraction.
func (m *Model) spawnInitialHolders(count int) {
	type slice struct {
		id       ArchetypeID
		fraction float64
	}
	mix := make([]slice, 0, len(m.cfg.ArchetypeMix))
	for id, fraction := range m.cfg.ArchetypeMix {
		mix = append(mix, slice{id: id, fraction: fraction})
	}
	sort.Slice(mix, func(i, j int) bool {
		if mix[i].fraction != mix[j].fraction {
			return mix[i].fraction > mix[j].fraction
		}
		return mix[i].id < mix[j].id
	})

	remaining := count
	for i, s := range mix {
		n := remaining
		if i < len(mix)-1 {
			n = int(float64(count)*s.fraction + 0.5)
			if n > remaining {
				n = remaining
			}
		}
		if n < 0 {
			n = 0
		}
		for j := 0; j < n; j++ {
			m.addHolder(s.id)
		}
		remaining -= n
	}
}

// addHolder creates and registers a holder of the given archetype.
// The archetype ID has already passed Validate, so resolution cannot fail
// here for mix-spawned holders.
func (m *Model) addHolder(id ArchetypeID) *Holder {
	arch, err := ArchetypeByID(id)
	if err != nil {
		// Unreachable for validated configs; keep the failure loud.
		panic(err)
	}
	m.nextHolderID++
	h := newHolder(m.nextHolderID, arch, m.cfg.YieldThresholdMean, m.rng.ForSubsystem(SubsystemHolders))
	m.holders = append(m.holders, h)
	return h
}

// maybeSpawnEntrants models self-balancing re-entry: exits shrink total
// RSC, which raises APY, which attracts new yield seekers.
func (m *Model) maybeSpawnEntrants() {
	apy := m.CurrentAPY()
	entryThreshold := m.cfg.YieldThresholdMean * 1.1
	if apy <= entryThreshold {
		return
	}

	rng := m.rng.ForSubsystem(SubsystemModel)
	attractiveness := (apy - entryThreshold) / entryThreshold
	if attractiveness > 1 {
		attractiveness = 1
	}
	if rng.Float64() >= attractiveness*0.15 {
		return
	}

	n := 1 + rng.Intn(3)
	for i := 0; i < n; i++ {
		m.addHolder(ArchetypeYieldSeeker)
	}
	m.stepEntries += n
	m.events.Append(m.stepCount, "entry",
		fmt.Sprintf("%d new yield seeker(s) entered, APY %.1f%% above entry threshold", n, apy*100))
}

// === Proposal management ===

func (m *Model) addProposal() *Proposal {
	rng := m.rng.ForSubsystem(SubsystemModel)
	target := m.cfg.FundingTargetMin + rng.Float64()*(m.cfg.FundingTargetMax-m.cfg.FundingTargetMin)
	m.nextProposalID++
	p := NewProposal(m.nextProposalID, target, m.stepCount)
	m.proposals = append(m.proposals, p)
	m.events.Append(m.stepCount, "new_proposal",
		fmt.Sprintf("P%d created (target: %.0f credits)", p.ID, p.FundingTarget))
	return p
}

// AddProposal creates a proposal with an explicit funding target.
// Targets must be positive.
func (m *Model) AddProposal(fundingTarget float64) (*Proposal, error) {
	if fundingTarget <= 0 {
		return nil, fmt.Errorf("funding target must be positive, got %f", fundingTarget)
	}
	m.nextProposalID++
	p := NewProposal(m.nextProposalID, fundingTarget, m.stepCount)
	m.proposals = append(m.proposals, p)
	m.events.Append(m.stepCount, "new_proposal",
		fmt.Sprintf("P%d created (target: %.0f credits)", p.ID, p.FundingTarget))
	return p, nil
}

// resolveFundedProposals settles proposals funded in a strictly earlier
// step. Funding and resolution never happen in the same step.
func (m *Model) resolveFundedProposals() {
	rng := m.rng.ForSubsystem(SubsystemModel)
	for _, p := range m.proposals {
		if p.Status != StatusFunded || p.StepFunded == nil || m.stepCount <= *p.StepFunded {
			continue
		}
		success := rng.Float64() < m.cfg.SuccessRate
		p.Resolve(success, m.stepCount)
		if success {
			m.events.Append(m.stepCount, "completed", fmt.Sprintf("P%d completed successfully", p.ID))
			continue
		}
		m.events.Append(m.stepCount, "failed", fmt.Sprintf("P%d failed", p.ID))
		if m.cfg.FailureMode == FailureModePartialRefund {
			m.refundBackers(p)
		}
	}
}

// refundBackers returns half of each still-active backer's contribution.
// Refunds restore credits only; burned RSC is gone for good.
func (m *Model) refundBackers(p *Proposal) {
	for holderID, contributed := range p.Backers {
		h := m.holderByID(holderID)
		if h == nil || !h.Active {
			continue
		}
		h.Credits += contributed * 0.5
	}
}

// maybeSpawnProposal keeps the open-proposal pool from drying up.
func (m *Model) maybeSpawnProposal() {
	open := 0
	for _, p := range m.proposals {
		if p.Status == StatusOpen {
			open++
		}
	}
	if open >= 5 {
		return
	}
	if m.rng.ForSubsystem(SubsystemModel).Float64() < 0.3 {
		m.addProposal()
	}
}

func (m *Model) holderByID(id int) *Holder {
	for _, h := range m.holders {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func (m *Model) openProposals() []*Proposal {
	open := make([]*Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		if p.Status == StatusOpen {
			open = append(open, p)
		}
	}
	return open
}

// === Main step ===

// Step advances the model by exactly one week. Sub-steps run to
// completion in a strict order; every holder in the pass observes the
// same aggregate snapshot, frozen before the first holder acts.
func (m *Model) Step() {
	m.stepCount++

	m.stepCreditsGenerated = 0
	m.stepCreditsDeployed = 0
	m.stepExits = 0
	m.stepEntries = 0

	// Freeze the snapshot all holders observe this step. Computing the
	// denominator once removes order-dependent bias from shuffle order.
	snapshot := AggregateSnapshot{
		Step:              m.stepCount,
		TotalRSCHeld:      m.TotalRSCHeld(),
		TotalEffectiveRSC: m.TotalEffectiveRSC(),
		CurrentAPY:        m.CurrentAPY(),
		WeeklyEmission:    WeeklyEmission(m.stepCount),
	}

	env := &stepEnv{
		snapshot:      snapshot,
		openProposals: m.openProposals(),
		rng:           m.rng.ForSubsystem(SubsystemHolders),
		burnRate:      m.cfg.BurnRate,
		deployScale:   m.cfg.deployScale(),
		expiryEnabled: m.cfg.CreditExpiryEnabled,
		expiryWeeks:   m.cfg.CreditExpiryWeeks,
	}

	// Holder pass in a freshly shuffled order. Order decides who captures
	// scarce funding slots first, not the economics.
	order := m.rng.ForSubsystem(SubsystemModel).Perm(len(m.holders))
	for _, idx := range order {
		h := m.holders[idx]
		if !h.Active {
			continue
		}
		out := h.step(env)

		m.stepCreditsDeployed += out.deployed
		m.totalBurned += out.burned
		m.totalCreditsDeployed += out.deployed
		if out.fundedTarget != nil {
			p := out.fundedTarget
			m.events.Append(m.stepCount, "funded",
				fmt.Sprintf("P%d reached funding target (%.0f/%.0f)", p.ID, p.CreditsReceived, p.FundingTarget))
			// Funded proposals stop being deployment candidates mid-pass.
			env.openProposals = removeProposal(env.openProposals, p)
		}
		if out.exited {
			m.stepExits++
			m.events.Append(m.stepCount, "exit",
				fmt.Sprintf("H%d (%s) exited, APY below threshold %.1f%%", h.ID, h.Archetype, h.YieldThreshold*100))
		}
	}

	m.stepCreditsGenerated = snapshot.WeeklyEmission
	m.totalCreditsGenerated += snapshot.WeeklyEmission
	m.cumulativeEmissions += snapshot.WeeklyEmission

	m.resolveFundedProposals()
	m.maybeSpawnEntrants()
	m.maybeSpawnProposal()

	m.history = append(m.history, m.snapshotMetrics())
}

// RunSteps advances the model n weeks.
func (m *Model) RunSteps(n int) {
	for i := 0; i < n; i++ {
		m.Step()
	}
}

func removeProposal(list []*Proposal, target *Proposal) []*Proposal {
	out := list[:0]
	for _, p := range list {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}
