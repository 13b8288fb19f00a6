package sim

import (
	"math"
	"math/rand"
)

// AggregateSnapshot is the read-only view of the economy that every
// holder in a step observes. The orchestrator freezes it once, before any
// holder acts, so the yield-share denominator and APY are identical for
// every holder regardless of shuffle position.
type AggregateSnapshot struct {
	Step              int
	TotalRSCHeld      float64
	TotalEffectiveRSC float64
	CurrentAPY        float64
	WeeklyEmission    float64
}

// stepEnv bundles everything a holder consults during one step: the
// frozen snapshot, the candidate proposals, the behavior RNG stream, and
// the run-constant economic parameters.
type stepEnv struct {
	snapshot      AggregateSnapshot
	openProposals []*Proposal
	rng           *rand.Rand
	burnRate      float64
	deployScale   float64
	expiryEnabled bool
	expiryWeeks   int
}

// Deployment records one credit deployment for the animation view and
// per-holder bookkeeping.
type Deployment struct {
	Step       int     `json:"step"`
	ProposalID int     `json:"proposal_id"`
	Credits    float64 `json:"credits"`
	Burned     float64 `json:"burned"`
}

// creditBatch is one slice of the FIFO expiry ledger: credits earned at
// a given step. Batches are strictly time-ordered, oldest first, and are
// consumed oldest-first both for expiry and for deployment.
type creditBatch struct {
	step   int
	amount float64
}

// Holder is a token-holding agent. Its four behavioral traits are drawn
// once at creation and never change; everything else is the economic
// state the weekly step mutates. Once Active goes false the holder is
// terminal: it never acts again and is excluded from every aggregate.
type Holder struct {
	ID        int
	Archetype ArchetypeID

	// Person attributes, each in [0, 1], immutable after creation.
	MissionAlignment float64
	Engagement       float64
	PriceSensitivity float64
	HoldHorizon      float64

	RSCHeld        float64 // decreases only via burn
	WeeksHeld      int     // continuous holding duration
	YieldThreshold float64 // APY below which this holder feels exit pressure
	Credits        float64
	Active         bool

	IdleSteps     int
	TotalDeployed float64
	TotalBurned   float64
	TotalExpired  float64
	Deployments   []Deployment

	// batches is populated only when credit expiry is enabled.
	batches []creditBatch
}

// stepOutcome reports what a holder did during one step, for the
// orchestrator's counters and event log.
type stepOutcome struct {
	earned       float64
	expired      float64
	deployed     float64
	burned       float64
	deployedTo   int // proposal ID, -1 when no deployment happened
	fundedTarget *Proposal
	exited       bool
}

// newHolder samples a holder from an archetype. Traits and RSC holdings
// are uniform in the archetype's ranges; the yield threshold is the model
// mean plus the archetype offset plus gaussian noise, floored at 0.01.
// Institutions warm-start with up to a year of holding history.
func newHolder(id int, arch Archetype, yieldThresholdMean float64, rng *rand.Rand) *Holder {
	h := &Holder{
		ID:               id,
		Archetype:        arch.ID,
		MissionAlignment: uniformIn(rng, arch.MissionAlignment),
		Engagement:       uniformIn(rng, arch.Engagement),
		PriceSensitivity: uniformIn(rng, arch.PriceSensitivity),
		HoldHorizon:      uniformIn(rng, arch.HoldHorizon),
		RSCHeld:          uniformIn(rng, arch.RSCRange),
		Active:           true,
	}
	h.YieldThreshold = math.Max(0.01, yieldThresholdMean+arch.YieldThresholdOffset+rng.NormFloat64()*0.01)
	if arch.ID == ArchetypeInstitution {
		h.WeeksHeld = rng.Intn(53) // pre-existing holding history, 0-52 weeks
	}
	return h
}

// NewCustomHolder creates a holder with directly-supplied traits instead
// of archetype sampling. Traits outside [0, 1] are clamped.
func NewCustomHolder(id int, missionAlignment, engagement, priceSensitivity, holdHorizon, rscHeld, yieldThreshold float64) *Holder {
	return &Holder{
		ID:               id,
		Archetype:        ArchetypeCustom,
		MissionAlignment: clamp01(missionAlignment),
		Engagement:       clamp01(engagement),
		PriceSensitivity: clamp01(priceSensitivity),
		HoldHorizon:      clamp01(holdHorizon),
		RSCHeld:          math.Max(0, rscHeld),
		YieldThreshold:   math.Max(0.01, yieldThreshold),
		Active:           true,
	}
}

// Multiplier returns the holder's current time-weight multiplier,
// evaluated fresh from WeeksHeld.
func (h *Holder) Multiplier() float64 {
	return MultiplierFor(h.WeeksHeld)
}

// EffectiveRSC is the holder's time-weighted contribution to the yield
// share denominator.
func (h *Holder) EffectiveRSC() float64 {
	return h.RSCHeld * h.Multiplier()
}

// step runs one week of holder behavior in the fixed order: advance
// duration, expire credits, earn yield, maybe deploy, consider exit.
func (h *Holder) step(env *stepEnv) stepOutcome {
	out := stepOutcome{deployedTo: -1}
	if !h.Active {
		return out
	}

	h.WeeksHeld++

	if env.expiryEnabled {
		out.expired = h.expireCredits(env.snapshot.Step, env.expiryWeeks)
	}

	out.earned = h.earnYield(env)

	if h.decideDeploy(env, out.earned) {
		if target := h.selectProposal(env.openProposals, env.rng); target != nil {
			deployed, burned, funded := h.deploy(target, env)
			out.deployed = deployed
			out.burned = burned
			out.deployedTo = target.ID
			if funded {
				out.fundedTarget = target
			}
			h.IdleSteps = 0
		} else {
			h.IdleSteps++
		}
	} else {
		h.IdleSteps++
	}

	out.exited = h.considerExit(env)
	return out
}

// expireCredits drops batches older than expiryWeeks, oldest first.
// Batches are time-ordered, so the scan stops at the first survivor.
func (h *Holder) expireCredits(step, expiryWeeks int) float64 {
	expired := 0.0
	i := 0
	for ; i < len(h.batches); i++ {
		if step-h.batches[i].step <= expiryWeeks {
			break
		}
		expired += h.batches[i].amount
	}
	if i == 0 {
		return 0
	}
	h.batches = h.batches[i:]
	h.Credits = math.Max(0, h.Credits-expired)
	h.TotalExpired += expired
	return expired
}

// earnYield credits the holder its time-weighted share of this week's
// emission, using the step-frozen denominator.
func (h *Holder) earnYield(env *stepEnv) float64 {
	if env.snapshot.TotalEffectiveRSC <= 0 || env.snapshot.WeeklyEmission <= 0 {
		return 0
	}
	share := h.EffectiveRSC() / env.snapshot.TotalEffectiveRSC
	earned := env.snapshot.WeeklyEmission * share
	h.Credits += earned
	if env.expiryEnabled && earned > 0 {
		h.batches = append(h.batches, creditBatch{step: env.snapshot.Step, amount: earned})
	}
	return earned
}

// decideDeploy is the Bernoulli deployment decision: engagement sets the
// base probability, accumulated credits add logistic pressure, and the
// model's deploy_probability knob scales the result, capped at 0.95.
func (h *Holder) decideDeploy(env *stepEnv, weeklyRate float64) bool {
	if h.Credits <= 0 {
		return false
	}

	base := h.Engagement * 0.6

	// Accumulation pressure: logistic in credits/(4 weeks of generation),
	// centered at ratio 1.0, worth up to +0.3.
	ratio := h.Credits / (math.Max(weeklyRate, 1) * 4)
	pressure := 1 / (1 + math.Exp(-2*(ratio-1)))
	boost := pressure * 0.3

	prob := math.Min((base+boost)*env.deployScale, 0.95)
	return env.rng.Float64() < prob
}

// selectProposal picks a funding target among open proposals.
// Mission-aligned holders score candidates by funding progress (credits
// closer to tipping a proposal over have more impact); everyone else
// sprays uniformly at random.
func (h *Holder) selectProposal(open []*Proposal, rng *rand.Rand) *Proposal {
	if len(open) == 0 {
		return nil
	}
	if h.MissionAlignment <= 0.5 {
		return open[rng.Intn(len(open))]
	}

	var best *Proposal
	bestScore := math.Inf(-1)
	for _, p := range open {
		score := p.FundingProgress()*h.MissionAlignment + rng.Float64()*(1-h.MissionAlignment)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best
}

// deploy moves a uniform fraction of current credits to the proposal and
// burns RSC proportional to the deployed share of the credit balance.
// Burn is clamped to 10% of current holdings.
func (h *Holder) deploy(p *Proposal, env *stepEnv) (deployed, burned float64, newlyFunded bool) {
	creditsBefore := h.Credits
	maxFrac := 0.15 + h.Engagement*0.45
	frac := 0.05 + env.rng.Float64()*(maxFrac-0.05)
	amount := math.Min(creditsBefore*frac, creditsBefore)
	if amount <= 0 {
		return 0, 0, false
	}

	burn := h.RSCHeld * (amount / creditsBefore) * env.burnRate
	burn = math.Min(burn, h.RSCHeld*0.1)

	h.Credits -= amount
	h.RSCHeld -= burn
	h.TotalDeployed += amount
	h.TotalBurned += burn
	if env.expiryEnabled {
		h.consumeBatches(amount)
	}

	h.Deployments = append(h.Deployments, Deployment{
		Step:       env.snapshot.Step,
		ProposalID: p.ID,
		Credits:    amount,
		Burned:     burn,
	})

	newlyFunded = p.ReceiveCredits(h.ID, amount, env.snapshot.Step)
	return amount, burn, newlyFunded
}

// consumeBatches spends exactly amount from the expiry ledger, oldest
// batches first.
func (h *Holder) consumeBatches(amount float64) {
	remaining := amount
	for remaining > 0 && len(h.batches) > 0 {
		if h.batches[0].amount > remaining {
			h.batches[0].amount -= remaining
			return
		}
		remaining -= h.batches[0].amount
		h.batches = h.batches[1:]
	}
}

// considerExit applies exit pressure when APY sits below the holder's
// personal threshold. Exit probability grows with the normalized
// shortfall and price sensitivity and shrinks with hold horizon. Exit is
// terminal; re-entry is modeled as a brand-new holder.
func (h *Holder) considerExit(env *stepEnv) bool {
	apy := env.snapshot.CurrentAPY
	if apy >= h.YieldThreshold {
		return false
	}
	gap := math.Min(1, (h.YieldThreshold-apy)/h.YieldThreshold)
	prob := gap * h.PriceSensitivity * 0.15 * (1 - h.HoldHorizon*0.8)
	if env.rng.Float64() < prob {
		h.Active = false
		return true
	}
	return false
}

// batchTotal is the sum of the expiry ledger; invariant: <= Credits.
func (h *Holder) batchTotal() float64 {
	sum := 0.0
	for _, b := range h.batches {
		sum += b.amount
	}
	return sum
}

func uniformIn(rng *rand.Rand, r Range) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
