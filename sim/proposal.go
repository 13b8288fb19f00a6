package sim

// ProposalStatus is the lifecycle state of a funding proposal. Transitions
// are strictly monotonic: open → funded → completed|failed. Completed and
// failed are terminal.
type ProposalStatus string

const (
	StatusOpen      ProposalStatus = "open"
	StatusFunded    ProposalStatus = "funded"
	StatusCompleted ProposalStatus = "completed"
	StatusFailed    ProposalStatus = "failed"
)

// Proposal is a research funding proposal. Credits accumulate from holder
// deployments; the instant CreditsReceived crosses FundingTarget the
// proposal becomes funded, and the orchestrator resolves it no earlier
// than the following step.
type Proposal struct {
	ID            int
	FundingTarget float64

	// CreditsReceived only grows; credits may still arrive after funding.
	CreditsReceived float64

	// Backers maps holder ID to cumulative credits contributed.
	Backers map[int]float64

	Status       ProposalStatus
	StepCreated  int
	StepFunded   *int // nil until funded
	StepResolved *int // nil until completed or failed
}

// NewProposal creates an open proposal with the given funding target.
func NewProposal(id int, fundingTarget float64, stepCreated int) *Proposal {
	return &Proposal{
		ID:            id,
		FundingTarget: fundingTarget,
		Backers:       make(map[int]float64),
		Status:        StatusOpen,
		StepCreated:   stepCreated,
	}
}

// FundingProgress returns CreditsReceived / FundingTarget as a fraction.
// May exceed 1.0 once credits keep arriving after funding.
func (p *Proposal) FundingProgress() float64 {
	if p.FundingTarget <= 0 {
		return 0
	}
	return p.CreditsReceived / p.FundingTarget
}

// IsFunded reports whether the funding target has been reached.
func (p *Proposal) IsFunded() bool {
	return p.CreditsReceived >= p.FundingTarget
}

// ReceiveCredits records a contribution from a holder. Returns true when
// this contribution crossed the funding target, which happens exactly
// once per proposal lifetime.
func (p *Proposal) ReceiveCredits(holderID int, amount float64, step int) (newlyFunded bool) {
	p.CreditsReceived += amount
	p.Backers[holderID] += amount

	if p.Status == StatusOpen && p.IsFunded() {
		p.Status = StatusFunded
		funded := step
		p.StepFunded = &funded
		return true
	}
	return false
}

// Resolve moves a funded proposal to its terminal state.
func (p *Proposal) Resolve(success bool, step int) {
	if success {
		p.Status = StatusCompleted
	} else {
		p.Status = StatusFailed
	}
	resolved := step
	p.StepResolved = &resolved
}
