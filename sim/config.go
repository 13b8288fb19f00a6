package sim

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Failure modes for resolved-but-unsuccessful proposals.
const (
	FailureModeNothing       = "nothing"
	FailureModePartialRefund = "partial_refund"
)

// Default model parameters.
const (
	DefaultNumHolders               = 100
	DefaultNumProposals             = 10
	DefaultBurnRate                 = 0.02
	DefaultSuccessRate              = 0.80
	DefaultFundingTargetMin         = 1_000.0
	DefaultFundingTargetMax         = 10_000.0
	DefaultDeployProbability        = 0.3
	DefaultYieldThresholdMean       = 0.08
	DefaultInitialParticipationRate = 0.30
	DefaultCreditExpiryWeeks        = 8
)

// Config holds every recognized model parameter. Zero values are filled
// only by DefaultConfig; NewModel does not repair an invalid Config, it
// rejects it through Validate.
type Config struct {
	NumHolders       int     `yaml:"num_holders" json:"num_holders"`
	NumProposals     int     `yaml:"num_proposals" json:"num_proposals"`
	BurnRate         float64 `yaml:"burn_rate" json:"burn_rate"`
	SuccessRate      float64 `yaml:"success_rate" json:"success_rate"`
	FundingTargetMin float64 `yaml:"funding_target_min" json:"funding_target_min"`
	FundingTargetMax float64 `yaml:"funding_target_max" json:"funding_target_max"`

	// DeployProbability scales each holder's deployment probability.
	// The default value is neutral (scale 1.0); see Holder.decideDeploy.
	DeployProbability float64 `yaml:"deploy_probability" json:"deploy_probability"`

	// ArchetypeMix maps archetype ID to population fraction; fractions
	// should sum to 1.0. The rounding remainder is assigned to the
	// smallest-fraction archetype (last in descending-fraction order).
	ArchetypeMix map[ArchetypeID]float64 `yaml:"archetype_mix" json:"archetype_mix"`

	YieldThresholdMean float64 `yaml:"yield_threshold_mean" json:"yield_threshold_mean"`

	// InitialParticipationRate is an informational target carried in
	// reports; the model never enforces it.
	InitialParticipationRate float64 `yaml:"initial_participation_rate" json:"initial_participation_rate"`

	Seed int64 `yaml:"seed" json:"seed"`

	CreditExpiryEnabled bool   `yaml:"credit_expiry_enabled" json:"credit_expiry_enabled"`
	CreditExpiryWeeks   int    `yaml:"credit_expiry_weeks" json:"credit_expiry_weeks"`
	FailureMode         string `yaml:"failure_mode" json:"failure_mode"`
}

// DefaultConfig returns the default parameter set.
func DefaultConfig() Config {
	return Config{
		NumHolders:               DefaultNumHolders,
		NumProposals:             DefaultNumProposals,
		BurnRate:                 DefaultBurnRate,
		SuccessRate:              DefaultSuccessRate,
		FundingTargetMin:         DefaultFundingTargetMin,
		FundingTargetMax:         DefaultFundingTargetMax,
		DeployProbability:        DefaultDeployProbability,
		ArchetypeMix:             DefaultArchetypeMix(),
		YieldThresholdMean:       DefaultYieldThresholdMean,
		InitialParticipationRate: DefaultInitialParticipationRate,
		CreditExpiryWeeks:        DefaultCreditExpiryWeeks,
		FailureMode:              FailureModeNothing,
	}
}

// LoadConfig reads a YAML scenario file over the defaults. A supplied
// archetype_mix replaces the default mix wholesale; decoding into the
// pre-filled map would merge the two.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	defaultMix := cfg.ArchetypeMix
	cfg.ArchetypeMix = nil
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading scenario config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing scenario config: %w", err)
	}
	if cfg.ArchetypeMix == nil {
		cfg.ArchetypeMix = defaultMix
	}
	return cfg, nil
}

// Validate checks every parameter range and names the invalid value in
// the error. Configuration errors are fatal at initialization time: a
// Model is never partially constructed from a bad Config.
func (c *Config) Validate() error {
	if c.NumHolders <= 0 {
		return fmt.Errorf("num_holders must be positive, got %d", c.NumHolders)
	}
	if c.NumProposals < 0 {
		return fmt.Errorf("num_proposals must be non-negative, got %d", c.NumProposals)
	}
	if c.BurnRate < 0 || c.BurnRate > 1 {
		return fmt.Errorf("burn_rate must be in [0, 1], got %f", c.BurnRate)
	}
	if c.SuccessRate < 0 || c.SuccessRate > 1 {
		return fmt.Errorf("success_rate must be in [0, 1], got %f", c.SuccessRate)
	}
	if c.FundingTargetMin <= 0 {
		return fmt.Errorf("funding_target_min must be positive, got %f", c.FundingTargetMin)
	}
	if c.FundingTargetMax < c.FundingTargetMin {
		return fmt.Errorf("funding_target_max (%f) must be >= funding_target_min (%f)", c.FundingTargetMax, c.FundingTargetMin)
	}
	if c.DeployProbability <= 0 || c.DeployProbability > 1 {
		return fmt.Errorf("deploy_probability must be in (0, 1], got %f", c.DeployProbability)
	}
	if c.YieldThresholdMean <= 0 {
		return fmt.Errorf("yield_threshold_mean must be positive, got %f", c.YieldThresholdMean)
	}
	if c.InitialParticipationRate < 0 || c.InitialParticipationRate > 1 {
		return fmt.Errorf("initial_participation_rate must be in [0, 1], got %f", c.InitialParticipationRate)
	}
	if c.CreditExpiryEnabled && c.CreditExpiryWeeks <= 0 {
		return fmt.Errorf("credit_expiry_weeks must be positive when expiry is enabled, got %d", c.CreditExpiryWeeks)
	}
	if c.FailureMode != FailureModeNothing && c.FailureMode != FailureModePartialRefund {
		return fmt.Errorf("unknown failure_mode %q, valid: %s, %s", c.FailureMode, FailureModeNothing, FailureModePartialRefund)
	}
	if len(c.ArchetypeMix) == 0 {
		return fmt.Errorf("archetype_mix must not be empty")
	}
	sum := 0.0
	for id, fraction := range c.ArchetypeMix {
		if id == ArchetypeCustom {
			return fmt.Errorf("archetype_mix cannot contain %q: custom holders are never spawned from the mix", ArchetypeCustom)
		}
		if _, err := ArchetypeByID(id); err != nil {
			return fmt.Errorf("archetype_mix: %w", err)
		}
		if fraction < 0 {
			return fmt.Errorf("archetype_mix[%s] must be non-negative, got %f", id, fraction)
		}
		sum += fraction
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("archetype_mix fractions must sum to 1.0, got %f", sum)
	}
	return nil
}

// deployScale converts the deploy_probability knob into a multiplier on
// each holder's deployment probability, neutral at the default value.
func (c *Config) deployScale() float64 {
	return c.DeployProbability / DefaultDeployProbability
}

// describeMix renders the mix for init-event logging, stable order.
func describeMix(mix map[ArchetypeID]float64) string {
	ids := make([]string, 0, len(mix))
	for id := range mix {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%.2f", id, mix[ArchetypeID(id)]))
	}
	return strings.Join(parts, " ")
}
