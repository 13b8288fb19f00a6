package sim

import "math"

// Emission schedule constants. Annual emission at genesis halves every
// HalfLifeYears: E(t) = Year0Emission / 2^(t/HalfLifeYears), t in years.
const (
	Year0Emission    = 9_500_000.0     // RSC emitted per year at t=0
	HalfLifeYears    = 64.0            // emission half-life in years
	Year0Circulating = 134_157_343.0   // circulating RSC at simulation start
	TotalSupply      = 1_000_000_000.0 // hard cap
	WeeksPerYear     = 52.0
)

// AnnualEmission returns the instantaneous annualized emission rate after
// stepCount weekly steps. Pure function: no state, no randomness.
func AnnualEmission(stepCount int) float64 {
	tYears := float64(stepCount) / WeeksPerYear
	return Year0Emission / math.Pow(2, tYears/HalfLifeYears)
}

// WeeklyEmission returns the RSC emitted during one weekly step at
// stepCount elapsed steps.
func WeeklyEmission(stepCount int) float64 {
	return AnnualEmission(stepCount) / WeeksPerYear
}
