package sim

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem names for RNG partitioning. Holder trait sampling and
// per-step behavior draw from SubsystemHolders; orchestrator-level draws
// (proposal targets, resolution, entrant spawning) use SubsystemModel.
// Keeping the streams separate means adding draws to one subsystem does
// not perturb sequences in the other.
const (
	SubsystemHolders = "holders"
	SubsystemModel   = "model"
)

// PartitionedRNG provides deterministic, isolated RNG streams per
// subsystem, all derived from a single master seed. Two simulations with
// the same seed and identical configuration MUST produce bit-for-bit
// identical agent populations and outcome sequences.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same *rand.Rand instance.
// Derivation: masterSeed XOR fnv1a64(subsystemName). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
