package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeByID_KnownIDs(t *testing.T) {
	for _, id := range []ArchetypeID{ArchetypeBeliever, ArchetypeYieldSeeker, ArchetypeInstitution, ArchetypeSpeculator} {
		arch, err := ArchetypeByID(id)
		require.NoError(t, err)
		assert.Equal(t, id, arch.ID)
		assert.NotEmpty(t, arch.Name)
	}
}

func TestArchetypeByID_UnknownIDNamesValidSet(t *testing.T) {
	_, err := ArchetypeByID("whale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"whale"`)
	// The error must enumerate the valid set, never substitute a default.
	assert.Contains(t, err.Error(), "believer")
	assert.Contains(t, err.Error(), "yield_seeker")
	assert.Contains(t, err.Error(), "institution")
	assert.Contains(t, err.Error(), "speculator")
}

func TestArchetypes_TraitRangesWithinUnitInterval(t *testing.T) {
	for _, arch := range Archetypes() {
		for name, r := range map[string]Range{
			"mission_alignment": arch.MissionAlignment,
			"engagement":        arch.Engagement,
			"price_sensitivity": arch.PriceSensitivity,
			"hold_horizon":      arch.HoldHorizon,
		} {
			assert.GreaterOrEqual(t, r.Min, 0.0, "%s %s", arch.ID, name)
			assert.LessOrEqual(t, r.Max, 1.0, "%s %s", arch.ID, name)
			assert.LessOrEqual(t, r.Min, r.Max, "%s %s", arch.ID, name)
		}
		assert.Greater(t, arch.RSCRange.Min, 0.0, "%s rsc_range", arch.ID)
		assert.Greater(t, arch.RSCRange.Max, arch.RSCRange.Min, "%s rsc_range", arch.ID)
	}
}

func TestDefaultArchetypeMix_SumsToOne(t *testing.T) {
	sum := 0.0
	for id, fraction := range DefaultArchetypeMix() {
		_, err := ArchetypeByID(id)
		require.NoError(t, err)
		sum += fraction
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
