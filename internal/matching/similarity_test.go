package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hope-platform/hope-backend/internal/matching"
)

func TestAccept_StrictThresholds(t *testing.T) {
	assert.False(t, matching.Accept(0.85, 0.80), "exactly at both thresholds")
	assert.False(t, matching.Accept(0.85, 0.95), "name at threshold")
	assert.False(t, matching.Accept(0.95, 0.80), "address at threshold")
	assert.True(t, matching.Accept(0.851, 0.801))
	assert.False(t, matching.Accept(1.0, 0.5), "name alone is not enough")
	assert.False(t, matching.Accept(0.5, 1.0), "address alone is not enough")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cafe bustelo", matching.Normalize("  Café   BUSTELO "))
	assert.Equal(t, "", matching.Normalize("   "))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, matching.Similarity("", ""))
	assert.Equal(t, 0.0, matching.Similarity("abc", ""))
	assert.Equal(t, 1.0, matching.Similarity("Holy Apostles Soup Kitchen", "holy apostles  soup kitchen"))

	// One substitution in ten characters.
	assert.InDelta(t, 0.9, matching.Similarity("abcdefghij", "abcdefghiX"), 1e-9)

	assert.Less(t, matching.Similarity("Bowery Mission", "Bronx Works"), 0.5)
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"St. Luke's Roosevelt", "St Lukes-Roosevelt"},
		{"30th Street Intake", "30th St Intake Center"},
		{"", "x"},
	}
	for _, p := range pairs {
		assert.Equal(t, matching.Similarity(p[0], p[1]), matching.Similarity(p[1], p[0]))
	}
}

func TestAddressSimilarity_MissingStreet(t *testing.T) {
	assert.Equal(t, 0.0, matching.AddressSimilarity("", ""))
	assert.Equal(t, 0.0, matching.AddressSimilarity("296 9th Ave", " "))
	assert.Equal(t, 1.0, matching.AddressSimilarity("296 9th Ave", "296 9TH AVE"))
}
