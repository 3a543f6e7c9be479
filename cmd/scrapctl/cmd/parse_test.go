package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raj-venom/scrap-dai-client/internal/draft"
	"github.com/Raj-venom/scrap-dai-client/internal/geo"
)

func TestApplyItems(t *testing.T) {
	d := draft.New()
	require.NoError(t, applyItems(d, []string{"steel=3", "copper", " paper = 2.5 "}))
	assert.Equal(t, map[string]string{
		"steel":  "3",
		"copper": draft.DefaultWeight,
		"paper":  "2.5",
	}, d.SubcategoryWeights())

	assert.Error(t, applyItems(d, []string{"=3"}))
	assert.Error(t, applyItems(d, []string{"steel=1", "steel=2"}))
}

func TestApplyItemsBadWeightLeavesStepIncomplete(t *testing.T) {
	d := draft.New()
	require.NoError(t, applyItems(d, []string{"steel=heavy"}))
	assert.False(t, d.IsStepComplete(draft.StepSubcategories))
}

func TestParseCoordinate(t *testing.T) {
	c, err := parseCoordinate("27.7172, 85.3240")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 27.7172, Lon: 85.324}, c)

	for _, bad := range []string{"27.7", "x,85", "95,85", "27,200", ""} {
		_, err := parseCoordinate(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "Rs. 112.50", formatAmount(112.5))
}
