package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeasonalPricing(t *testing.T) {
	rows, err := parseSeasonalPricing([]SeasonalPricingInput{
		{From: "2025-07-01", To: "2025-07-31", BasePrice: 2000, WeekendPrice: 2500},
		{From: "2025-12-20", To: "2026-01-05", BasePrice: 3000, WeekendPrice: 3500},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, 1, rows[1].Position)
	assert.Equal(t, int64(2000), rows[0].BasePrice)
}

func TestParseSeasonalPricingRejectsOverlap(t *testing.T) {
	_, err := parseSeasonalPricing([]SeasonalPricingInput{
		{From: "2025-07-01", To: "2025-07-31", BasePrice: 2000, WeekendPrice: 2500},
		{From: "2025-07-31", To: "2025-08-15", BasePrice: 3000, WeekendPrice: 3500},
	})
	assert.Error(t, err)
}

func TestParseSeasonalPricingRejectsInvertedRange(t *testing.T) {
	_, err := parseSeasonalPricing([]SeasonalPricingInput{
		{From: "2025-07-31", To: "2025-07-01", BasePrice: 2000, WeekendPrice: 2500},
	})
	assert.Error(t, err)
}

func TestParseSeasonalPricingRejectsBadDate(t *testing.T) {
	_, err := parseSeasonalPricing([]SeasonalPricingInput{
		{From: "July 1", To: "2025-07-31", BasePrice: 2000, WeekendPrice: 2500},
	})
	assert.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestParseSeasonalPricingEmpty(t *testing.T) {
	rows, err := parseSeasonalPricing(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
