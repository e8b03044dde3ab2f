package pricing

import (
	"testing"
	"time"

	"reservation-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestIsWeekend(t *testing.T) {
	assert.False(t, IsWeekend(date("2025-07-04"))) // Friday
	assert.True(t, IsWeekend(date("2025-07-05")))  // Saturday
	assert.True(t, IsWeekend(date("2025-07-06")))  // Sunday
	assert.False(t, IsWeekend(date("2025-07-07"))) // Monday
}

func TestNights(t *testing.T) {
	nights := Nights(date("2025-07-01"), date("2025-07-03"))

	// Check-in inclusive, check-out exclusive: two nights.
	assert.Equal(t, []time.Time{date("2025-07-01"), date("2025-07-02")}, nights)

	assert.Empty(t, Nights(date("2025-07-01"), date("2025-07-01")))
}

func TestHorizonDates(t *testing.T) {
	dates := HorizonDates(date("2025-07-01"), 3)

	assert.Len(t, dates, 3)
	assert.Equal(t, date("2025-07-01"), dates[0])
	assert.Equal(t, date("2025-07-03"), dates[2])
}

func TestPriceForDateNoSeasons(t *testing.T) {
	weekend := int64(1500)
	rt := &models.RoomType{BasePrice: 1000, WeekendPrice: &weekend}

	assert.Equal(t, int64(1000), PriceForDate(rt, nil, date("2025-07-04"))) // Friday
	assert.Equal(t, int64(1500), PriceForDate(rt, nil, date("2025-07-05"))) // Saturday
}

func TestPriceForDateNilWeekendPrice(t *testing.T) {
	rt := &models.RoomType{BasePrice: 1000}

	// No weekend tier configured, base price applies on Saturday too.
	assert.Equal(t, int64(1000), PriceForDate(rt, nil, date("2025-07-05")))
}

func TestPriceForDateSeasonalOverride(t *testing.T) {
	weekend := int64(1500)
	rt := &models.RoomType{BasePrice: 1000, WeekendPrice: &weekend}
	seasons := []models.SeasonalPricing{
		{From: date("2025-07-01"), To: date("2025-07-31"), BasePrice: 2000, WeekendPrice: 2500},
	}

	// Inside the season the override pair replaces the product's entirely.
	assert.Equal(t, int64(2000), PriceForDate(rt, seasons, date("2025-07-04"))) // weekday
	assert.Equal(t, int64(2500), PriceForDate(rt, seasons, date("2025-07-05"))) // Saturday

	// Bounds are inclusive on both ends.
	assert.Equal(t, int64(2000), PriceForDate(rt, seasons, date("2025-07-01")))
	assert.Equal(t, int64(2500), PriceForDate(rt, seasons, date("2025-07-31")))

	// Outside the season the product prices apply.
	assert.Equal(t, int64(1000), PriceForDate(rt, seasons, date("2025-08-01")))
}

func TestPriceForDateFirstMatchWins(t *testing.T) {
	rt := &models.RoomType{BasePrice: 1000}
	seasons := []models.SeasonalPricing{
		{From: date("2025-07-01"), To: date("2025-07-31"), BasePrice: 2000, WeekendPrice: 2000},
		{From: date("2025-07-15"), To: date("2025-08-15"), BasePrice: 3000, WeekendPrice: 3000},
	}

	// 07-20 is inside both ranges; the earlier list entry wins.
	assert.Equal(t, int64(2000), PriceForDate(rt, seasons, date("2025-07-20")))
	assert.Equal(t, int64(3000), PriceForDate(rt, seasons, date("2025-08-01")))
}

func TestTotalRoomPrice(t *testing.T) {
	weekend := int64(1500)
	rt := &models.RoomType{BasePrice: 1000, WeekendPrice: &weekend}

	// Fri 07-04 through Mon 07-07: nights are Fri, Sat, Sun.
	total := TotalRoomPrice(rt, nil, date("2025-07-04"), date("2025-07-07"), 1)
	assert.Equal(t, int64(1000+1500+1500), total)

	// Room count multiplies the per-stay sum.
	total = TotalRoomPrice(rt, nil, date("2025-07-04"), date("2025-07-07"), 2)
	assert.Equal(t, int64(2*(1000+1500+1500)), total)
}

func TestTotalRoomPriceSeasonBoundary(t *testing.T) {
	rt := &models.RoomType{BasePrice: 1000}
	seasons := []models.SeasonalPricing{
		{From: date("2025-07-01"), To: date("2025-07-02"), BasePrice: 2000, WeekendPrice: 2000},
	}

	// 07-01 and 07-02 are in season, 07-03 is not; check-out 07-04.
	total := TotalRoomPrice(rt, seasons, date("2025-07-01"), date("2025-07-04"), 1)
	assert.Equal(t, int64(2000+2000+1000), total)
}

func TestTotalTicketPrice(t *testing.T) {
	tt := &models.TicketType{AdultPrice: 500, ChildPrice: 200}

	assert.Equal(t, int64(2*500+3*200), TotalTicketPrice(tt, 2, 3))
	assert.Equal(t, int64(500), TotalTicketPrice(tt, 1, 0))
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(date("2025-07-01"), date("2025-07-10"), date("2025-07-10"), date("2025-07-20")))
	assert.True(t, Overlaps(date("2025-07-05"), date("2025-07-15"), date("2025-07-01"), date("2025-07-31")))
	assert.False(t, Overlaps(date("2025-07-01"), date("2025-07-10"), date("2025-07-11"), date("2025-07-20")))
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2025, 7, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, date("2025-07-01"), DateOnly(ts))
}
