package pricing

import (
	"time"

	"reservation-service/internal/models"
)

// Nightly price resolution: the first seasonal range containing the date
// wins (inclusive bounds, list order). Inside a range, the override's
// weekend/base pair replaces the product's entirely, so a weekday inside a
// season uses the season's base price rather than the product's.

// DateOnly truncates t to UTC midnight. All ledger and pricing dates are
// normalized through this before touching the store.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Nights expands a stay into its occupied dates: check-in inclusive,
// check-out exclusive. A 07-01..07-03 stay yields [07-01, 07-02].
func Nights(checkIn, checkOut time.Time) []time.Time {
	start := DateOnly(checkIn)
	end := DateOnly(checkOut)

	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// HorizonDates returns days consecutive dates starting at start. Used to
// bootstrap the inventory ledger when a product is created.
func HorizonDates(start time.Time, days int) []time.Time {
	first := DateOnly(start)
	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, first.AddDate(0, 0, i))
	}
	return dates
}

// PriceForDate resolves the nightly price for one date.
func PriceForDate(rt *models.RoomType, seasons []models.SeasonalPricing, date time.Time) int64 {
	d := DateOnly(date)
	weekend := IsWeekend(d)

	for _, season := range seasons {
		if !d.Before(DateOnly(season.From)) && !d.After(DateOnly(season.To)) {
			if weekend {
				return season.WeekendPrice
			}
			return season.BasePrice
		}
	}

	if weekend && rt.WeekendPrice != nil {
		return *rt.WeekendPrice
	}
	return rt.BasePrice
}

// TotalRoomPrice computes the authoritative stay price: the exact per-night
// sum over [checkIn, checkOut) multiplied by the room count. No rounding.
func TotalRoomPrice(rt *models.RoomType, seasons []models.SeasonalPricing, checkIn, checkOut time.Time, roomCount int) int64 {
	var total int64
	for _, d := range Nights(checkIn, checkOut) {
		total += PriceForDate(rt, seasons, d)
	}
	return total * int64(roomCount)
}

// TotalTicketPrice computes the single-date ticket price. Tickets have flat
// per-head prices with no seasonal or weekend tier.
func TotalTicketPrice(tt *models.TicketType, adults, children int) int64 {
	return tt.AdultPrice*int64(adults) + tt.ChildPrice*int64(children)
}

// Overlaps reports whether two inclusive date ranges intersect. Seasonal
// ranges are validated against this at write time to keep first-match
// resolution unambiguous.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !DateOnly(aFrom).After(DateOnly(bTo)) && !DateOnly(bFrom).After(DateOnly(aTo))
}
