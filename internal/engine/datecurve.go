package engine

import (
	"sort"
	"time"
)

// Candidate-date pool layout: the pool covers every day of the current month
// plus the first days of the next, ranked by ascending day factor. The ranked
// pool is split into fixed tiers consumed by claim priority.
const (
	nextMonthDays = 10 // days of the following month added to the pool
	highTierSize  = 5  // cheapest dates, reserved for priorities 4-5
	midTierSize   = 10 // next cheapest, for priorities 2-3
)

// DayFactor is the cost multiplier for processing on the given date: a
// linear ramp from 0.2 on the 1st to 0.5 on the month's last day.
func DayFactor(date time.Time) float64 {
	last := lastDayOfMonth(date)
	return 0.2 + 0.3*float64(date.Day()-1)/float64(last-1)
}

// lastDayOfMonth returns 28-31 depending on the date's actual month.
func lastDayOfMonth(date time.Time) int {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
}

// OptimalDates enumerates every day of now's month plus the first
// nextMonthDays days of the following month, sorted ascending by day factor.
// Ties break on calendar order so the ranking is deterministic.
func OptimalDates(now time.Time) []time.Time {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	var dates []time.Time
	for d := 0; d < lastDayOfMonth(now); d++ {
		dates = append(dates, first.AddDate(0, 0, d))
	}
	nextFirst := first.AddDate(0, 1, 0)
	for d := 0; d < nextMonthDays; d++ {
		dates = append(dates, nextFirst.AddDate(0, 0, d))
	}

	sort.SliceStable(dates, func(i, j int) bool {
		fi, fj := DayFactor(dates[i]), DayFactor(dates[j])
		if fi != fj {
			return fi < fj
		}
		return dates[i].Before(dates[j])
	})
	return dates
}

// tierSlice returns the contiguous slice of the ranked pool a priority level
// draws from: the cheapest highTierSize dates for priorities 4-5, the next
// midTierSize for 2-3, the remainder for 1.
func tierSlice(pool []time.Time, priority int) []time.Time {
	switch {
	case priority >= 4:
		return pool[:min(highTierSize, len(pool))]
	case priority >= 2:
		lo := min(highTierSize, len(pool))
		hi := min(highTierSize+midTierSize, len(pool))
		return pool[lo:hi]
	default:
		lo := min(highTierSize+midTierSize, len(pool))
		return pool[lo:]
	}
}
