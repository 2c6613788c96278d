package util

import "time"

// AddMonths returns the year and month that lie n months after year/month.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	total := int(month) - 1 + n // 0-indexed
	year += total / 12
	m := total % 12
	if m < 0 {
		m += 12
		year--
	}
	return year, time.Month(m + 1)
}

// CalculateActualDate returns the actual date for a target day in a given month,
// handling months with fewer days (e.g., day 31 in February returns Feb 28/29)
func CalculateActualDate(year int, month time.Month, targetDay int) time.Time {
	// Get last day of month by going to day 0 of next month
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the time-of-day and location, keeping the calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
