package parse

import "time"

// yearCap bounds how far ahead a yearless date may resolve.
const yearCap = 365 * 24 * time.Hour

// maxYearScan covers the longest gap between leap years (eight years,
// e.g. 2096 to 2104).
const maxYearScan = 8

// ResolveYear picks the single concrete date for a yearless (month, day)
// written at created.
//
// The candidate is midnight UTC on (month, day) in the creation year, or the
// next year where that date exists. A candidate strictly before created
// (full instant comparison, so the creation day itself counts as past once
// the day has started) moves to the next valid later year. The result must
// lie within [created, created+365d]; otherwise resolution fails.
func ResolveYear(month time.Month, day int, created time.Time) (time.Time, bool) {
	created = created.UTC()

	cand, ok := nextValid(month, day, created.Year())
	if !ok {
		return time.Time{}, false
	}
	if cand.Before(created) {
		cand, ok = nextValid(month, day, cand.Year()+1)
		if !ok {
			return time.Time{}, false
		}
	}
	if cand.After(created.Add(yearCap)) {
		return time.Time{}, false
	}
	return cand, true
}

func nextValid(month time.Month, day, from int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	for y := from; y < from+maxYearScan; y++ {
		if day <= daysIn(month, y) {
			return time.Date(y, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
