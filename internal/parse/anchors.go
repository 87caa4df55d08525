package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// Analysis is everything the calendar needs from an item's text.
type Analysis struct {
	Anchors []model.Anchor
	Title   string
}

// Anchors parses text and resolves every date into a concrete anchor.
//
// With a recurrence, the first date anchors it and any later dates become
// one-off anchors. firstDateOnly drops everything after the first date.
// Dates that cannot be resolved are skipped.
func Anchors(text string, created time.Time, firstDateOnly bool) []model.Anchor {
	return Analyze(text, created, firstDateOnly).Anchors
}

// Analyze is Anchors plus the display title, from a single parse.
func Analyze(text string, created time.Time, firstDateOnly bool) Analysis {
	res := Parse(text, created)
	out := Analysis{Title: res.Title}
	if len(res.Dates) == 0 {
		return out
	}

	dates := res.Dates
	if firstDateOnly {
		dates = dates[:1]
	}

	anchors := make([]model.Anchor, 0, len(dates))
	for i, d := range dates {
		at, ok := d.Resolve(created)
		if !ok {
			appLog.Debug("parse: yearless date did not resolve",
				"month", int(d.Month),
				"day", d.Day,
				"created", created,
			)
			continue
		}
		a := model.Anchor{At: at}
		if i == 0 && res.Recurrence != nil {
			rec := *res.Recurrence
			rec.ByDay = append([]time.Weekday(nil), res.Recurrence.ByDay...)
			a.Recurrence = &rec
		}
		anchors = append(anchors, a)
	}
	if len(anchors) > 0 {
		out.Anchors = anchors
	}
	return out
}

// Resolve turns the token into midnight UTC, running yearless tokens
// through ResolveYear.
func (d DateToken) Resolve(created time.Time) (time.Time, bool) {
	if !d.HasYear() {
		return ResolveYear(d.Month, d.Day, created)
	}
	if !plausible(d.Year, d.Month, d.Day) {
		return time.Time{}, false
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), true
}

// Fingerprint identifies the inputs that determine Anchors' output for an
// item. A changed fingerprint means any cached parse is stale.
func Fingerprint(text string, created time.Time, firstDateOnly bool) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(created.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(firstDateOnly)))
	return hex.EncodeToString(h.Sum(nil))
}
