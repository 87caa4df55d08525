// Package ics converts between occurrences and iCalendar data: query
// results are exported as all-day VEVENTs, and VEVENTs from other
// calendars can be imported as item text.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

const productID = "-//taskcal//occurrences//EN"

// PropertyRule carries the recurrence snapshot of an exported occurrence.
const PropertyRule = ical.ComponentProperty("X-TASKCAL-RULE")

// ExportOptions controls calendar-level metadata.
type ExportOptions struct {
	// Name is published as X-WR-CALNAME when set.
	Name string
	// Stamp is used as DTSTAMP for every event. Zero means now.
	Stamp time.Time
}

// Export renders occs as a VCALENDAR. Each occurrence becomes one all-day
// event whose UID is derived from its metadata key, so re-exports update
// the same events in subscribing clients.
func Export(occs []model.Occurrence, opts ExportOptions) string {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, occ := range occs {
		key := occ.Key
		if key == "" {
			key = identity.ForOccurrence(occ).String()
		}
		ev := cal.AddEvent(key + "@taskcal")
		ev.SetDtStampTime(stamp)
		ev.SetSummary(occ.Title)

		day := identity.Normalize(occ.At)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))

		if occ.Rule != "" {
			ev.SetProperty(PropertyRule, occ.Rule)
		}
		if cats := categories(occ); len(cats) > 0 {
			ev.SetProperty(ical.ComponentPropertyCategories, strings.Join(cats, ","))
		}
	}
	return cal.Serialize()
}

func categories(occ model.Occurrence) []string {
	var out []string
	if occ.Completed {
		out = append(out, "COMPLETED")
	}
	if occ.Phantom {
		out = append(out, "PHANTOM")
	}
	if occ.Ignored {
		out = append(out, "IGNORED")
	}
	return out
}
