package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"taskcal/internal/identity"
	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// Event is an imported VEVENT reduced to what item text can express.
type Event struct {
	UID     string
	Summary string

	// Start is the event start in UTC. All-day dates are taken as UTC
	// midnight.
	Start  time.Time
	AllDay bool

	RawRRule string
	// Recurrence is nil for one-off events and for rules that cannot be
	// expressed (e.g. hourly).
	Recurrence *model.Recurrence
}

// ParseEvents parses an ICS payload. Events that cannot be read are logged
// and skipped; only an unreadable calendar is an error.
func ParseEvents(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}

	if out.AllDay {
		t, err := time.Parse("20060102", strings.TrimSpace(dtStart.Value))
		if err != nil {
			return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
		}
		out.Start = t
	} else {
		// The library resolves TZID parameters for date-times.
		t, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
		}
		out.Start = t.UTC()
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		out.RawRRule = p.Value
		rec, err := recurrenceFromRRule(p.Value)
		if err != nil {
			appLog.Warn("ics rrule not importable; keeping first instance only", "uid", out.UID, "rrule", p.Value, "reason", err.Error())
		} else {
			out.Recurrence = rec
		}
	}
	return out, nil
}

func recurrenceFromRRule(raw string) (*model.Recurrence, error) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, err
	}

	rec := &model.Recurrence{Interval: opt.Interval}
	if rec.Interval <= 0 {
		rec.Interval = 1
	}
	switch opt.Freq {
	case rrule.DAILY:
		rec.Freq = model.Daily
	case rrule.WEEKLY:
		rec.Freq = model.Weekly
	case rrule.MONTHLY:
		rec.Freq = model.Monthly
	case rrule.YEARLY:
		rec.Freq = model.Yearly
	default:
		return nil, fmt.Errorf("unsupported frequency %v", opt.Freq)
	}
	if rec.Freq == model.Weekly {
		for i := range opt.Byweekday {
			// rrule counts weekdays from Monday.
			rec.ByDay = append(rec.ByDay, time.Weekday((opt.Byweekday[i].Day()+1)%7))
		}
	}
	if opt.Count > 0 || !opt.Until.IsZero() {
		appLog.Debug("ics rrule bound dropped", "rrule", raw)
	}
	return rec, nil
}

var shortWeekdays = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

var unitNames = map[model.Frequency]string{
	model.Daily:   "day",
	model.Weekly:  "week",
	model.Monthly: "month",
	model.Yearly:  "year",
}

// ItemText renders the event as item text the parser reads back into the
// same anchor and recurrence, e.g. "Standup 2025-09-01 every mon, thu".
// A weekday set combined with an interval above one cannot be written, so
// only the interval is kept.
func (e Event) ItemText() string {
	title := e.Summary
	if title == "" {
		title = "Untitled"
	}
	parts := []string{title, identity.FormatDate(e.Start)}

	if r := e.Recurrence; r != nil {
		unit := unitNames[r.Freq]
		switch {
		case r.Freq == model.Weekly && len(r.ByDay) > 0 && r.Interval == 1:
			days := make([]string, 0, len(r.ByDay))
			for _, d := range r.ByDay {
				days = append(days, shortWeekdays[d])
			}
			parts = append(parts, "every "+strings.Join(days, ", "))
		case r.Interval == 1:
			parts = append(parts, "every "+unit)
		default:
			parts = append(parts, fmt.Sprintf("every %d %ss", r.Interval, unit))
		}
	}
	return strings.Join(parts, " ")
}
