package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskcal/internal/identity"
	"taskcal/internal/model"
	"taskcal/internal/parse"
)

func TestExport(t *testing.T) {
	t.Parallel()
	occs := []model.Occurrence{
		{ItemKind: model.KindTask, ItemID: "a1", At: time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), Title: "Pay rent", Rule: "FREQ=WEEKLY;INTERVAL=2"},
		{ItemKind: model.KindTask, ItemID: "a1", At: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), Title: "Pay rent", Completed: true, Phantom: true},
	}
	for i := range occs {
		identity.Assign(&occs[i])
	}

	out := Export(occs, ExportOptions{Name: "u1", Stamp: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)})

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("exported calendar does not parse: %v\n%s", err, out)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	first := events[0]
	if uid := first.GetProperty(ical.ComponentPropertyUniqueId); uid == nil || uid.Value != "task/a1/2025-09-08@taskcal" {
		t.Errorf("uid = %v", uid)
	}
	if p := first.GetProperty(ical.ComponentPropertyDtStart); p == nil || p.Value != "20250908" {
		t.Errorf("DTSTART = %v, want all-day 20250908", p)
	}
	if p := first.GetProperty(PropertyRule); p == nil || p.Value != "FREQ=WEEKLY;INTERVAL=2" {
		t.Errorf("rule = %v", p)
	}
	if p := first.GetProperty(ical.ComponentPropertyCategories); p != nil {
		t.Errorf("plain occurrence has categories %q", p.Value)
	}

	second := events[1]
	if p := second.GetProperty(ical.ComponentPropertyCategories); p == nil || p.Value != "COMPLETED,PHANTOM" {
		t.Errorf("categories = %v", p)
	}
}

const sample = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20250801T000000Z
DTSTART:20250901T090000Z
SUMMARY:Standup
RRULE:FREQ=WEEKLY;BYDAY=MO,TH
END:VEVENT
BEGIN:VEVENT
UID:rent
DTSTAMP:20250801T000000Z
DTSTART;VALUE=DATE:20250825
SUMMARY:Pay rent
RRULE:FREQ=WEEKLY;INTERVAL=2
END:VEVENT
BEGIN:VEVENT
UID:dentist
DTSTAMP:20250801T000000Z
DTSTART;VALUE=DATE:20251003
SUMMARY:Dentist
END:VEVENT
BEGIN:VEVENT
UID:ping
DTSTAMP:20250801T000000Z
DTSTART:20250901T090000Z
SUMMARY:Ping
RRULE:FREQ=HOURLY
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250801T000000Z
DTSTART:20250901T090000Z
SUMMARY:No uid
END:VEVENT
END:VCALENDAR
`

func TestParseEvents(t *testing.T) {
	t.Parallel()
	events, err := ParseEvents([]byte(strings.ReplaceAll(sample, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4 (event without UID skipped)", len(events))
	}

	tests := []struct {
		uid  string
		text string
		rule string
	}{
		{"standup", "Standup 2025-09-01 every mon, thu", "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TH"},
		{"rent", "Pay rent 2025-08-25 every 2 weeks", "FREQ=WEEKLY;INTERVAL=2"},
		{"dentist", "Dentist 2025-10-03", ""},
		{"ping", "Ping 2025-09-01", ""},
	}
	created := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			ev := events[i]
			if ev.UID != tt.uid {
				t.Fatalf("uid = %q, want %q", ev.UID, tt.uid)
			}
			text := ev.ItemText()
			if text != tt.text {
				t.Errorf("ItemText = %q, want %q", text, tt.text)
			}

			// The text must read back into the same rule.
			an := parse.Analyze(text, created, false)
			if len(an.Anchors) != 1 {
				t.Fatalf("anchors = %+v", an.Anchors)
			}
			rule := ""
			if r := an.Anchors[0].Recurrence; r != nil {
				rule = r.String()
			}
			if rule != tt.rule {
				t.Errorf("reparsed rule = %q, want %q", rule, tt.rule)
			}
		})
	}
}

func TestParseEventsRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := ParseEvents(nil); err == nil {
		t.Error("ParseEvents(nil) succeeded")
	}
}
