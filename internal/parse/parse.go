// Package parse turns free task text into dates and an optional recurrence.
//
// The grammar is deliberately small: absolute dates (ISO, slash and month
// name forms, with or without a year), "today"/"tomorrow", and the
// "every ..." phrases listed in recurrencePatterns. Anything else is
// ignored; Parse never fails.
package parse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskcal/internal/model"
)

// DateToken is one date found in text. Year is zero when the text omits it.
type DateToken struct {
	Year   int
	Month  time.Month
	Day    int
	Offset int
}

// HasYear reports whether the token carried an explicit year.
func (d DateToken) HasYear() bool {
	return d.Year != 0
}

// Result is the outcome of parsing one text.
type Result struct {
	Dates      []DateToken
	Recurrence *model.Recurrence
	// Title is the text with recognized date and recurrence phrases removed.
	Title string
}

const (
	monthNames   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	weekdayNames = `sun(?:day)?|mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?`
	ordinal      = `(?:st|nd|rd|th)?`
)

var (
	reEveryOther = regexp.MustCompile(`(?i)\bevery\s+other\s+(day|week|month|year)\b`)
	reEveryN     = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s+(days?|weeks?|months?|years?)\b`)
	reEveryUnit  = regexp.MustCompile(`(?i)\bevery\s+(day|week|month|year)\b`)
	reEveryDays  = regexp.MustCompile(`(?i)\bevery\s+((?:` + weekdayNames + `)s?(?:\s*(?:,|\band\b|&)\s*(?:` + weekdayNames + `)s?)*)\b`)
	reWeekday    = regexp.MustCompile(`(?i)` + weekdayNames)

	reISO       = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})(?:T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?\b`)
	reSlashYMD  = regexp.MustCompile(`\b(\d{4})/(\d{1,2})/(\d{1,2})\b`)
	reSlashMDY  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reSlashMD   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	reMonthDay  = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})` + ordinal + `(?:,?\s+(\d{4}))?\b`)
	reDayMonth  = regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinal + `\s+(?:of\s+)?(` + monthNames + `)\b\.?(?:,?\s+(\d{4})\b)?`)
	reRelative  = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
	reSpaceRuns = regexp.MustCompile(`\s+`)
)

type span struct{ start, end int }

type scanner struct {
	text  string
	taken []span
}

func (s *scanner) free(start, end int) bool {
	for _, t := range s.taken {
		if start < t.end && t.start < end {
			return false
		}
	}
	return true
}

func (s *scanner) take(start, end int) {
	s.taken = append(s.taken, span{start, end})
}

// Parse extracts dates and a recurrence from text. ref resolves relative
// words like "today"; callers pass the item's creation instant so the result
// only depends on the item itself.
//
// A recurrence phrase without any date yields an empty Result: there is
// nothing to anchor it to.
func Parse(text string, ref time.Time) Result {
	sc := &scanner{text: text}

	rec := scanRecurrence(sc)
	dates := scanDates(sc, ref)

	res := Result{Title: stripTaken(text, sc.taken)}
	if len(dates) == 0 {
		return res
	}
	res.Dates = dates
	res.Recurrence = rec
	return res
}

func scanRecurrence(sc *scanner) *model.Recurrence {
	type hit struct {
		start, end int
		rec        model.Recurrence
	}
	var hits []hit

	for _, m := range reEveryOther.FindAllStringSubmatchIndex(sc.text, -1) {
		hits = append(hits, hit{m[0], m[1], model.Recurrence{
			Freq:     unitFrequency(sc.text[m[2]:m[3]]),
			Interval: 2,
		}})
	}
	for _, m := range reEveryN.FindAllStringSubmatchIndex(sc.text, -1) {
		n, err := strconv.Atoi(sc.text[m[2]:m[3]])
		if err != nil {
			// Overflowing counts are kept as an unexpandable rule.
			n = 0
		}
		hits = append(hits, hit{m[0], m[1], model.Recurrence{
			Freq:     unitFrequency(sc.text[m[4]:m[5]]),
			Interval: n,
		}})
	}
	for _, m := range reEveryUnit.FindAllStringSubmatchIndex(sc.text, -1) {
		hits = append(hits, hit{m[0], m[1], model.Recurrence{
			Freq:     unitFrequency(sc.text[m[2]:m[3]]),
			Interval: 1,
		}})
	}
	for _, m := range reEveryDays.FindAllStringSubmatchIndex(sc.text, -1) {
		days := weekdaySet(sc.text[m[2]:m[3]])
		if len(days) == 0 {
			continue
		}
		hits = append(hits, hit{m[0], m[1], model.Recurrence{
			Freq:     model.Weekly,
			Interval: 1,
			ByDay:    days,
		}})
	}
	if len(hits) == 0 {
		return nil
	}

	// The earliest phrase wins; later ones are left in the title.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	first := hits[0]
	sc.take(first.start, first.end)
	rec := first.rec
	return &rec
}

func unitFrequency(unit string) model.Frequency {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "day":
		return model.Daily
	case "week":
		return model.Weekly
	case "month":
		return model.Monthly
	case "year":
		return model.Yearly
	}
	return ""
}

func weekdaySet(list string) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	for _, name := range reWeekday.FindAllString(list, -1) {
		if d, ok := lookupWeekday(name); ok {
			seen[d] = true
		}
	}
	out := make([]time.Weekday, 0, len(seen))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

func lookupWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "sun"):
		return time.Sunday, true
	case strings.HasPrefix(n, "mon"):
		return time.Monday, true
	case strings.HasPrefix(n, "tue"):
		return time.Tuesday, true
	case strings.HasPrefix(n, "wed"):
		return time.Wednesday, true
	case strings.HasPrefix(n, "thu"):
		return time.Thursday, true
	case strings.HasPrefix(n, "fri"):
		return time.Friday, true
	case strings.HasPrefix(n, "sat"):
		return time.Saturday, true
	}
	return 0, false
}

func lookupMonth(name string) (time.Month, bool) {
	n := strings.ToLower(name)
	if len(n) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), n[:3]) {
			return m, true
		}
	}
	return 0, false
}

// scanDates runs the date patterns from most to least specific, so that a
// span claimed by "2025/08/25" is not claimed again by "08/25".
func scanDates(sc *scanner, ref time.Time) []DateToken {
	var out []DateToken

	add := func(start, end, year int, month time.Month, day int) {
		if !sc.free(start, end) {
			return
		}
		if !plausible(year, month, day) {
			return
		}
		sc.take(start, end)
		out = append(out, DateToken{Year: year, Month: month, Day: day, Offset: start})
	}
	num := func(s string, m []int, i int) int {
		if m[2*i] < 0 {
			return 0
		}
		n, _ := strconv.Atoi(s[m[2*i]:m[2*i+1]])
		return n
	}
	t := sc.text

	for _, m := range reISO.FindAllStringSubmatchIndex(t, -1) {
		if at, ok := isoDateTime(t[m[0]:m[1]]); ok {
			add(m[0], m[1], at.Year(), at.Month(), at.Day())
			continue
		}
		add(m[0], m[1], num(t, m, 1), time.Month(num(t, m, 2)), num(t, m, 3))
	}
	for _, m := range reSlashYMD.FindAllStringSubmatchIndex(t, -1) {
		add(m[0], m[1], num(t, m, 1), time.Month(num(t, m, 2)), num(t, m, 3))
	}
	for _, m := range reSlashMDY.FindAllStringSubmatchIndex(t, -1) {
		add(m[0], m[1], num(t, m, 3), time.Month(num(t, m, 1)), num(t, m, 2))
	}
	for _, m := range reSlashMD.FindAllStringSubmatchIndex(t, -1) {
		// Skip fragments of longer slash runs such as "1/2/3".
		if m[1] < len(t) && t[m[1]] == '/' {
			continue
		}
		if m[0] > 0 && t[m[0]-1] == '/' {
			continue
		}
		add(m[0], m[1], 0, time.Month(num(t, m, 1)), num(t, m, 2))
	}
	// yearSpan drops a trailing year that an earlier pattern already owns,
	// as in "Aug 25 2025-09-10", so the month and day still count as a date.
	yearSpan := func(m []int) (end, year int) {
		if m[6] < 0 || sc.free(m[0], m[1]) {
			return m[1], num(t, m, 3)
		}
		end = m[6]
		for end > m[0] && strings.ContainsRune(" \t,", rune(t[end-1])) {
			end--
		}
		return end, 0
	}
	for _, m := range reMonthDay.FindAllStringSubmatchIndex(t, -1) {
		month, ok := lookupMonth(t[m[2]:m[3]])
		if !ok {
			continue
		}
		end, year := yearSpan(m)
		add(m[0], end, year, month, num(t, m, 2))
	}
	for _, m := range reDayMonth.FindAllStringSubmatchIndex(t, -1) {
		month, ok := lookupMonth(t[m[4]:m[5]])
		if !ok {
			continue
		}
		end, year := yearSpan(m)
		add(m[0], end, year, month, num(t, m, 1))
	}
	if !ref.IsZero() {
		day := ref.UTC()
		for _, m := range reRelative.FindAllStringSubmatchIndex(t, -1) {
			d := day
			if strings.EqualFold(t[m[2]:m[3]], "tomorrow") {
				d = d.AddDate(0, 0, 1)
			}
			add(m[0], m[1], d.Year(), d.Month(), d.Day())
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

var isoDateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}

// isoDateTime reads a zoned ISO date-time and returns it in UTC, so the date
// lands on the same day occurrence identity uses. Zoneless times keep the
// written date.
func isoDateTime(v string) (time.Time, bool) {
	if !strings.Contains(v, "T") {
		return time.Time{}, false
	}
	for _, layout := range isoDateTimeLayouts {
		if at, err := time.Parse(layout, v); err == nil {
			return at.UTC(), true
		}
	}
	return time.Time{}, false
}

// plausible rejects impossible dates. Yearless tokens are checked against
// the longest possible month so that Feb 29 survives until year resolution.
func plausible(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	if year == 0 {
		return day <= daysIn(month, 2000)
	}
	return day <= daysIn(month, year)
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func stripTaken(text string, taken []span) string {
	if len(taken) == 0 {
		return strings.TrimSpace(reSpaceRuns.ReplaceAllString(text, " "))
	}
	spans := append([]span(nil), taken...)
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.start > last {
			b.WriteString(text[last:s.start])
		}
		b.WriteString(" ")
		if s.end > last {
			last = s.end
		}
	}
	if last < len(text) {
		b.WriteString(text[last:])
	}

	title := strings.Trim(reSpaceRuns.ReplaceAllString(b.String(), " "), " ,;-")
	if title == "" {
		return strings.TrimSpace(reSpaceRuns.ReplaceAllString(text, " "))
	}
	return title
}
