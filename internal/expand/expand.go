package expand

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

const (
	DefaultMaxPerItem = 5000

	// maxSteps bounds rule iteration that never reaches the window, e.g. a
	// monthly rule anchored centuries earlier.
	maxSteps = 200000
)

// Options controls expansion limits.
type Options struct {
	// MaxPerItem caps the instants emitted for one anchor in one window.
	// Zero means DefaultMaxPerItem.
	MaxPerItem int
}

// Result holds the instants of one expansion in ascending order.
type Result struct {
	Instants []time.Time
	// Truncated is set when MaxPerItem or the step guard stopped expansion
	// before the window end.
	Truncated bool
}

// Expand enumerates the instants generated by anchor and rec that fall
// inside w. Without a recurrence the anchor itself is the only candidate.
// Invalid descriptors expand to nothing. Expand is a pure function of its
// arguments.
func Expand(anchor time.Time, rec *model.Recurrence, w model.Window, opts Options) (Result, error) {
	var res Result

	if w.End.Before(w.Start) {
		return res, errors.New("expand: window end is before window start")
	}
	if opts.MaxPerItem <= 0 {
		opts.MaxPerItem = DefaultMaxPerItem
	}
	anchor = anchor.UTC()

	if rec == nil {
		if w.Contains(anchor) {
			res.Instants = []time.Time{anchor}
		}
		return res, nil
	}
	if !rec.Valid() {
		return res, nil
	}
	if anchor.After(w.End) {
		return res, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      frequency(rec.Freq),
		Interval:  rec.Interval,
		Dtstart:   fastForward(anchor, rec, w.Start),
		Byweekday: weekdays(rec.ByDay),
	})
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "rule", rec.String())
		return res, nil
	}

	next := r.Iterator()
	for steps := 0; ; steps++ {
		if steps >= maxSteps {
			res.Truncated = true
			break
		}
		t, ok := next()
		if !ok || t.After(w.End) {
			break
		}
		if t.Before(anchor) || t.Before(w.Start) {
			continue
		}
		if len(res.Instants) >= opts.MaxPerItem {
			res.Truncated = true
			break
		}
		res.Instants = append(res.Instants, t.UTC())
	}
	return res, nil
}

// fastForward moves the start of daily and weekly rules by whole periods so
// iteration begins just before the window. Shifting by a multiple of the
// period keeps the phase of the rule (and its weekday pattern) intact.
// Monthly and yearly rules iterate from the anchor; they are cheap enough.
func fastForward(anchor time.Time, rec *model.Recurrence, start time.Time) time.Time {
	var unitDays int64
	switch rec.Freq {
	case model.Daily:
		unitDays = 1
	case model.Weekly:
		unitDays = 7
	default:
		return anchor
	}
	if !anchor.Before(start) {
		return anchor
	}

	period := unitDays * int64(rec.Interval)
	gap := dayNumber(start) - dayNumber(anchor)
	k := gap / period
	if k <= 0 {
		return anchor
	}
	return anchor.AddDate(0, 0, int(k*period))
}

func dayNumber(t time.Time) int64 {
	u := t.UTC().Unix()
	if u < 0 {
		return (u - 86399) / 86400
	}
	return u / 86400
}

func frequency(f model.Frequency) rrule.Frequency {
	switch f {
	case model.Daily:
		return rrule.DAILY
	case model.Weekly:
		return rrule.WEEKLY
	case model.Monthly:
		return rrule.MONTHLY
	default:
		return rrule.YEARLY
	}
}

func weekdays(days []time.Weekday) []rrule.Weekday {
	if len(days) == 0 {
		return nil
	}
	codes := map[time.Weekday]rrule.Weekday{
		time.Monday:    rrule.MO,
		time.Tuesday:   rrule.TU,
		time.Wednesday: rrule.WE,
		time.Thursday:  rrule.TH,
		time.Friday:    rrule.FR,
		time.Saturday:  rrule.SA,
		time.Sunday:    rrule.SU,
	}
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, codes[d])
	}
	return out
}
