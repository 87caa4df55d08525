package calendar

import (
	"fmt"
	"strings"
	"time"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

// ParseWindow reads a query window from caller input. Each bound is either
// a YYYY-MM-DD day or an RFC3339 instant; a day given as end covers that
// whole day.
func ParseWindow(start, end string) (model.Window, error) {
	s, err := parseBound(start, false)
	if err != nil {
		return model.Window{}, fmt.Errorf("%w: start: %v", ErrInvalidWindow, err)
	}
	e, err := parseBound(end, true)
	if err != nil {
		return model.Window{}, fmt.Errorf("%w: end: %v", ErrInvalidWindow, err)
	}
	w := model.Window{Start: s, End: e}
	if !w.Valid() {
		return model.Window{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow, end, start)
	}
	return w, nil
}

func parseBound(v string, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}
	if t, err := time.Parse(identity.DateLayout, v); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", v)
	}
	return t.UTC(), nil
}

func (s *Service) checkWindow(w model.Window) error {
	if !w.Valid() {
		return fmt.Errorf("%w: empty or inverted window", ErrInvalidWindow)
	}
	limit := time.Duration(s.opts.MaxWindowDays) * 24 * time.Hour
	if w.End.Sub(w.Start) > limit {
		return fmt.Errorf("%w: span exceeds %d days", ErrInvalidWindow, s.opts.MaxWindowDays)
	}
	return nil
}
