package expand

import (
	"reflect"
	"testing"
	"time"

	"taskcal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func window(start, end time.Time) model.Window {
	return model.Window{Start: start, End: end.Add(24*time.Hour - time.Nanosecond)}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	weekly := func(interval int, days ...time.Weekday) *model.Recurrence {
		return &model.Recurrence{Freq: model.Weekly, Interval: interval, ByDay: days}
	}

	tests := []struct {
		name   string
		anchor time.Time
		rec    *model.Recurrence
		w      model.Window
		want   []time.Time
	}{
		{
			name:   "fortnightly skips the weeks before the window",
			anchor: day(2025, 8, 25),
			rec:    weekly(2),
			w:      window(day(2025, 9, 1), day(2025, 10, 31)),
			want:   []time.Time{day(2025, 9, 8), day(2025, 9, 22), day(2025, 10, 6), day(2025, 10, 20)},
		},
		{
			name:   "one-off inside",
			anchor: day(2025, 9, 5),
			w:      window(day(2025, 9, 1), day(2025, 9, 30)),
			want:   []time.Time{day(2025, 9, 5)},
		},
		{
			name:   "one-off outside",
			anchor: day(2025, 10, 5),
			w:      window(day(2025, 9, 1), day(2025, 9, 30)),
		},
		{
			name:   "zero interval",
			anchor: day(2025, 9, 1),
			rec:    &model.Recurrence{Freq: model.Daily, Interval: 0},
			w:      window(day(2025, 9, 1), day(2025, 9, 30)),
		},
		{
			name:   "unknown frequency",
			anchor: day(2025, 9, 1),
			rec:    &model.Recurrence{Freq: "hourly", Interval: 1},
			w:      window(day(2025, 9, 1), day(2025, 9, 30)),
		},
		{
			name:   "never before the anchor",
			anchor: day(2025, 9, 10),
			rec:    &model.Recurrence{Freq: model.Daily, Interval: 1},
			w:      window(day(2025, 9, 1), day(2025, 9, 12)),
			want:   []time.Time{day(2025, 9, 10), day(2025, 9, 11), day(2025, 9, 12)},
		},
		{
			name:   "daily interval fast-forwarded",
			anchor: day(2025, 1, 1),
			rec:    &model.Recurrence{Freq: model.Daily, Interval: 3},
			w:      window(day(2025, 1, 10), day(2025, 1, 20)),
			want:   []time.Time{day(2025, 1, 10), day(2025, 1, 13), day(2025, 1, 16), day(2025, 1, 19)},
		},
		{
			name:   "weekday set every other week fast-forwarded",
			anchor: day(2025, 9, 1),
			rec:    weekly(2, time.Monday, time.Thursday),
			w:      window(day(2025, 10, 27), day(2025, 11, 9)),
			want:   []time.Time{day(2025, 10, 27), day(2025, 10, 30)},
		},
		{
			name:   "weekday rule anchored midweek",
			anchor: day(2025, 9, 3),
			rec:    weekly(1, time.Monday),
			w:      window(day(2025, 9, 1), day(2025, 9, 30)),
			want:   []time.Time{day(2025, 9, 8), day(2025, 9, 15), day(2025, 9, 22), day(2025, 9, 29)},
		},
		{
			name:   "monthly on the 31st skips short months",
			anchor: day(2025, 1, 31),
			rec:    &model.Recurrence{Freq: model.Monthly, Interval: 1},
			w:      window(day(2025, 1, 1), day(2025, 12, 31)),
			want: []time.Time{
				day(2025, 1, 31), day(2025, 3, 31), day(2025, 5, 31), day(2025, 7, 31),
				day(2025, 8, 31), day(2025, 10, 31), day(2025, 12, 31),
			},
		},
		{
			name:   "yearly from an old anchor",
			anchor: day(2020, 3, 15),
			rec:    &model.Recurrence{Freq: model.Yearly, Interval: 1},
			w:      window(day(2025, 1, 1), day(2025, 12, 31)),
			want:   []time.Time{day(2025, 3, 15)},
		},
		{
			name:   "anchor after the window",
			anchor: day(2026, 1, 1),
			rec:    &model.Recurrence{Freq: model.Daily, Interval: 1},
			w:      window(day(2025, 1, 1), day(2025, 12, 31)),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Expand(tt.anchor, tt.rec, tt.w, Options{})
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if got.Truncated {
				t.Errorf("Truncated = true, want false")
			}
			if len(got.Instants) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got.Instants, tt.want) {
				t.Errorf("Instants = %v, want %v", got.Instants, tt.want)
			}
		})
	}
}

func TestExpandFastForwardMatchesFullIteration(t *testing.T) {
	t.Parallel()

	rec := &model.Recurrence{Freq: model.Weekly, Interval: 3, ByDay: []time.Weekday{time.Tuesday, time.Saturday}}
	anchor := day(2024, 2, 6)
	full, err := Expand(anchor, rec, window(anchor, day(2025, 12, 31)), Options{})
	if err != nil {
		t.Fatalf("Expand full: %v", err)
	}

	w := window(day(2025, 6, 1), day(2025, 8, 31))
	var want []time.Time
	for _, ts := range full.Instants {
		if w.Contains(ts) {
			want = append(want, ts)
		}
	}

	got, err := Expand(anchor, rec, w, Options{})
	if err != nil {
		t.Fatalf("Expand window: %v", err)
	}
	if !reflect.DeepEqual(got.Instants, want) {
		t.Errorf("windowed = %v, want %v", got.Instants, want)
	}
}

func TestExpandCap(t *testing.T) {
	t.Parallel()

	rec := &model.Recurrence{Freq: model.Daily, Interval: 1}
	got, err := Expand(day(2000, 1, 1), rec, window(day(2025, 1, 1), day(2025, 12, 31)), Options{MaxPerItem: 10})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got.Instants) != 10 {
		t.Fatalf("len = %d, want 10", len(got.Instants))
	}
	if !got.Truncated {
		t.Error("Truncated = false, want true")
	}
	if !got.Instants[0].Equal(day(2025, 1, 1)) {
		t.Errorf("first = %s, want 2025-01-01", got.Instants[0])
	}
}

func TestExpandDeterministic(t *testing.T) {
	t.Parallel()

	rec := &model.Recurrence{Freq: model.Weekly, Interval: 2, ByDay: []time.Weekday{time.Monday, time.Friday}}
	w := window(day(2025, 1, 1), day(2025, 6, 30))
	first, _ := Expand(day(2024, 11, 4), rec, w, Options{})
	for i := 0; i < 5; i++ {
		got, _ := Expand(day(2024, 11, 4), rec, w, Options{})
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got.Instants, first.Instants)
		}
	}
}

func TestExpandInvertedWindow(t *testing.T) {
	t.Parallel()
	_, err := Expand(day(2025, 1, 1), nil, model.Window{Start: day(2025, 2, 1), End: day(2025, 1, 1)}, Options{})
	if err == nil {
		t.Fatal("expected error for inverted window")
	}
}
