package parse

import (
	"testing"
	"time"
)

func TestResolveYear(t *testing.T) {
	t.Parallel()

	at := func(y int, m time.Month, d, h, min, s int) time.Time {
		return time.Date(y, m, d, h, min, s, 0, time.UTC)
	}

	tests := []struct {
		name    string
		month   time.Month
		day     int
		created time.Time
		want    time.Time
		ok      bool
	}{
		{"leap day beyond cap", time.February, 29, at(2025, 6, 1, 0, 0, 0), time.Time{}, false},
		{"new year rolls over", time.January, 1, at(2025, 12, 31, 0, 0, 0), at(2026, 1, 1, 0, 0, 0), true},
		{"same instant is not past", time.June, 1, at(2025, 6, 1, 0, 0, 0), at(2025, 6, 1, 0, 0, 0), true},
		{"later the same day is past", time.June, 1, at(2025, 6, 1, 9, 0, 0), at(2026, 6, 1, 0, 0, 0), true},
		{"later this year", time.October, 3, at(2025, 6, 1, 0, 0, 0), at(2025, 10, 3, 0, 0, 0), true},
		{"leap day exactly at cap", time.February, 29, at(2027, 3, 1, 0, 0, 0), at(2028, 2, 29, 0, 0, 0), true},
		{"leap day one day past cap", time.February, 29, at(2027, 2, 28, 0, 0, 0), time.Time{}, false},
		{"leap day in a leap year", time.February, 29, at(2028, 1, 15, 0, 0, 0), at(2028, 2, 29, 0, 0, 0), true},
		{"impossible day", time.April, 31, at(2025, 1, 1, 0, 0, 0), time.Time{}, false},
		{"impossible month", time.Month(13), 1, at(2025, 1, 1, 0, 0, 0), time.Time{}, false},
		{"non-utc creation is normalized", time.March, 1, time.Date(2025, 3, 1, 8, 0, 0, 0, time.FixedZone("KST", 9*3600)), at(2025, 3, 1, 0, 0, 0), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveYear(tt.month, tt.day, tt.created)
			if ok != tt.ok {
				t.Fatalf("ResolveYear(%d, %d, %s) ok = %v, want %v", tt.month, tt.day, tt.created, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ResolveYear(%d, %d, %s) = %s, want %s", tt.month, tt.day, tt.created, got, tt.want)
			}
		})
	}
}
