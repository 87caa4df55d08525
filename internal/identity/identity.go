// Package identity assigns stable keys to occurrences.
//
// The canonical key is (item kind, item id, calendar day). It deliberately
// ignores title and time of day, so renaming a task keeps its completions,
// while a rule change that moves an occurrence to another day yields a new key.
package identity

import (
	"fmt"
	"strings"
	"time"

	"taskcal/internal/model"
)

// DateLayout is the canonical day format used in keys and completion records.
const DateLayout = "2006-01-02"

// Normalize truncates t to midnight UTC of its calendar day.
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the normalized day of t.
func FormatDate(t time.Time) string {
	return Normalize(t).Format(DateLayout)
}

// ParseDate accepts a YYYY-MM-DD day or an RFC3339 instant and returns the
// normalized day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Normalize(t), nil
}

// MetadataKey is the canonical identity of an occurrence.
type MetadataKey struct {
	Kind   model.Kind
	ItemID string
	Date   string
}

// Of builds the key for an item occurrence at t.
func Of(kind model.Kind, itemID string, t time.Time) MetadataKey {
	return MetadataKey{Kind: kind, ItemID: itemID, Date: FormatDate(t)}
}

// ForOccurrence builds the key for occ.
func ForOccurrence(occ model.Occurrence) MetadataKey {
	return Of(occ.ItemKind, occ.ItemID, occ.At)
}

// ForRecord builds the key a completion record is stored under.
func ForRecord(rec model.CompletionRecord) MetadataKey {
	return MetadataKey{Kind: rec.ItemKind, ItemID: rec.ItemID, Date: rec.Date}
}

func (k MetadataKey) String() string {
	return string(k.Kind) + "/" + k.ItemID + "/" + k.Date
}

// Assign sets occ.Key from its metadata.
func Assign(occ *model.Occurrence) {
	occ.Key = ForOccurrence(*occ).String()
}
