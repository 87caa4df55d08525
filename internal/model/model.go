package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of item variants the engine knows about.
type Kind string

const (
	KindTask Kind = "task"
	KindList Kind = "list"
)

// Valid reports whether k is one of the known item kinds.
func (k Kind) Valid() bool {
	return k == KindTask || k == KindList
}

// ParseKind validates a caller-supplied kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown item kind %q", s)
	}
	return k, nil
}

// Item is a task or list as supplied by the item store. The engine never
// mutates it.
type Item struct {
	ID   string
	Kind Kind

	OwnerID string
	// ListID is the containing list for tasks. For lists it equals ID.
	ListID string
	// Global items are visible to every user.
	Global bool

	Text      string
	CreatedAt time.Time

	// FirstDateOnly restricts parsing to the first date token in Text.
	FirstDateOnly bool

	// ParseCache is the last persisted parse result. It is only honored
	// while its TextHash matches the current Text.
	ParseCache *ParseCache
}

// InList reports whether the item belongs to (or is) the given list.
func (it Item) InList(listID string) bool {
	if listID == "" {
		return false
	}
	if it.ListID == listID {
		return true
	}
	return it.Kind == KindList && it.ID == listID
}

// ParseCache is a cached parse of an item's text.
type ParseCache struct {
	TextHash string   `json:"text_hash"`
	Title    string   `json:"title"`
	Anchors  []Anchor `json:"anchors"`
}

// Anchor is one concrete starting instant produced from item text, with
// the recurrence (if any) that repeats it.
type Anchor struct {
	At         time.Time   `json:"at"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// Frequency of a recurrence descriptor.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Recurrence describes a repeating pattern: Freq every Interval units,
// optionally limited to the weekdays in ByDay.
type Recurrence struct {
	Freq     Frequency      `json:"freq"`
	Interval int            `json:"interval"`
	ByDay    []time.Weekday `json:"by_day,omitempty"`
}

// Valid reports whether the descriptor can be expanded.
func (r Recurrence) Valid() bool {
	if r.Interval <= 0 {
		return false
	}
	switch r.Freq {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return false
	}
	for _, d := range r.ByDay {
		if d < time.Sunday || d > time.Saturday {
			return false
		}
	}
	return true
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// String renders an RRULE-style snapshot, e.g. "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,TH".
func (r Recurrence) String() string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(strings.ToUpper(string(r.Freq)))
	fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	if len(r.ByDay) > 0 {
		codes := make([]string, 0, len(r.ByDay))
		for _, d := range r.ByDay {
			if d >= time.Sunday && d <= time.Saturday {
				codes = append(codes, weekdayCodes[d])
			}
		}
		b.WriteString(";BYDAY=")
		b.WriteString(strings.Join(codes, ","))
	}
	return b.String()
}

// Occurrence is a single concrete due instant of an item. It is produced
// per query and never persisted.
type Occurrence struct {
	ItemKind Kind
	ItemID   string
	ListID   string

	// At keeps the time of day for display; identity only uses its date.
	At    time.Time
	Title string
	// Rule is the recurrence snapshot used to generate this occurrence,
	// empty for one-off dates and phantoms.
	Rule string

	Key string

	Completed     bool
	Phantom       bool
	Ignored       bool
	IgnoredScopes []ScopeType
}

// CompletionRecord marks one occurrence as done for one user.
type CompletionRecord struct {
	UserID   string
	ItemKind Kind
	ItemID   string
	// Date is the normalized occurrence day, formatted YYYY-MM-DD.
	Date string
	// LegacyHash is set only on records written before completions were
	// keyed by item metadata.
	LegacyHash  string
	CompletedAt time.Time
}

// ScopeType selects what an ignore scope suppresses.
type ScopeType string

const (
	ScopeList     ScopeType = "list"
	ScopeItemFrom ScopeType = "item-from"
)

// IgnoreScope is a per-user suppression rule. Scopes are never deleted;
// turning Active off keeps the row as history.
type IgnoreScope struct {
	UserID string
	Type   ScopeType
	// Key is a list id for ScopeList and an item id for ScopeItemFrom.
	Key    string
	Cutoff *time.Time
	Hash   string
	Active bool
}

// Window is an inclusive query range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Valid reports whether the window is non-empty and ordered.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && !w.End.Before(w.Start)
}

// ItemRef addresses an item by kind and id.
type ItemRef struct {
	Kind Kind
	ID   string
}

// Ref returns the reference of it.
func (it Item) Ref() ItemRef {
	return ItemRef{Kind: it.Kind, ID: it.ID}
}
