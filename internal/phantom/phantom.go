// Package phantom re-inserts completed occurrences that an item's current
// rule no longer produces, so completion history stays visible.
package phantom

import (
	"sort"
	"time"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

// Source is the current state of an item as seen by the query.
type Source struct {
	Item  model.Item
	Title string
}

// Inject returns one phantom occurrence for each record whose day falls in
// w, whose item is still among sources, and which no natural occurrence
// already covers. A record's day is placed at midnight UTC and tested
// against w the same way expanded instants are, so a window starting after
// midnight excludes that day for phantoms and natural occurrences alike.
func Inject(w model.Window, natural []model.Occurrence, records []model.CompletionRecord, sources map[model.ItemRef]Source) []model.Occurrence {
	have := make(map[identity.MetadataKey]bool, len(natural))
	for _, occ := range natural {
		have[identity.ForOccurrence(occ)] = true
	}

	var out []model.Occurrence
	for _, rec := range records {
		day, err := time.Parse(identity.DateLayout, rec.Date)
		if err != nil {
			// Legacy rows may carry other date formats; they cannot be placed.
			continue
		}
		if !w.Contains(day) {
			continue
		}
		key := identity.ForRecord(rec)
		if have[key] {
			continue
		}
		src, ok := sources[model.ItemRef{Kind: rec.ItemKind, ID: rec.ItemID}]
		if !ok {
			continue
		}
		have[key] = true

		occ := model.Occurrence{
			ItemKind:  rec.ItemKind,
			ItemID:    rec.ItemID,
			ListID:    src.Item.ListID,
			At:        day,
			Title:     src.Title,
			Completed: true,
			Phantom:   true,
		}
		identity.Assign(&occ)
		out = append(out, occ)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
