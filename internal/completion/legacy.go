package completion

import (
	"context"
	"fmt"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

// isLegacyComplete checks for a record written under the old content-hash
// identity. A hit counts as completed; the record is left as it is.
func (t *Tracker) isLegacyComplete(ctx context.Context, userID string, occ model.Occurrence) (bool, error) {
	hash := identity.LegacyHashFor(occ)
	_, found, err := t.store.FindLegacyCompletion(ctx, userID, hash)
	if err != nil {
		return false, fmt.Errorf("find legacy completion: %w", err)
	}
	return found, nil
}

func (s *Snapshot) isLegacyComplete(occ model.Occurrence) bool {
	if len(s.byLegacy) == 0 {
		return false
	}
	return s.byLegacy[identity.LegacyHashFor(occ)]
}
