package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"taskcal/internal/model"
)

// LegacyHash reproduces the content hash that completion records carried
// before they were keyed by metadata. It covers the rule and title
// snapshots, so any edit to either changes it. Only use it to look up
// old records; never write new records with it.
func LegacyHash(kind model.Kind, itemID, rule, title, date string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(kind),
		itemID,
		rule,
		title,
		date,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// LegacyHashFor computes the legacy hash of an occurrence from its
// generation-time snapshots.
func LegacyHashFor(occ model.Occurrence) string {
	return LegacyHash(occ.ItemKind, occ.ItemID, occ.Rule, occ.Title, FormatDate(occ.At))
}
