// Package completion tracks which occurrences a user has completed.
//
// Records are addressed by the occurrence metadata key. Records written
// before that scheme only match through their legacy content hash; those
// lookups live in legacy.go and are never used for writes.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

var (
	ErrNoUser            = errors.New("completion: user is required")
	ErrInvalidOccurrence = errors.New("completion: occurrence has no item kind or id")
)

// Store persists completion records. Implementations must make
// InsertCompletion a no-op when a record with the same user and metadata
// key already exists, and DeleteCompletion a no-op when none does.
type Store interface {
	InsertCompletion(ctx context.Context, rec model.CompletionRecord) error
	DeleteCompletion(ctx context.Context, userID string, key identity.MetadataKey) error
	FindCompletion(ctx context.Context, userID string, key identity.MetadataKey) (model.CompletionRecord, bool, error)
	FindLegacyCompletion(ctx context.Context, userID, hash string) (model.CompletionRecord, bool, error)
	// ListCompletions returns the user's records whose date lies in
	// [from, to] (YYYY-MM-DD, inclusive) in a single read.
	ListCompletions(ctx context.Context, userID, from, to string) ([]model.CompletionRecord, error)
}

// Tracker implements mark/unmark/lookup on top of a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Mark records occ as completed for user. Marking twice is a no-op.
func (t *Tracker) Mark(ctx context.Context, userID string, occ model.Occurrence) error {
	if err := validate(userID, occ); err != nil {
		return err
	}
	key := identity.ForOccurrence(occ)
	rec := model.CompletionRecord{
		UserID:      userID,
		ItemKind:    key.Kind,
		ItemID:      key.ItemID,
		Date:        key.Date,
		CompletedAt: t.now().UTC(),
	}
	if err := t.store.InsertCompletion(ctx, rec); err != nil {
		return fmt.Errorf("mark complete %s: %w", key, err)
	}
	return nil
}

// Unmark removes the completion of occ for user. Unmarking an occurrence
// that was never completed is a no-op.
func (t *Tracker) Unmark(ctx context.Context, userID string, occ model.Occurrence) error {
	if err := validate(userID, occ); err != nil {
		return err
	}
	key := identity.ForOccurrence(occ)
	if err := t.store.DeleteCompletion(ctx, userID, key); err != nil {
		return fmt.Errorf("unmark complete %s: %w", key, err)
	}
	return nil
}

// IsComplete looks occ up by metadata key, then by legacy hash.
func (t *Tracker) IsComplete(ctx context.Context, userID string, occ model.Occurrence) (bool, error) {
	if err := validate(userID, occ); err != nil {
		return false, err
	}
	key := identity.ForOccurrence(occ)
	_, found, err := t.store.FindCompletion(ctx, userID, key)
	if err != nil {
		return false, fmt.Errorf("find completion %s: %w", key, err)
	}
	if found {
		return true, nil
	}
	return t.isLegacyComplete(ctx, userID, occ)
}

// Snapshot reads every record of user inside w once, so one query sees a
// consistent completion state.
func (t *Tracker) Snapshot(ctx context.Context, userID string, w model.Window) (*Snapshot, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	recs, err := t.store.ListCompletions(ctx, userID, identity.FormatDate(w.Start), identity.FormatDate(w.End))
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return NewSnapshot(recs), nil
}

func validate(userID string, occ model.Occurrence) error {
	if userID == "" {
		return ErrNoUser
	}
	if !occ.ItemKind.Valid() || occ.ItemID == "" {
		return ErrInvalidOccurrence
	}
	return nil
}

// Snapshot is an in-memory view of a user's completions for one query.
type Snapshot struct {
	records  []model.CompletionRecord
	byKey    map[identity.MetadataKey]bool
	byLegacy map[string]bool
}

func NewSnapshot(recs []model.CompletionRecord) *Snapshot {
	s := &Snapshot{
		records:  recs,
		byKey:    make(map[identity.MetadataKey]bool, len(recs)),
		byLegacy: make(map[string]bool),
	}
	for _, r := range recs {
		s.byKey[identity.ForRecord(r)] = true
		if r.LegacyHash != "" {
			s.byLegacy[r.LegacyHash] = true
		}
	}
	return s
}

// IsComplete mirrors Tracker.IsComplete against the snapshot.
func (s *Snapshot) IsComplete(occ model.Occurrence) bool {
	if s.byKey[identity.ForOccurrence(occ)] {
		return true
	}
	return s.isLegacyComplete(occ)
}

// Records returns the records the snapshot was built from.
func (s *Snapshot) Records() []model.CompletionRecord {
	return s.records
}
