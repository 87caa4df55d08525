package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

// InsertCompletion is a no-op when the user already completed the same key.
func (s *Store) InsertCompletion(ctx context.Context, rec model.CompletionRecord) error {
	row := completionRow(rec)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (s *Store) DeleteCompletion(ctx context.Context, userID string, key identity.MetadataKey) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND item_kind = ? AND item_id = ? AND date = ?", userID, string(key.Kind), key.ItemID, key.Date).
		Delete(&CompletionRow{}).Error
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *Store) FindCompletion(ctx context.Context, userID string, key identity.MetadataKey) (model.CompletionRecord, bool, error) {
	var row CompletionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND item_kind = ? AND item_id = ? AND date = ?", userID, string(key.Kind), key.ItemID, key.Date).
		First(&row).Error
	return completionResult(row, err)
}

func (s *Store) FindLegacyCompletion(ctx context.Context, userID, hash string) (model.CompletionRecord, bool, error) {
	var row CompletionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND legacy_hash = ?", userID, hash).
		First(&row).Error
	return completionResult(row, err)
}

// ListCompletions compares on the first ten characters of date so legacy
// rows that stored a full timestamp still land on their day.
func (s *Store) ListCompletions(ctx context.Context, userID, from, to string) ([]model.CompletionRecord, error) {
	var rows []CompletionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND substr(date, 1, 10) BETWEEN ? AND ?", userID, from, to).
		Order("date, item_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	out := make([]model.CompletionRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func completionResult(row CompletionRow, err error) (model.CompletionRecord, bool, error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.CompletionRecord{}, false, nil
	case err != nil:
		return model.CompletionRecord{}, false, fmt.Errorf("find completion: %w", err)
	}
	return row.toModel(), true, nil
}
