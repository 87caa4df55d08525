package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskcal/internal/ignore"
	"taskcal/internal/model"
)

// UpsertScope inserts scope, or reactivates the row with the same user and
// hash and returns it.
func (s *Store) UpsertScope(ctx context.Context, scope model.IgnoreScope) (model.IgnoreScope, error) {
	var row IgnoreScopeRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND hash = ?", scope.UserID, scope.Hash).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = IgnoreScopeRow{
				UserID:   scope.UserID,
				Hash:     scope.Hash,
				Type:     string(scope.Type),
				ScopeKey: scope.Key,
				Cutoff:   scope.Cutoff,
				Active:   true,
			}
			return tx.Create(&row).Error
		case err != nil:
			return err
		}
		if row.Active {
			return nil
		}
		row.Active = true
		return tx.Model(&row).Update("active", true).Error
	})
	if err != nil {
		return model.IgnoreScope{}, fmt.Errorf("upsert ignore scope: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) SetScopeActive(ctx context.Context, userID, hash string, active bool) error {
	res := s.db.WithContext(ctx).Model(&IgnoreScopeRow{}).
		Where("user_id = ? AND hash = ?", userID, hash).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("set ignore scope active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ignore.ErrScopeNotFound, hash)
	}
	return nil
}

func (s *Store) ListActiveScopes(ctx context.Context, userID string) ([]model.IgnoreScope, error) {
	var rows []IgnoreScopeRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list ignore scopes: %w", err)
	}
	out := make([]model.IgnoreScope, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// ListScopes returns every scope of the user, active or not.
func (s *Store) ListScopes(ctx context.Context, userID string) ([]model.IgnoreScope, error) {
	var rows []IgnoreScopeRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list ignore scopes: %w", err)
	}
	out := make([]model.IgnoreScope, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
