package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskcal/internal/model"
)

// CreateItem inserts item, assigning an id and creation time when missing.
// A list always belongs to itself.
func (s *Store) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	if !item.Kind.Valid() {
		return model.Item{}, fmt.Errorf("create item: unknown kind %q", item.Kind)
	}
	if strings.TrimSpace(item.OwnerID) == "" {
		return model.Item{}, errors.New("create item: owner is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.CreatedAt = item.CreatedAt.UTC()
	if item.Kind == model.KindList {
		item.ListID = item.ID
	}
	item.ParseCache = nil

	row := ItemRow{
		ID:            item.ID,
		Kind:          string(item.Kind),
		OwnerID:       item.OwnerID,
		ListID:        item.ListID,
		Global:        item.Global,
		Text:          item.Text,
		FirstDateOnly: item.FirstDateOnly,
		CreatedAt:     item.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// UpdateItemText replaces the item text and drops its parse cache.
func (s *Store) UpdateItemText(ctx context.Context, id, text string) error {
	res := s.db.WithContext(ctx).Model(&ItemRow{ID: id}).
		Select("text", "parse_cache").
		Updates(&ItemRow{Text: text, ParseCache: nil})
	if res.Error != nil {
		return fmt.Errorf("update item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListItems returns the items owned by ownerID plus, optionally, every
// global item.
func (s *Store) ListItems(ctx context.Context, ownerID string, includeGlobal bool) ([]model.Item, error) {
	var rows []ItemRow
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if includeGlobal {
		q = q.Or("global = ?", true)
	}
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]model.Item, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (model.Item, bool, error) {
	var row ItemRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Item{}, false, nil
	case err != nil:
		return model.Item{}, false, fmt.Errorf("get item %s: %w", id, err)
	}
	return row.toModel(), true, nil
}

// SaveParseCache stores the parse result next to the item without touching
// its text.
func (s *Store) SaveParseCache(ctx context.Context, itemID string, cache model.ParseCache) error {
	err := s.db.WithContext(ctx).Model(&ItemRow{ID: itemID}).
		Select("parse_cache").
		Updates(&ItemRow{ParseCache: &cache}).Error
	if err != nil {
		return fmt.Errorf("save parse cache %s: %w", itemID, err)
	}
	return nil
}
