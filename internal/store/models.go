package store

import (
	"time"

	"taskcal/internal/model"
)

// ItemRow is the persisted form of model.Item.
type ItemRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Kind          string `gorm:"size:16;not null"`
	OwnerID       string `gorm:"index;not null"`
	ListID        string `gorm:"index"`
	Global        bool   `gorm:"index"`
	Text          string
	FirstDateOnly bool
	// ParseCache is cleared whenever Text changes.
	ParseCache *model.ParseCache `gorm:"serializer:json"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (ItemRow) TableName() string { return "items" }

func (r ItemRow) toModel() model.Item {
	return model.Item{
		ID:            r.ID,
		Kind:          model.Kind(r.Kind),
		OwnerID:       r.OwnerID,
		ListID:        r.ListID,
		Global:        r.Global,
		Text:          r.Text,
		CreatedAt:     r.CreatedAt.UTC(),
		FirstDateOnly: r.FirstDateOnly,
		ParseCache:    r.ParseCache,
	}
}

// CompletionRow is one completed occurrence for one user.
type CompletionRow struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   string `gorm:"not null;uniqueIndex:idx_completion_key,priority:1;index:idx_completion_user_date,priority:1"`
	ItemKind string `gorm:"size:16;not null;uniqueIndex:idx_completion_key,priority:2"`
	ItemID   string `gorm:"not null;uniqueIndex:idx_completion_key,priority:3"`
	Date     string `gorm:"not null;uniqueIndex:idx_completion_key,priority:4;index:idx_completion_user_date,priority:2"`
	// LegacyHash is only set on rows carried over from the content-hash era.
	LegacyHash  *string `gorm:"index"`
	CompletedAt time.Time
}

func (CompletionRow) TableName() string { return "completions" }

func completionRow(rec model.CompletionRecord) CompletionRow {
	row := CompletionRow{
		UserID:      rec.UserID,
		ItemKind:    string(rec.ItemKind),
		ItemID:      rec.ItemID,
		Date:        rec.Date,
		CompletedAt: rec.CompletedAt.UTC(),
	}
	if rec.LegacyHash != "" {
		h := rec.LegacyHash
		row.LegacyHash = &h
	}
	return row
}

func (r CompletionRow) toModel() model.CompletionRecord {
	rec := model.CompletionRecord{
		UserID:      r.UserID,
		ItemKind:    model.Kind(r.ItemKind),
		ItemID:      r.ItemID,
		Date:        r.Date,
		CompletedAt: r.CompletedAt.UTC(),
	}
	if r.LegacyHash != nil {
		rec.LegacyHash = *r.LegacyHash
	}
	return rec
}

// IgnoreScopeRow is a per-user ignore scope. Rows are toggled, never deleted.
type IgnoreScopeRow struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"not null;uniqueIndex:idx_scope_user_hash,priority:1"`
	Hash      string `gorm:"size:32;not null;uniqueIndex:idx_scope_user_hash,priority:2"`
	Type      string `gorm:"size:16;not null"`
	ScopeKey  string `gorm:"not null"`
	Cutoff    *time.Time
	Active    bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (IgnoreScopeRow) TableName() string { return "ignore_scopes" }

func (r IgnoreScopeRow) toModel() model.IgnoreScope {
	s := model.IgnoreScope{
		UserID: r.UserID,
		Type:   model.ScopeType(r.Type),
		Key:    r.ScopeKey,
		Hash:   r.Hash,
		Active: r.Active,
	}
	if r.Cutoff != nil {
		c := r.Cutoff.UTC()
		s.Cutoff = &c
	}
	return s
}
