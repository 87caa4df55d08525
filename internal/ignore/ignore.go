// Package ignore applies per-user suppression scopes to occurrences.
package ignore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskcal/internal/model"
)

var (
	ErrNoUser        = errors.New("ignore: user is required")
	ErrInvalidScope  = errors.New("ignore: invalid scope")
	ErrScopeNotFound = errors.New("ignore: scope not found")
)

// Store persists ignore scopes. UpsertScope inserts a scope or, when one
// with the same hash exists, reactivates it and returns the stored row.
// SetScopeActive reports ErrScopeNotFound for an unknown hash.
type Store interface {
	UpsertScope(ctx context.Context, scope model.IgnoreScope) (model.IgnoreScope, error)
	SetScopeActive(ctx context.Context, userID, hash string, active bool) error
	ListActiveScopes(ctx context.Context, userID string) ([]model.IgnoreScope, error)
}

// ScopeHash is the idempotency key of a scope.
func ScopeHash(userID string, typ model.ScopeType, key string, cutoff *time.Time) string {
	c := ""
	if cutoff != nil {
		c = cutoff.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{userID, string(typ), key, c}, "|")))
	return hex.EncodeToString(sum[:16])
}

// NewScope validates the inputs and returns an active scope with its hash.
// item-from scopes need a cutoff; list scopes drop any cutoff given.
func NewScope(userID string, typ model.ScopeType, key string, cutoff *time.Time) (model.IgnoreScope, error) {
	if userID == "" {
		return model.IgnoreScope{}, ErrNoUser
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return model.IgnoreScope{}, fmt.Errorf("%w: empty key", ErrInvalidScope)
	}
	switch typ {
	case model.ScopeList:
		cutoff = nil
	case model.ScopeItemFrom:
		if cutoff == nil {
			return model.IgnoreScope{}, fmt.Errorf("%w: item-from scope needs a cutoff", ErrInvalidScope)
		}
		c := cutoff.UTC()
		cutoff = &c
	default:
		return model.IgnoreScope{}, fmt.Errorf("%w: unknown type %q", ErrInvalidScope, typ)
	}
	return model.IgnoreScope{
		UserID: userID,
		Type:   typ,
		Key:    key,
		Cutoff: cutoff,
		Hash:   ScopeHash(userID, typ, key, cutoff),
		Active: true,
	}, nil
}

// Manager creates and toggles scopes for users.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Ignore stores (or reactivates) a scope and returns it.
func (m *Manager) Ignore(ctx context.Context, userID string, typ model.ScopeType, key string, cutoff *time.Time) (model.IgnoreScope, error) {
	scope, err := NewScope(userID, typ, key, cutoff)
	if err != nil {
		return model.IgnoreScope{}, err
	}
	stored, err := m.store.UpsertScope(ctx, scope)
	if err != nil {
		return model.IgnoreScope{}, fmt.Errorf("upsert scope: %w", err)
	}
	return stored, nil
}

// SetActive flips a scope on or off. Inactive scopes stay stored.
func (m *Manager) SetActive(ctx context.Context, userID, hash string, active bool) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := m.store.SetScopeActive(ctx, userID, hash, active); err != nil {
		return fmt.Errorf("set scope active: %w", err)
	}
	return nil
}

// Filter loads the user's active scopes.
func (m *Manager) Filter(ctx context.Context, userID string) (*Filter, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	scopes, err := m.store.ListActiveScopes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ignore scopes: %w", err)
	}
	return NewFilter(scopes), nil
}

// Filter matches occurrences against a fixed set of active scopes.
type Filter struct {
	scopes []model.IgnoreScope
}

// NewFilter keeps only the active scopes.
func NewFilter(scopes []model.IgnoreScope) *Filter {
	f := &Filter{}
	for _, s := range scopes {
		if s.Active {
			f.scopes = append(f.scopes, s)
		}
	}
	return f
}

// Match returns the distinct scope types that suppress occ.
func (f *Filter) Match(occ model.Occurrence) []model.ScopeType {
	var list, itemFrom bool
	for _, s := range f.scopes {
		switch s.Type {
		case model.ScopeList:
			if occ.ListID == s.Key || (occ.ItemKind == model.KindList && occ.ItemID == s.Key) {
				list = true
			}
		case model.ScopeItemFrom:
			if s.Cutoff != nil && occ.ItemID == s.Key && !occ.At.Before(*s.Cutoff) {
				itemFrom = true
			}
		}
	}

	var out []model.ScopeType
	if list {
		out = append(out, model.ScopeList)
	}
	if itemFrom {
		out = append(out, model.ScopeItemFrom)
	}
	return out
}

// Apply drops matched occurrences, or with includeIgnored keeps them
// flagged with the matching scope types.
func (f *Filter) Apply(occs []model.Occurrence, includeIgnored bool) []model.Occurrence {
	if len(f.scopes) == 0 {
		return occs
	}
	out := make([]model.Occurrence, 0, len(occs))
	for _, occ := range occs {
		matched := f.Match(occ)
		if len(matched) == 0 {
			out = append(out, occ)
			continue
		}
		if !includeIgnored {
			continue
		}
		occ.Ignored = true
		occ.IgnoredScopes = matched
		out = append(out, occ)
	}
	return out
}
