package ignore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"taskcal/internal/model"
)

type memStore struct {
	scopes []model.IgnoreScope
}

func (m *memStore) UpsertScope(_ context.Context, scope model.IgnoreScope) (model.IgnoreScope, error) {
	for i, s := range m.scopes {
		if s.UserID == scope.UserID && s.Hash == scope.Hash {
			m.scopes[i].Active = true
			return m.scopes[i], nil
		}
	}
	m.scopes = append(m.scopes, scope)
	return scope, nil
}

func (m *memStore) SetScopeActive(_ context.Context, userID, hash string, active bool) error {
	for i, s := range m.scopes {
		if s.UserID == userID && s.Hash == hash {
			m.scopes[i].Active = active
		}
	}
	return nil
}

func (m *memStore) ListActiveScopes(_ context.Context, userID string) ([]model.IgnoreScope, error) {
	var out []model.IgnoreScope
	for _, s := range m.scopes {
		if s.UserID == userID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC)
}

func occ(kind model.Kind, id, list string, d int) model.Occurrence {
	return model.Occurrence{ItemKind: kind, ItemID: id, ListID: list, At: day(d)}
}

func TestNewScope(t *testing.T) {
	t.Parallel()
	cut := day(10)

	tests := []struct {
		name    string
		user    string
		typ     model.ScopeType
		key     string
		cutoff  *time.Time
		wantErr error
	}{
		{"list", "u1", model.ScopeList, "L1", nil, nil},
		{"item-from", "u1", model.ScopeItemFrom, "a1", &cut, nil},
		{"item-from without cutoff", "u1", model.ScopeItemFrom, "a1", nil, ErrInvalidScope},
		{"empty key", "u1", model.ScopeList, " ", nil, ErrInvalidScope},
		{"unknown type", "u1", "tag", "x", nil, ErrInvalidScope},
		{"no user", "", model.ScopeList, "L1", nil, ErrNoUser},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewScope(tt.user, tt.typ, tt.key, tt.cutoff)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (s.Hash == "" || !s.Active) {
				t.Errorf("scope = %+v, want hash and active", s)
			}
		})
	}
}

func TestScopeHashIsStable(t *testing.T) {
	t.Parallel()
	cut := day(10)
	a := ScopeHash("u1", model.ScopeItemFrom, "a1", &cut)
	b := ScopeHash("u1", model.ScopeItemFrom, "a1", &cut)
	if a != b {
		t.Error("same inputs produced different hashes")
	}
	later := day(11)
	if a == ScopeHash("u1", model.ScopeItemFrom, "a1", &later) {
		t.Error("cutoff change did not change the hash")
	}
	if a == ScopeHash("u2", model.ScopeItemFrom, "a1", &cut) {
		t.Error("user change did not change the hash")
	}
}

func TestFilterMatch(t *testing.T) {
	t.Parallel()
	cut := day(10)
	f := NewFilter([]model.IgnoreScope{
		{Type: model.ScopeList, Key: "L1", Active: true},
		{Type: model.ScopeItemFrom, Key: "a1", Cutoff: &cut, Active: true},
		{Type: model.ScopeList, Key: "L2", Active: false},
	})

	tests := []struct {
		name string
		occ  model.Occurrence
		want []model.ScopeType
	}{
		{"task in ignored list", occ(model.KindTask, "t9", "L1", 1), []model.ScopeType{model.ScopeList}},
		{"the list itself", occ(model.KindList, "L1", "L1", 1), []model.ScopeType{model.ScopeList}},
		{"inactive scope", occ(model.KindTask, "t9", "L2", 1), nil},
		{"before cutoff", occ(model.KindTask, "a1", "L3", 9), nil},
		{"at cutoff", occ(model.KindTask, "a1", "L3", 10), []model.ScopeType{model.ScopeItemFrom}},
		{"both scopes", occ(model.KindTask, "a1", "L1", 12), []model.ScopeType{model.ScopeList, model.ScopeItemFrom}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := f.Match(tt.occ); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterApply(t *testing.T) {
	t.Parallel()
	f := NewFilter([]model.IgnoreScope{{Type: model.ScopeList, Key: "L1", Active: true}})
	in := []model.Occurrence{
		occ(model.KindTask, "t1", "L1", 1),
		occ(model.KindTask, "t2", "L2", 2),
	}

	dropped := f.Apply(in, false)
	if len(dropped) != 1 || dropped[0].ItemID != "t2" {
		t.Fatalf("default Apply = %+v, want only t2", dropped)
	}

	kept := f.Apply(in, true)
	if len(kept) != 2 {
		t.Fatalf("include-ignored Apply kept %d, want 2", len(kept))
	}
	if !kept[0].Ignored || !reflect.DeepEqual(kept[0].IgnoredScopes, []model.ScopeType{model.ScopeList}) {
		t.Errorf("t1 = %+v, want ignored by list", kept[0])
	}
	if kept[1].Ignored {
		t.Errorf("t2 = %+v, want not ignored", kept[1])
	}
	if in[0].Ignored {
		t.Error("Apply mutated its input")
	}
}

func TestManagerToggleRestoresVisibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memStore{}
	m := NewManager(store)

	scope, err := m.Ignore(ctx, "u1", model.ScopeList, "L1", nil)
	if err != nil {
		t.Fatal(err)
	}
	again, err := m.Ignore(ctx, "u1", model.ScopeList, "L1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.Hash != scope.Hash || len(store.scopes) != 1 {
		t.Fatalf("second Ignore created a new scope: %+v", store.scopes)
	}

	occs := []model.Occurrence{occ(model.KindTask, "t1", "L1", 1)}
	f, err := m.Filter(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Apply(occs, false); len(got) != 0 {
		t.Fatalf("active scope kept %d occurrences", len(got))
	}

	if err := m.SetActive(ctx, "u1", scope.Hash, false); err != nil {
		t.Fatal(err)
	}
	f, err = m.Filter(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Apply(occs, false); len(got) != 1 || got[0].Ignored {
		t.Fatalf("inactive scope result = %+v, want one plain occurrence", got)
	}
	if len(store.scopes) != 1 {
		t.Errorf("toggle removed the scope row")
	}
}
