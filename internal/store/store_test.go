package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskcal/internal/calendar"
	"taskcal/internal/completion"
	"taskcal/internal/identity"
	"taskcal/internal/ignore"
	"taskcal/internal/model"
)

var (
	_ calendar.ItemSource       = (*Store)(nil)
	_ calendar.ParseCacheWriter = (*Store)(nil)
	_ completion.Store          = (*Store)(nil)
	_ ignore.Store              = (*Store)(nil)
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "taskcal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var created = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func TestItems(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	list, err := s.CreateItem(ctx, model.Item{Kind: model.KindList, OwnerID: "u1", Text: "Chores", CreatedAt: created})
	if err != nil {
		t.Fatalf("CreateItem list: %v", err)
	}
	if list.ID == "" || list.ListID != list.ID {
		t.Errorf("list = %+v, want generated id that is its own list", list)
	}
	task, err := s.CreateItem(ctx, model.Item{Kind: model.KindTask, OwnerID: "u1", ListID: list.ID, Text: "bins 2025-09-01 every week", CreatedAt: created})
	if err != nil {
		t.Fatalf("CreateItem task: %v", err)
	}
	if _, err := s.CreateItem(ctx, model.Item{Kind: model.KindTask, OwnerID: "u2", Text: "holiday 2025-12-25", Global: true, CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateItem(ctx, model.Item{Kind: model.KindTask, OwnerID: "u2", Text: "private", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateItem(ctx, model.Item{Kind: "note", OwnerID: "u1"}); err == nil {
		t.Error("CreateItem accepted an unknown kind")
	}

	tests := []struct {
		name          string
		includeGlobal bool
		want          int
	}{
		{"own only", false, 2},
		{"own and global", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.ListItems(ctx, "u1", tt.includeGlobal)
			if err != nil {
				t.Fatal(err)
			}
			if len(items) != tt.want {
				t.Errorf("items = %d, want %d", len(items), tt.want)
			}
		})
	}

	got, found, err := s.GetItem(ctx, task.ID)
	if err != nil || !found {
		t.Fatalf("GetItem = %v, %v", found, err)
	}
	if got.Text != task.Text || got.ListID != list.ID || !got.CreatedAt.Equal(created) {
		t.Errorf("GetItem = %+v", got)
	}
	if _, found, err := s.GetItem(ctx, "missing"); err != nil || found {
		t.Errorf("GetItem(missing) = %v, %v", found, err)
	}
}

func TestParseCacheClearedOnTextEdit(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	it, err := s.CreateItem(ctx, model.Item{Kind: model.KindTask, OwnerID: "u1", Text: "2025-09-10", CreatedAt: created})
	if err != nil {
		t.Fatal(err)
	}
	cache := model.ParseCache{
		TextHash: "abc",
		Title:    "2025-09-10",
		Anchors: []model.Anchor{{
			At:         time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
			Recurrence: &model.Recurrence{Freq: model.Weekly, Interval: 2, ByDay: []time.Weekday{time.Monday}},
		}},
	}
	if err := s.SaveParseCache(ctx, it.ID, cache); err != nil {
		t.Fatalf("SaveParseCache: %v", err)
	}

	got, _, _ := s.GetItem(ctx, it.ID)
	if got.ParseCache == nil || got.ParseCache.TextHash != "abc" || len(got.ParseCache.Anchors) != 1 {
		t.Fatalf("cache = %+v", got.ParseCache)
	}
	if r := got.ParseCache.Anchors[0].Recurrence; r == nil || r.String() != "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO" {
		t.Errorf("recurrence = %v", r)
	}

	if err := s.UpdateItemText(ctx, it.ID, "2025-09-11"); err != nil {
		t.Fatalf("UpdateItemText: %v", err)
	}
	got, _, _ = s.GetItem(ctx, it.ID)
	if got.Text != "2025-09-11" || got.ParseCache != nil {
		t.Errorf("after edit = %+v", got)
	}

	if err := s.UpdateItemText(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateItemText(missing) err = %v, want ErrNotFound", err)
	}
}

func TestCompletions(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	rec := model.CompletionRecord{UserID: "u1", ItemKind: model.KindTask, ItemID: "a1", Date: "2025-09-08", CompletedAt: created}
	for i := 0; i < 2; i++ {
		if err := s.InsertCompletion(ctx, rec); err != nil {
			t.Fatalf("InsertCompletion #%d: %v", i, err)
		}
	}
	recs, err := s.ListCompletions(ctx, "u1", "2025-09-01", "2025-09-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}

	key := identity.ForRecord(rec)
	if _, found, err := s.FindCompletion(ctx, "u1", key); err != nil || !found {
		t.Errorf("FindCompletion = %v, %v", found, err)
	}
	if _, found, _ := s.FindCompletion(ctx, "u2", key); found {
		t.Error("completion leaked to another user")
	}

	if err := s.DeleteCompletion(ctx, "u1", key); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCompletion(ctx, "u1", key); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, found, _ := s.FindCompletion(ctx, "u1", key); found {
		t.Error("completion still present after delete")
	}
}

func TestLegacyCompletionRows(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	legacy := model.CompletionRecord{
		UserID:     "u1",
		ItemKind:   model.KindTask,
		ItemID:     "a1",
		Date:       "2025-09-30T09:30:00Z",
		LegacyHash: "deadbeef",
	}
	if err := s.InsertCompletion(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	got, found, err := s.FindLegacyCompletion(ctx, "u1", "deadbeef")
	if err != nil || !found || got.LegacyHash != "deadbeef" {
		t.Fatalf("FindLegacyCompletion = %+v, %v, %v", got, found, err)
	}
	recs, err := s.ListCompletions(ctx, "u1", "2025-09-01", "2025-09-30")
	if err != nil || len(recs) != 1 {
		t.Errorf("timestamped legacy row on the last day: %v, %v", recs, err)
	}
}

func TestIgnoreScopes(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	cutoff := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	scope, err := ignore.NewScope("u1", model.ScopeItemFrom, "a1", &cutoff)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := s.UpsertScope(ctx, scope)
	if err != nil {
		t.Fatalf("UpsertScope: %v", err)
	}
	if stored.Hash != scope.Hash || stored.Cutoff == nil || !stored.Cutoff.Equal(cutoff) || !stored.Active {
		t.Errorf("stored = %+v", stored)
	}

	if err := s.SetScopeActive(ctx, "u1", scope.Hash, false); err != nil {
		t.Fatal(err)
	}
	active, err := s.ListActiveScopes(ctx, "u1")
	if err != nil || len(active) != 0 {
		t.Fatalf("active after toggle = %v, %v", active, err)
	}
	all, _ := s.ListScopes(ctx, "u1")
	if len(all) != 1 || all[0].Active {
		t.Errorf("all scopes = %+v, want one inactive row", all)
	}

	again, err := s.UpsertScope(ctx, scope)
	if err != nil || !again.Active {
		t.Fatalf("re-upsert = %+v, %v", again, err)
	}
	all, _ = s.ListScopes(ctx, "u1")
	if len(all) != 1 {
		t.Errorf("scopes = %d, want the same row reused", len(all))
	}

	if err := s.SetScopeActive(ctx, "u1", "nope", true); !errors.Is(err, ignore.ErrScopeNotFound) {
		t.Errorf("SetScopeActive(unknown) err = %v", err)
	}
}

func TestCalendarOverStore(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()
	svc := calendar.New(s, s, s, calendar.Options{})

	it, err := s.CreateItem(ctx, model.Item{Kind: model.KindTask, OwnerID: "u1", Text: "Pay rent 2025-08-25 every 2 weeks", CreatedAt: created})
	if err != nil {
		t.Fatal(err)
	}

	occs, err := svc.GetOccurrences(ctx, "u1", "2025-09-01", "2025-10-31", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 4 {
		t.Fatalf("occurrences = %d, want 4", len(occs))
	}
	if got, _, _ := s.GetItem(ctx, it.ID); got.ParseCache == nil {
		t.Error("parse cache was not written back")
	}

	if err := svc.Complete(ctx, "u1", "task", it.ID, "2025-09-08"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateItemText(ctx, it.ID, "Pay rent 2025-08-25 every 3 weeks"); err != nil {
		t.Fatal(err)
	}

	occs, err = svc.GetOccurrences(ctx, "u1", "2025-09-01", "2025-09-30", false)
	if err != nil {
		t.Fatal(err)
	}
	var phantoms int
	for _, o := range occs {
		if o.Phantom {
			phantoms++
			if identity.FormatDate(o.At) != "2025-09-08" || !o.Completed {
				t.Errorf("phantom = %+v", o)
			}
		}
	}
	if phantoms != 1 {
		t.Errorf("phantoms = %d, want 1", phantoms)
	}
}
