// Package calendar answers "what is due for this user in this window" by
// combining parsing, expansion, completion state, phantoms and ignore
// scopes over every item visible to the user.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"taskcal/internal/completion"
	"taskcal/internal/expand"
	"taskcal/internal/identity"
	"taskcal/internal/ignore"
	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/parse"
	"taskcal/internal/phantom"
)

var (
	ErrInvalidWindow = errors.New("invalid query window")
	ErrInvalidInput  = errors.New("invalid input")
	ErrItemNotFound  = errors.New("item not found")
)

const (
	DefaultMaxWindowDays = 1830
)

// ItemSource supplies the items a query runs over. Callers restrict
// ListItems to what the user may see.
type ItemSource interface {
	ListItems(ctx context.Context, ownerID string, includeGlobal bool) ([]model.Item, error)
	GetItem(ctx context.Context, id string) (model.Item, bool, error)
}

// ParseCacheWriter is implemented by item sources that can persist parse
// results next to the item.
type ParseCacheWriter interface {
	SaveParseCache(ctx context.Context, itemID string, cache model.ParseCache) error
}

// Options tunes query limits.
type Options struct {
	// MaxOccurrencesPerItem caps instants per item per query.
	MaxOccurrencesPerItem int
	// MaxWindowDays rejects windows spanning more days than this.
	MaxWindowDays int
	// Workers bounds concurrent item expansion.
	Workers int
}

func (o *Options) normalize() {
	if o.MaxOccurrencesPerItem <= 0 {
		o.MaxOccurrencesPerItem = expand.DefaultMaxPerItem
	}
	if o.MaxWindowDays <= 0 {
		o.MaxWindowDays = DefaultMaxWindowDays
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
}

// Service is the calendar query entry point.
type Service struct {
	items   ItemSource
	tracker *completion.Tracker
	ignores *ignore.Manager
	opts    Options
	memo    *parseMemo
}

func New(items ItemSource, completions completion.Store, ignores ignore.Store, opts Options) *Service {
	opts.normalize()
	return &Service{
		items:   items,
		tracker: completion.NewTracker(completions),
		ignores: ignore.NewManager(ignores),
		opts:    opts,
		memo:    newParseMemo(),
	}
}

// GetOccurrences parses the raw window and runs Occurrences. A malformed
// window is rejected before any item is read.
func (s *Service) GetOccurrences(ctx context.Context, userID, start, end string, includeIgnored bool) ([]model.Occurrence, error) {
	w, err := ParseWindow(start, end)
	if err != nil {
		return nil, err
	}
	return s.Occurrences(ctx, userID, w, includeIgnored)
}

type itemResult struct {
	title     string
	occs      []model.Occurrence
	truncated bool
	// cache is set when the item's persisted parse cache was stale.
	cache *model.ParseCache
}

// Occurrences returns every occurrence visible to userID in w, sorted by
// instant and then item id. Store failures abort the whole query; a single
// item that fails to parse only contributes nothing.
func (s *Service) Occurrences(ctx context.Context, userID string, w model.Window, includeIgnored bool) ([]model.Occurrence, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if err := s.checkWindow(w); err != nil {
		return nil, err
	}

	items, err := s.items.ListItems(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	snap, err := s.tracker.Snapshot(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	filter, err := s.ignores.Filter(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]itemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.expandItem(items[i], w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.saveParseCaches(ctx, items, results)

	sources := make(map[model.ItemRef]phantom.Source, len(items))
	seen := make(map[string]bool)
	natural := make([]model.Occurrence, 0)
	truncated := 0
	for i, r := range results {
		if !items[i].Kind.Valid() {
			continue
		}
		sources[items[i].Ref()] = phantom.Source{Item: items[i], Title: r.title}
		if r.truncated {
			truncated++
		}
		for _, occ := range r.occs {
			if seen[occ.Key] {
				continue
			}
			seen[occ.Key] = true
			occ.Completed = snap.IsComplete(occ)
			natural = append(natural, occ)
		}
	}

	phantoms := phantom.Inject(w, natural, snap.Records(), sources)
	all := filter.Apply(append(natural, phantoms...), includeIgnored)

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].At.Equal(all[j].At) {
			return all[i].At.Before(all[j].At)
		}
		return all[i].ItemID < all[j].ItemID
	})

	if truncated > 0 {
		appLog.Warn("calendar: occurrence cap reached",
			"user", userID,
			"items", truncated,
			"cap", s.opts.MaxOccurrencesPerItem,
		)
	}
	appLog.Debug("calendar: query done",
		"user", userID,
		"start", w.Start,
		"end", w.End,
		"items", len(items),
		"natural", len(natural),
		"phantoms", len(phantoms),
		"returned", len(all),
	)
	return all, nil
}

func (s *Service) expandItem(item model.Item, w model.Window) itemResult {
	var r itemResult
	if !item.Kind.Valid() {
		appLog.Warn("calendar: skipping item with unknown kind", "item", item.ID, "kind", string(item.Kind))
		return r
	}

	an, cache := s.analyze(item)
	r.title = an.Title
	r.cache = cache
	if len(an.Anchors) == 0 {
		appLog.Debug("calendar: item has no anchor", "item", item.ID)
		return r
	}

	budget := s.opts.MaxOccurrencesPerItem
	for _, a := range an.Anchors {
		if budget <= 0 {
			r.truncated = true
			break
		}
		res, err := expand.Expand(a.At, a.Recurrence, w, expand.Options{MaxPerItem: budget})
		if err != nil {
			appLog.Error("calendar: expand failed", err, "item", item.ID)
			continue
		}
		if res.Truncated {
			r.truncated = true
		}
		rule := ""
		if a.Recurrence != nil {
			rule = a.Recurrence.String()
		}
		for _, t := range res.Instants {
			occ := model.Occurrence{
				ItemKind: item.Kind,
				ItemID:   item.ID,
				ListID:   item.ListID,
				At:       t,
				Title:    an.Title,
				Rule:     rule,
			}
			identity.Assign(&occ)
			r.occs = append(r.occs, occ)
		}
		budget -= len(res.Instants)
	}
	return r
}

// analyze returns the item's anchors and title, from its persisted parse
// cache when that is current, otherwise from the memo. The second result is
// the cache to persist when the stored one was stale.
func (s *Service) analyze(item model.Item) (parse.Analysis, *model.ParseCache) {
	fp := parse.Fingerprint(item.Text, item.CreatedAt, item.FirstDateOnly)
	if pc := item.ParseCache; pc != nil && pc.TextHash == fp {
		return parse.Analysis{Anchors: pc.Anchors, Title: pc.Title}, nil
	}
	an := s.memo.get(item.ID, fp, func() parse.Analysis {
		return parse.Analyze(item.Text, item.CreatedAt, item.FirstDateOnly)
	})
	return an, &model.ParseCache{TextHash: fp, Title: an.Title, Anchors: an.Anchors}
}

func (s *Service) saveParseCaches(ctx context.Context, items []model.Item, results []itemResult) {
	w, ok := s.items.(ParseCacheWriter)
	if !ok {
		return
	}
	for i, r := range results {
		if r.cache == nil {
			continue
		}
		if err := w.SaveParseCache(ctx, items[i].ID, *r.cache); err != nil {
			// The cache is an optimization; the query result is unaffected.
			appLog.Error("calendar: save parse cache failed", err, "item", items[i].ID)
		}
	}
}

// SweepParseMemo drops memoized parses unused for maxAge.
func (s *Service) SweepParseMemo(maxAge time.Duration) int {
	return s.memo.sweep(maxAge)
}

// Complete marks the occurrence of an item on date as done for userID.
func (s *Service) Complete(ctx context.Context, userID, kind, itemID, date string) error {
	occ, err := s.resolveOccurrence(ctx, userID, kind, itemID, date)
	if err != nil {
		return err
	}
	return s.tracker.Mark(ctx, userID, occ)
}

// Uncomplete removes a completion. Removing one that does not exist succeeds.
func (s *Service) Uncomplete(ctx context.Context, userID, kind, itemID, date string) error {
	occ, err := s.resolveOccurrence(ctx, userID, kind, itemID, date)
	if err != nil {
		return err
	}
	return s.tracker.Unmark(ctx, userID, occ)
}

func (s *Service) resolveOccurrence(ctx context.Context, userID, kind, itemID, date string) (model.Occurrence, error) {
	if userID == "" {
		return model.Occurrence{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if itemID == "" {
		return model.Occurrence{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	day, err := identity.ParseDate(date)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	item, found, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	if !found || (item.OwnerID != userID && !item.Global) {
		return model.Occurrence{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Kind != k {
		return model.Occurrence{}, fmt.Errorf("%w: item %s is a %s, not a %s", ErrInvalidInput, itemID, item.Kind, k)
	}

	an, _ := s.analyze(item)
	return model.Occurrence{
		ItemKind: item.Kind,
		ItemID:   item.ID,
		ListID:   item.ListID,
		At:       day,
		Title:    an.Title,
	}, nil
}

// Ignore creates (or reactivates) an ignore scope for userID.
func (s *Service) Ignore(ctx context.Context, userID string, typ model.ScopeType, key string, cutoff *time.Time) (model.IgnoreScope, error) {
	scope, err := s.ignores.Ignore(ctx, userID, typ, key, cutoff)
	if errors.Is(err, ignore.ErrInvalidScope) || errors.Is(err, ignore.ErrNoUser) {
		return model.IgnoreScope{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return scope, err
}

// SetIgnoreActive toggles a scope without deleting it.
func (s *Service) SetIgnoreActive(ctx context.Context, userID, hash string, active bool) error {
	if hash == "" {
		return fmt.Errorf("%w: scope hash is required", ErrInvalidInput)
	}
	err := s.ignores.SetActive(ctx, userID, hash, active)
	if errors.Is(err, ignore.ErrNoUser) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return err
}
