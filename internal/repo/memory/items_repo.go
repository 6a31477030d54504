package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
)

type ItemsRepo struct {
	mu    sync.RWMutex
	items map[oid.ID]item.Item
	now   func() time.Time
}

func NewItemsRepo() *ItemsRepo {
	return &ItemsRepo{
		items: make(map[oid.ID]item.Item),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *ItemsRepo) Create(_ context.Context, it item.Item) (item.Item, error) {
	if it.ID.IsZero() {
		it.ID = oid.New()
	}

	now := r.now()
	it.CreatedAt = &now
	it.UpdatedAt = &now

	r.mu.Lock()
	r.items[it.ID] = it
	r.mu.Unlock()

	return it, nil
}

func (r *ItemsRepo) List(_ context.Context, f item.ListFilter) ([]item.Item, int64, error) {
	r.mu.RLock()
	matched := make([]item.Item, 0, len(r.items))
	for _, it := range r.items {
		if f.Matches(it) {
			matched = append(matched, it)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(matched)

	total := int64(len(matched))

	start := max(f.Offset, 0)
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if f.Limit > 0 && f.Limit < end-start {
		end = start + f.Limit
	}

	return matched[start:end], total, nil
}

func (r *ItemsRepo) GetByID(_ context.Context, id oid.ID) (item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}

	return it, nil
}

func (r *ItemsRepo) Update(_ context.Context, id oid.ID, p item.Patch) (item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}

	p.Apply(&it, r.now())
	r.items[id] = it

	return it, nil
}

func (r *ItemsRepo) Delete(_ context.Context, id oid.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return item.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *ItemsRepo) ListLowStock(_ context.Context, threshold int64) ([]item.Item, error) {
	r.mu.RLock()
	out := make([]item.Item, 0)
	for _, it := range r.items {
		if it.Quantity <= threshold {
			out = append(out, it)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// Stats returns the unrounded total value; rounding belongs to the stats service.
func (r *ItemsRepo) Stats(_ context.Context) (item.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s item.Stats

	// categories keep first-seen order before the stable sort
	all := make([]item.Item, 0, len(r.items))
	for _, it := range r.items {
		all = append(all, it)
	}
	sortOldestFirst(all)

	index := make(map[string]int)
	for _, it := range all {
		s.TotalItems++
		if it.Quantity <= item.LowStockThreshold {
			s.LowStockItems++
		}
		s.TotalValue += float64(it.Quantity) * it.Price

		pos, ok := index[it.Category]
		if !ok {
			var cat *string
			if it.Category != "" {
				c := it.Category
				cat = &c
			}
			s.Categories = append(s.Categories, item.CategoryCount{Category: cat})
			pos = len(s.Categories) - 1
			index[it.Category] = pos
		}
		s.Categories[pos].Count++
	}

	if s.Categories == nil {
		s.Categories = []item.CategoryCount{}
	}
	item.SortCategories(s.Categories)

	return s, nil
}

func (r *ItemsRepo) Ping(context.Context) error {
	return nil
}

func sortNewestFirst(items []item.Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
}

func sortOldestFirst(items []item.Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}

func createdAt(it item.Item) time.Time {
	if it.CreatedAt == nil {
		return time.Time{}
	}
	return *it.CreatedAt
}
