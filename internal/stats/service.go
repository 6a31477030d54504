// Package stats derives read-only inventory figures from the item store.
package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/geocoder89/inventoryhub/internal/cache"
	"github.com/geocoder89/inventoryhub/internal/domain/item"
)

const (
	cacheKey   = "stats:v1"
	versionKey = "stats:v1:version"
)

type Source interface {
	Stats(ctx context.Context) (item.Stats, error)
	ListLowStock(ctx context.Context, threshold int64) ([]item.Item, error)
}

type Service struct {
	src   Source
	cache cache.Store
}

// NewService builds the aggregator; a nil cache disables caching.
func NewService(src Source, c cache.Store) *Service {
	return &Service{src: src, cache: c}
}

// Compute returns the totals with TotalValue rounded to cents.
//
// Cached figures live under the version current when the load started, so a
// load that races with Invalidate can only write to a key that is already dead.
func (s *Service) Compute(ctx context.Context) (item.Stats, error) {
	key, cached := s.versionedKey(ctx)

	if cached {
		if b, ok := s.cache.Get(ctx, key); ok {
			var st item.Stats
			if err := json.Unmarshal(b, &st); err == nil {
				return st, nil
			}
		}
	}

	st, err := s.src.Stats(ctx)
	if err != nil {
		return item.Stats{}, err
	}

	st.TotalValue = item.RoundMoney(st.TotalValue)
	if st.Categories == nil {
		st.Categories = []item.CategoryCount{}
	}

	if cached {
		b, err := json.Marshal(st)
		if err != nil {
			slog.WarnContext(ctx, "stats cache encode failed", "err", err)
		} else {
			s.cache.Set(ctx, key, b)
		}
	}

	return st, nil
}

// versionedKey reports false when there is no cache or its version is unreadable.
func (s *Service) versionedKey(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	v, err := s.cache.Version(ctx, versionKey)
	if err != nil {
		slog.WarnContext(ctx, "stats cache version read failed", "err", err)
		return "", false
	}

	return cacheKey + ":" + strconv.FormatInt(v, 10), true
}

// Invalidate retires the cached figures; call after any item mutation.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Bump(ctx, versionKey); err != nil {
		slog.WarnContext(ctx, "stats cache invalidation failed", "err", err)
	}
}

func (s *Service) LowStock(ctx context.Context, threshold int64) ([]item.Item, error) {
	return s.src.ListLowStock(ctx, threshold)
}
