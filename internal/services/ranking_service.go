package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
)

const (
	// DefaultTake is the number of ranking items returned when none is asked for.
	DefaultTake = 30
	// weekdayFetchMin is the minimum page read before sorting by rank.
	weekdayFetchMin = 50
)

// RankingService reads the ranking projections. They are written by the
// ingestion pipeline only, so results are cached for a short TTL.
type RankingService struct {
	rankings *repository.RankingRepository
	cache    *expirable.LRU[string, any]
	logger   *slog.Logger
}

func NewRankingService(store docstore.Store, cacheSize int, ttl time.Duration, logger *slog.Logger) *RankingService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return &RankingService{
		rankings: repository.NewRankingRepository(store),
		cache:    expirable.NewLRU[string, any](cacheSize, nil, ttl),
		logger:   logger,
	}
}

func cached[T any](s *RankingService, op, key string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := load()
	if err != nil {
		return t, storeError(op, err)
	}
	s.cache.Add(key, t)
	return t, nil
}

func validateSegment(name, v string) error {
	if err := docstore.ValidateID(v); err != nil {
		return invalidInput("%s: %v", name, err)
	}
	return nil
}

// LatestSnapshotDate returns the newest snapshot date of a platform, ""
// when there is none
func (s *RankingService) LatestSnapshotDate(ctx context.Context, platform string) (string, error) {
	if err := validateSegment("platform", platform); err != nil {
		return "", err
	}
	return cached(s, "latest snapshot", "latest/"+platform, func() (string, error) {
		return s.rankings.LatestSnapshotDate(ctx, platform)
	})
}

// SnapshotItems returns the first take items of a snapshot
func (s *RankingService) SnapshotItems(ctx context.Context, platform, date string, take int) ([]*models.Work, error) {
	if err := validateSegment("platform", platform); err != nil {
		return nil, err
	}
	if err := validateSegment("date", date); err != nil {
		return nil, err
	}
	if take <= 0 {
		take = DefaultTake
	}
	key := fmt.Sprintf("items/%s/%s/%d", platform, date, take)
	return cached(s, "snapshot items", key, func() ([]*models.Work, error) {
		return s.rankings.SnapshotItems(ctx, platform, date, take)
	})
}

// SnapshotItemsByWeekday returns the take best ranked items of one weekday.
// Items without a rank sort last.
func (s *RankingService) SnapshotItemsByWeekday(ctx context.Context, platform, date, weekday string, take int) ([]*models.Work, error) {
	if err := validateSegment("platform", platform); err != nil {
		return nil, err
	}
	if err := validateSegment("date", date); err != nil {
		return nil, err
	}
	if take <= 0 {
		take = DefaultTake
	}
	key := fmt.Sprintf("weekday/%s/%s/%s/%d", platform, date, weekday, take)
	return cached(s, "snapshot items", key, func() ([]*models.Work, error) {
		items, err := s.rankings.SnapshotItemsByWeekday(ctx, platform, date, weekday, max(weekdayFetchMin, take))
		if err != nil {
			return nil, err
		}
		SortByRank(items)
		if len(items) > take {
			items = items[:take]
		}
		return items, nil
	})
}

// SortByRank orders works by ascending rank with unranked works last.
func SortByRank(items []*models.Work) {
	rank := func(w *models.Work) float64 {
		if w.Rank == nil {
			return math.Inf(1)
		}
		return *w.Rank
	}
	sort.SliceStable(items, func(i, j int) bool {
		return rank(items[i]) < rank(items[j])
	})
}

// WorkByID returns works/{platform}_{id}, or nil when it does not exist
func (s *RankingService) WorkByID(ctx context.Context, platform, id string) (*models.Work, error) {
	if _, err := validateWork(platform, id); err != nil {
		return nil, err
	}
	return cached(s, "get work", "work/"+models.WorkKey(platform, id), func() (*models.Work, error) {
		return s.rankings.GetWork(ctx, platform, id)
	})
}

// SnapshotMeta returns the metadata of one snapshot, or nil when it does
// not exist
func (s *RankingService) SnapshotMeta(ctx context.Context, platform, date string) (*models.SnapshotMeta, error) {
	if err := validateSegment("platform", platform); err != nil {
		return nil, err
	}
	if err := validateSegment("date", date); err != nil {
		return nil, err
	}
	return cached(s, "snapshot meta", "meta/"+platform+"/"+date, func() (*models.SnapshotMeta, error) {
		return s.rankings.GetSnapshotMeta(ctx, platform, date)
	})
}
