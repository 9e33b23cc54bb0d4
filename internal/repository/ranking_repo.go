package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
)

const (
	rankingsCollection  = "externalRankings"
	snapshotsCollection = "snapshots"
	worksCollection     = "works"
)

// SnapshotsPath is externalRankings/{platform}/snapshots.
func SnapshotsPath(platform string) docstore.Path {
	return docstore.Doc(rankingsCollection, platform, snapshotsCollection)
}

// SnapshotPath is externalRankings/{platform}/snapshots/{date}.
func SnapshotPath(platform, date string) docstore.Path {
	return SnapshotsPath(platform).Child(date)
}

// SnapshotItemsPath is the items collection of one snapshot.
func SnapshotItemsPath(platform, date string) docstore.Path {
	return SnapshotPath(platform, date).Child(itemsCollection)
}

// WorkPath is works/{platform}_{id}.
func WorkPath(platform, id string) docstore.Path {
	return docstore.Doc(worksCollection, models.WorkKey(platform, id))
}

// RankingRepository reads the ranking projections written by the ingestion
// pipeline. It never writes.
type RankingRepository struct {
	store docstore.Store
}

func NewRankingRepository(store docstore.Store) *RankingRepository {
	return &RankingRepository{
		store: store,
	}
}

// DecodeWork converts a ranking item or works/ document. Fields of the
// wrong type decode as nil. fallbackID is used when the document has no id.
func DecodeWork(snap *docstore.Snapshot, platform, fallbackID string) *models.Work {
	if snap == nil || !snap.Exists {
		return nil
	}
	d := snap.Data
	w := &models.Work{
		Platform:  platform,
		ID:        fallbackID,
		Title:     d.StringPtr("title"),
		Author:    d.StringPtr("author"),
		Thumbnail: d.StringPtr("thumbnail"),
		Weekday:   d.StringPtr("weekday"),
		Link:      d.StringPtr("link"),
		Rating:    floatPtr(d, "rating"),
		Rank:      floatPtr(d, "rank"),
		Tags:      cleanTags(d),
	}
	switch v := d["id"].(type) {
	case string:
		w.ID = v
	case int64:
		w.ID = strconv.FormatInt(v, 10)
	case float64:
		w.ID = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return w
}

func floatPtr(d docstore.Data, key string) *float64 {
	if v, ok := d.Float(key); ok {
		return &v
	}
	return nil
}

func cleanTags(d docstore.Data) []string {
	raw, ok := d.Strings("tags")
	if !ok {
		return nil
	}
	var tags []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// LatestSnapshotDate returns the id of the newest snapshot, "" when none
func (r *RankingRepository) LatestSnapshotDate(ctx context.Context, platform string) (string, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: SnapshotsPath(platform),
		Desc:       true,
		Limit:      1,
	})
	if err != nil || len(snaps) == 0 {
		return "", err
	}
	return snaps[0].ID(), nil
}

// SnapshotItems returns the first take items of a snapshot by document id
func (r *RankingRepository) SnapshotItems(ctx context.Context, platform, date string, take int) ([]*models.Work, error) {
	return r.queryItems(ctx, platform, docstore.Query{
		Collection: SnapshotItemsPath(platform, date),
		Limit:      take,
	})
}

// SnapshotItemsByWeekday returns up to limit items of one weekday, unsorted
func (r *RankingRepository) SnapshotItemsByWeekday(ctx context.Context, platform, date, weekday string, limit int) ([]*models.Work, error) {
	q := docstore.Query{
		Collection: SnapshotItemsPath(platform, date),
		Limit:      limit,
	}
	return r.queryItems(ctx, platform, q.Where("weekday", weekday))
}

func (r *RankingRepository) queryItems(ctx context.Context, platform string, q docstore.Query) ([]*models.Work, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	works := make([]*models.Work, 0, len(snaps))
	for _, snap := range snaps {
		if w := DecodeWork(snap, platform, ""); w != nil {
			works = append(works, w)
		}
	}
	return works, nil
}

// GetWork retrieves works/{platform}_{id}, or nil when it does not exist
func (r *RankingRepository) GetWork(ctx context.Context, platform, id string) (*models.Work, error) {
	snap, err := r.store.Get(ctx, WorkPath(platform, id))
	if err != nil {
		return nil, err
	}
	return DecodeWork(snap, platform, id), nil
}

// GetSnapshotMeta retrieves a snapshot document, or nil when it does not exist
func (r *RankingRepository) GetSnapshotMeta(ctx context.Context, platform, date string) (*models.SnapshotMeta, error) {
	snap, err := r.store.Get(ctx, SnapshotPath(platform, date))
	if err != nil || !snap.Exists {
		return nil, err
	}
	meta := &models.SnapshotMeta{Date: date}
	if n, ok := snap.Data.Int("count"); ok {
		c := int(n)
		meta.Count = &c
	}
	return meta, nil
}
