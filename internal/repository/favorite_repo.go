package repository

import (
	"context"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
)

const favoritesCollection = "favorites"

// FavoritesPath is the favorites/{uid}/items collection.
func FavoritesPath(uid string) docstore.Path {
	return docstore.Doc(favoritesCollection, uid, itemsCollection)
}

// FavoritePath is favorites/{uid}/items/{workKey}.
func FavoritePath(uid, workKey string) docstore.Path {
	return FavoritesPath(uid).Child(workKey)
}

type FavoriteRepository struct {
	store docstore.Store
}

func NewFavoriteRepository(store docstore.Store) *FavoriteRepository {
	return &FavoriteRepository{
		store: store,
	}
}

// EncodeFavorite is the document written when a work is favorited.
func EncodeFavorite(w models.Work) docstore.Data {
	d := docstore.Data{
		"platform":  w.Platform,
		"id":        w.ID,
		"title":     w.Title,
		"author":    w.Author,
		"thumbnail": w.Thumbnail,
		"rating":    nil,
		"weekday":   w.Weekday,
		"link":      w.Link,
		"createdAt": docstore.ServerTimestamp,
		"updatedAt": docstore.ServerTimestamp,
	}
	if w.Rating != nil {
		d["rating"] = *w.Rating
	}
	return d
}

// DecodeFavorite converts a favorite snapshot, or returns nil when missing.
func DecodeFavorite(snap *docstore.Snapshot) *models.Favorite {
	if snap == nil || !snap.Exists {
		return nil
	}
	d := snap.Data
	f := &models.Favorite{
		Title:     d.StringPtr("title"),
		Author:    d.StringPtr("author"),
		Thumbnail: d.StringPtr("thumbnail"),
		Weekday:   d.StringPtr("weekday"),
		Link:      d.StringPtr("link"),
		CreatedAt: d.TimePtr("createdAt"),
		UpdatedAt: d.TimePtr("updatedAt"),
	}
	f.Platform, _ = d.String("platform")
	f.ID, _ = d.String("id")
	if r, ok := d.Float("rating"); ok {
		f.Rating = &r
	}
	return f
}

// IsFavorite reports whether uid has favorited the work
func (r *FavoriteRepository) IsFavorite(ctx context.Context, uid, workKey string) (bool, error) {
	snap, err := r.store.Get(ctx, FavoritePath(uid, workKey))
	if err != nil {
		return false, err
	}
	return snap.Exists, nil
}

// ListFavorites returns uid's favorites, most recent first
func (r *FavoriteRepository) ListFavorites(ctx context.Context, uid string) ([]*models.Favorite, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: FavoritesPath(uid),
		OrderBy:    "createdAt",
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}

	favorites := make([]*models.Favorite, 0, len(snaps))
	for _, snap := range snaps {
		if f := DecodeFavorite(snap); f != nil {
			favorites = append(favorites, f)
		}
	}
	return favorites, nil
}
