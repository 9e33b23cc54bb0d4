package services

import (
	"context"
	"log/slog"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
)

type FavoriteService struct {
	store     docstore.Store
	favorites *repository.FavoriteRepository
	logger    *slog.Logger
}

func NewFavoriteService(store docstore.Store, logger *slog.Logger) *FavoriteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FavoriteService{
		store:     store,
		favorites: repository.NewFavoriteRepository(store),
		logger:    logger,
	}
}

func validateWork(platform, id string) (string, error) {
	if platform == "" || id == "" {
		return "", invalidInput("platform and id are required")
	}
	key := models.WorkKey(platform, id)
	if err := docstore.ValidateID(key); err != nil {
		return "", invalidInput("work: %v", err)
	}
	return key, nil
}

// ToggleFavorite adds the work to uid's favorites, or removes it if it is
// already there. It reports whether the work is a favorite afterwards.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, uid string, w models.Work) (bool, error) {
	if err := validateUID(uid); err != nil {
		return false, err
	}
	key, err := validateWork(w.Platform, w.ID)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		p := repository.FavoritePath(uid, key)
		snap, err := tx.Get(p)
		if err != nil {
			return err
		}
		added = !snap.Exists
		if snap.Exists {
			return tx.Delete(p)
		}
		return tx.Set(p, repository.EncodeFavorite(w))
	})
	if err != nil {
		return false, storeError("toggle favorite", err)
	}

	s.logger.Debug("favorite toggled", "uid", uid, "workKey", key, "added", added)
	return added, nil
}

// IsFavorite reports whether uid has favorited the work
func (s *FavoriteService) IsFavorite(ctx context.Context, uid, platform, id string) (bool, error) {
	if err := validateUID(uid); err != nil {
		return false, err
	}
	key, err := validateWork(platform, id)
	if err != nil {
		return false, err
	}
	ok, err := s.favorites.IsFavorite(ctx, uid, key)
	if err != nil {
		return false, storeError("is favorite", err)
	}
	return ok, nil
}

// ListFavorites returns uid's favorites, most recently added first
func (s *FavoriteService) ListFavorites(ctx context.Context, uid string) ([]*models.Favorite, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	favorites, err := s.favorites.ListFavorites(ctx, uid)
	if err != nil {
		return nil, storeError("list favorites", err)
	}
	return favorites, nil
}
