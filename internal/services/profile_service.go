package services

import (
	"context"
	"log/slog"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
	"github.com/hunyoung529/onepick/pkg/utils"
)

// ProfileService owns user profiles and the nickname claim registry. A
// nickname maps to at most one uid: the claim document nicknames/{normalized}
// is only written inside SetNickname's transaction.
type ProfileService struct {
	store  docstore.Store
	users  *repository.UserRepository
	logger *slog.Logger
}

func NewProfileService(store docstore.Store, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		store:  store,
		users:  repository.NewUserRepository(store),
		logger: logger,
	}
}

func validateUID(uid string) error {
	if uid == "" {
		return invalidInput("uid is required")
	}
	if err := docstore.ValidateID(uid); err != nil {
		return invalidInput("uid: %v", err)
	}
	return nil
}

// EnsureProfile creates users/{uid} with a null nickname if it does not
// exist yet. Concurrent calls create the document exactly once.
func (s *ProfileService) EnsureProfile(ctx context.Context, id models.Identity) error {
	if err := validateUID(id.UID); err != nil {
		return err
	}

	existing, err := s.users.GetProfile(ctx, id.UID)
	if err != nil {
		return storeError("ensure profile", err)
	}
	if existing != nil {
		return nil
	}

	var created bool
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		created = false
		snap, err := tx.Get(repository.ProfilePath(id.UID))
		if err != nil {
			return err
		}
		if snap.Exists {
			return nil
		}
		created = true
		return tx.Set(repository.ProfilePath(id.UID), repository.NewProfileData(id))
	})
	if err != nil {
		return storeError("ensure profile", err)
	}
	if created {
		s.logger.Info("profile created", "uid", id.UID)
	}
	return nil
}

// SetNickname claims raw for the caller and releases the caller's previous
// claim, all in one transaction. The comparison is case-insensitive; the
// display casing is kept.
func (s *ProfileService) SetNickname(ctx context.Context, id models.Identity, raw string) (*models.UserProfile, error) {
	nickname, normalized := utils.NormalizeNickname(raw)
	if err := utils.ValidateNickname(normalized); err != nil {
		return nil, invalidInput("%v", err)
	}
	if err := validateUID(id.UID); err != nil {
		return nil, err
	}

	var (
		previous string
		written  *models.UserProfile
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		profilePath := repository.ProfilePath(id.UID)
		profileSnap, err := tx.Get(profilePath)
		if err != nil {
			return err
		}
		current := repository.DecodeProfile(profileSnap)

		previous = ""
		if current != nil && current.Nickname != nil {
			_, previous = utils.NormalizeNickname(*current.Nickname)
		}

		claimPath := repository.ClaimPath(normalized)
		claimSnap, err := tx.Get(claimPath)
		if err != nil {
			return err
		}
		if claim := repository.DecodeClaim(claimSnap); claim != nil && claim.UID != id.UID {
			return ErrNicknameTaken
		}

		// Only release an old claim we can still prove is ours.
		releaseOld := false
		if previous != "" && previous != normalized && utils.ValidateNickname(previous) == nil {
			oldSnap, err := tx.Get(repository.ClaimPath(previous))
			if err != nil {
				return err
			}
			if old := repository.DecodeClaim(oldSnap); old != nil && old.UID == id.UID {
				releaseOld = true
			}
		}

		if releaseOld {
			if err := tx.Delete(repository.ClaimPath(previous)); err != nil {
				return err
			}
		}
		if err := tx.Set(claimPath, docstore.Data{
			"uid":        id.UID,
			"nickname":   nickname,
			"normalized": normalized,
			"updatedAt":  docstore.ServerTimestamp,
		}, docstore.MergeAll); err != nil {
			return err
		}

		profile := docstore.Data{
			"uid":        id.UID,
			"email":      id.Email,
			"providerId": id.PrimaryProviderID(),
			"nickname":   nickname,
			"updatedAt":  docstore.ServerTimestamp,
		}
		if current == nil {
			profile["createdAt"] = docstore.ServerTimestamp
		}
		written = &models.UserProfile{
			UID:        id.UID,
			Email:      id.Email,
			ProviderID: id.PrimaryProviderID(),
			Nickname:   &nickname,
		}
		if current != nil {
			written.CreatedAt = current.CreatedAt
		}
		return tx.Set(profilePath, profile, docstore.MergeAll)
	})
	if err != nil {
		return nil, storeError("set nickname", err)
	}

	s.logger.Info("nickname claimed", "uid", id.UID, "nickname", nickname, "previous", previous)

	// The claim is committed; a failed re-read only costs the server timestamps.
	profile, err := s.GetProfile(ctx, id.UID)
	if err != nil || profile == nil {
		s.logger.Warn("re-read after nickname claim failed", "uid", id.UID, "error", err)
		return written, nil
	}
	return profile, nil
}

// GetProfile returns the profile of uid, or nil when there is none
func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	profile, err := s.users.GetProfile(ctx, uid)
	if err != nil {
		return nil, storeError("get profile", err)
	}
	return profile, nil
}

// SubscribeProfile calls onChange with the current profile (nil when absent)
// before returning, then on every change until Unsubscribe.
func (s *ProfileService) SubscribeProfile(ctx context.Context, uid string, onChange func(*models.UserProfile)) (*Subscription, error) {
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	it, err := s.users.ListenProfile(ctx, uid)
	if err != nil {
		return nil, storeError("subscribe profile", err)
	}
	sub, err := subscribe(it, repository.DecodeProfile, onChange, s.logger.With("uid", uid))
	if err != nil {
		return nil, storeError("subscribe profile", err)
	}
	return sub, nil
}

// LookupNickname returns the claim on raw, or nil when it is free
func (s *ProfileService) LookupNickname(ctx context.Context, raw string) (*models.NicknameClaim, error) {
	_, normalized := utils.NormalizeNickname(raw)
	if err := utils.ValidateNickname(normalized); err != nil {
		return nil, invalidInput("%v", err)
	}
	claim, err := s.users.GetClaim(ctx, normalized)
	if err != nil {
		return nil, storeError("lookup nickname", err)
	}
	return claim, nil
}
