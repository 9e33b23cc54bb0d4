package repository

import (
	"context"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
)

const (
	usersCollection     = "users"
	nicknamesCollection = "nicknames"
)

// ProfilePath is users/{uid}.
func ProfilePath(uid string) docstore.Path {
	return docstore.Doc(usersCollection, uid)
}

// ClaimPath is nicknames/{normalized}.
func ClaimPath(normalized string) docstore.Path {
	return docstore.Doc(nicknamesCollection, normalized)
}

type UserRepository struct {
	store docstore.Store
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{
		store: store,
	}
}

// DecodeProfile converts a users/{uid} snapshot. It returns nil for a
// missing document.
func DecodeProfile(snap *docstore.Snapshot) *models.UserProfile {
	if snap == nil || !snap.Exists {
		return nil
	}
	d := snap.Data
	uid, _ := d.String("uid")
	if uid == "" {
		uid = snap.ID()
	}
	return &models.UserProfile{
		UID:        uid,
		Email:      d.StringPtr("email"),
		ProviderID: d.StringPtr("providerId"),
		Nickname:   d.StringPtr("nickname"),
		CreatedAt:  d.TimePtr("createdAt"),
		UpdatedAt:  d.TimePtr("updatedAt"),
	}
}

// DecodeClaim converts a nicknames/{normalized} snapshot. It returns nil for
// a missing document.
func DecodeClaim(snap *docstore.Snapshot) *models.NicknameClaim {
	if snap == nil || !snap.Exists {
		return nil
	}
	d := snap.Data
	uid, _ := d.String("uid")
	nickname, _ := d.String("nickname")
	normalized, _ := d.String("normalized")
	if normalized == "" {
		normalized = snap.ID()
	}
	return &models.NicknameClaim{
		UID:        uid,
		Nickname:   nickname,
		Normalized: normalized,
		UpdatedAt:  d.TimePtr("updatedAt"),
	}
}

// NewProfileData is the document written when a profile is first created.
func NewProfileData(id models.Identity) docstore.Data {
	return docstore.Data{
		"uid":        id.UID,
		"email":      id.Email,
		"providerId": id.PrimaryProviderID(),
		"nickname":   nil,
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
	}
}

// GetProfile retrieves a profile by uid, or nil when it does not exist
func (r *UserRepository) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	snap, err := r.store.Get(ctx, ProfilePath(uid))
	if err != nil {
		return nil, err
	}
	return DecodeProfile(snap), nil
}

// GetClaim retrieves the claim for a normalized nickname, or nil when free
func (r *UserRepository) GetClaim(ctx context.Context, normalized string) (*models.NicknameClaim, error) {
	snap, err := r.store.Get(ctx, ClaimPath(normalized))
	if err != nil {
		return nil, err
	}
	return DecodeClaim(snap), nil
}

// ListenProfile opens a listener on users/{uid}
func (r *UserRepository) ListenProfile(ctx context.Context, uid string) (docstore.Iterator, error) {
	return r.store.Listen(ctx, ProfilePath(uid))
}
