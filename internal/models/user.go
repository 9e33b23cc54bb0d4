package models

import "time"

// ProviderInfo is one linked sign-in provider of an identity.
type ProviderInfo struct {
	ProviderID string `json:"providerId"`
}

// Identity is what the identity oracle tells us about the caller. Only UID
// is trusted as a key.
type Identity struct {
	UID          string         `json:"uid"`
	Email        *string        `json:"email"`
	ProviderData []ProviderInfo `json:"providerData"`
}

// PrimaryProviderID returns the first provider id, or nil.
func (i Identity) PrimaryProviderID() *string {
	if len(i.ProviderData) == 0 || i.ProviderData[0].ProviderID == "" {
		return nil
	}
	id := i.ProviderData[0].ProviderID
	return &id
}

// UserProfile represents users/{uid}
type UserProfile struct {
	UID        string     `firestore:"uid" json:"uid"`
	Email      *string    `firestore:"email" json:"email"`
	ProviderID *string    `firestore:"providerId" json:"providerId"`
	Nickname   *string    `firestore:"nickname" json:"nickname"` // display form, casing preserved
	CreatedAt  *time.Time `firestore:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `firestore:"updatedAt" json:"updatedAt,omitempty"`
}

// NicknameClaim represents nicknames/{normalized}. Its UID is the single
// source of truth for who owns the nickname.
type NicknameClaim struct {
	UID        string     `firestore:"uid" json:"uid"`
	Nickname   string     `firestore:"nickname" json:"nickname"`
	Normalized string     `firestore:"normalized" json:"normalized"`
	UpdatedAt  *time.Time `firestore:"updatedAt" json:"updatedAt,omitempty"`
}

// SetNicknameRequest represents the set nickname request body
type SetNicknameRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}
