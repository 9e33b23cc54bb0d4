package models

import (
	"fmt"
	"strings"
	"time"
)

// CommentRef locates comments/{workKey}/items/{commentId}
type CommentRef struct {
	WorkKey   string `json:"workKey"`
	CommentID string `json:"commentId"`
}

// Comment represents a comment on a work plus its vote counters
type Comment struct {
	ID        string     `firestore:"-" json:"id"`
	WorkKey   string     `firestore:"-" json:"workKey"`
	UID       string     `firestore:"uid" json:"uid"`
	Nickname  string     `firestore:"nickname" json:"nickname"`
	Text      string     `firestore:"text" json:"text"`
	CreatedAt *time.Time `firestore:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `firestore:"updatedAt" json:"updatedAt,omitempty"`
	UpCount   int        `firestore:"upCount" json:"upCount"`
	DownCount int        `firestore:"downCount" json:"downCount"`
	MyVote    int        `firestore:"-" json:"myVote"` // caller's stance, filled per request
}

// Ref returns the comment's location.
func (c *Comment) Ref() CommentRef {
	return CommentRef{WorkKey: c.WorkKey, CommentID: c.ID}
}

// Score is up minus down.
func (c *Comment) Score() int {
	return c.UpCount - c.DownCount
}

// CommentSort selects the ordering of a comment listing
type CommentSort string

const (
	SortLatest CommentSort = "latest"
	SortTop    CommentSort = "top"
)

// VoteDirection is the direction of a cast vote
type VoteDirection int

const (
	VoteDown VoteDirection = -1
	VoteUp   VoteDirection = 1
)

// ParseVoteDirection accepts "up" and "down".
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	}
	return 0, fmt.Errorf("unknown vote direction %q", s)
}

func (d VoteDirection) String() string {
	switch d {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	}
	return fmt.Sprintf("VoteDirection(%d)", int(d))
}

// CommentVote represents comments/{workKey}/items/{commentId}/votes/{uid}.
// Value 0 means no vote; a missing document reads the same.
type CommentVote struct {
	UID       string     `firestore:"uid" json:"uid"`
	Value     int        `firestore:"value" json:"value"`
	UpdatedAt *time.Time `firestore:"updatedAt" json:"updatedAt,omitempty"`
}

// VoteResult is the state after a committed vote
type VoteResult struct {
	Value     int `json:"value"`
	UpCount   int `json:"upCount"`
	DownCount int `json:"downCount"`
}

// CommentRequest represents the add/edit comment request body
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// VoteRequest represents the cast vote request body
type VoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}
