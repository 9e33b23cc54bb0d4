package repository

import (
	"context"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
)

const (
	commentsCollection = "comments"
	itemsCollection    = "items"
	votesCollection    = "votes"
)

// CommentsPath is the comments/{workKey}/items collection.
func CommentsPath(workKey string) docstore.Path {
	return docstore.Doc(commentsCollection, workKey, itemsCollection)
}

// CommentPath is comments/{workKey}/items/{commentId}.
func CommentPath(ref models.CommentRef) docstore.Path {
	return CommentsPath(ref.WorkKey).Child(ref.CommentID)
}

// VotePath is comments/{workKey}/items/{commentId}/votes/{uid}.
func VotePath(ref models.CommentRef, uid string) docstore.Path {
	return CommentPath(ref).Child(votesCollection, uid)
}

type CommentRepository struct {
	store docstore.Store
}

func NewCommentRepository(store docstore.Store) *CommentRepository {
	return &CommentRepository{
		store: store,
	}
}

// DecodeComment converts a comment snapshot. It returns nil for a missing
// document.
func DecodeComment(snap *docstore.Snapshot) *models.Comment {
	if snap == nil || !snap.Exists {
		return nil
	}
	d := snap.Data
	c := &models.Comment{
		ID:        snap.ID(),
		CreatedAt: d.TimePtr("createdAt"),
		UpdatedAt: d.TimePtr("updatedAt"),
	}
	if segs := snap.Path.Segments(); len(segs) == 4 {
		c.WorkKey = segs[1]
	}
	c.UID, _ = d.String("uid")
	c.Nickname, _ = d.String("nickname")
	c.Text, _ = d.String("text")
	up, _ := d.Int("upCount")
	down, _ := d.Int("downCount")
	c.UpCount, c.DownCount = int(up), int(down)
	return c
}

// DecodeVote returns the stored stance, 0 for a missing document. Any
// positive value reads as an upvote and any negative one as a downvote.
func DecodeVote(snap *docstore.Snapshot) int {
	if snap == nil || !snap.Exists {
		return 0
	}
	v, _ := snap.Data.Int("value")
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// GetComment retrieves a comment, or nil when it does not exist
func (r *CommentRepository) GetComment(ctx context.Context, ref models.CommentRef) (*models.Comment, error) {
	snap, err := r.store.Get(ctx, CommentPath(ref))
	if err != nil {
		return nil, err
	}
	return DecodeComment(snap), nil
}

// ListComments returns the newest comments of a work, newest first
func (r *CommentRepository) ListComments(ctx context.Context, workKey string, limit int) ([]*models.Comment, error) {
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: CommentsPath(workKey),
		OrderBy:    "createdAt",
		Desc:       true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	comments := make([]*models.Comment, 0, len(snaps))
	for _, snap := range snaps {
		if c := DecodeComment(snap); c != nil {
			c.WorkKey = workKey
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// GetVote retrieves a voter's stance on a comment
func (r *CommentRepository) GetVote(ctx context.Context, ref models.CommentRef, uid string) (int, error) {
	snap, err := r.store.Get(ctx, VotePath(ref, uid))
	if err != nil {
		return 0, err
	}
	return DecodeVote(snap), nil
}

// ListenVote opens a listener on a voter's vote document
func (r *CommentRepository) ListenVote(ctx context.Context, ref models.CommentRef, uid string) (docstore.Iterator, error) {
	return r.store.Listen(ctx, VotePath(ref, uid))
}
