package services

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
	"github.com/hunyoung529/onepick/pkg/utils"
)

// DefaultCommentLimit is how many comments a listing returns.
const DefaultCommentLimit = 50

type CommentService struct {
	store    docstore.Store
	comments *repository.CommentRepository
	users    *repository.UserRepository
	logger   *slog.Logger
	newID    func() string
}

func NewCommentService(store docstore.Store, logger *slog.Logger) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{
		store:    store,
		comments: repository.NewCommentRepository(store),
		users:    repository.NewUserRepository(store),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// AddComment posts a comment on a work. The author's display name is their
// nickname, else their email, else their uid.
func (s *CommentService) AddComment(ctx context.Context, workKey string, id models.Identity, text string) (*models.Comment, error) {
	text, err := utils.NormalizeCommentText(text)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if err := validateUID(id.UID); err != nil {
		return nil, err
	}
	if err := docstore.ValidateID(workKey); err != nil {
		return nil, invalidInput("work key: %v", err)
	}

	profile, err := s.users.GetProfile(ctx, id.UID)
	if err != nil {
		return nil, storeError("add comment", err)
	}
	name := id.UID
	switch {
	case profile != nil && profile.Nickname != nil:
		name = *profile.Nickname
	case id.Email != nil && *id.Email != "":
		name = *id.Email
	}

	ref := models.CommentRef{WorkKey: workKey, CommentID: s.newID()}
	err = s.store.Set(ctx, repository.CommentPath(ref), docstore.Data{
		"uid":       id.UID,
		"nickname":  name,
		"text":      text,
		"createdAt": docstore.ServerTimestamp,
		"updatedAt": docstore.ServerTimestamp,
		"upCount":   0,
		"downCount": 0,
	})
	if err != nil {
		return nil, storeError("add comment", err)
	}

	s.logger.Info("comment added", "workKey", workKey, "commentId", ref.CommentID, "uid", id.UID)
	return s.GetComment(ctx, ref)
}

// mutateOwn runs fn inside a transaction after checking that the comment
// exists and belongs to uid.
func (s *CommentService) mutateOwn(ctx context.Context, ref models.CommentRef, uid string, fn func(tx docstore.Tx, p docstore.Path) error) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		p := repository.CommentPath(ref)
		snap, err := tx.Get(p)
		if err != nil {
			return err
		}
		comment := repository.DecodeComment(snap)
		if comment == nil {
			return ErrNotFound
		}
		if comment.UID != uid {
			return ErrPermissionDenied
		}
		return fn(tx, p)
	})
}

// EditComment replaces the text of the caller's own comment. Vote counters
// are left alone.
func (s *CommentService) EditComment(ctx context.Context, ref models.CommentRef, uid, text string) (*models.Comment, error) {
	text, err := utils.NormalizeCommentText(text)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if err := validateUID(uid); err != nil {
		return nil, err
	}
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	err = s.mutateOwn(ctx, ref, uid, func(tx docstore.Tx, p docstore.Path) error {
		return tx.Set(p, docstore.Data{
			"text":      text,
			"updatedAt": docstore.ServerTimestamp,
		}, docstore.MergeAll)
	})
	if err != nil {
		return nil, storeError("edit comment", err)
	}
	return s.GetComment(ctx, ref)
}

// DeleteComment removes the caller's own comment
func (s *CommentService) DeleteComment(ctx context.Context, ref models.CommentRef, uid string) error {
	if err := validateUID(uid); err != nil {
		return err
	}
	if err := validateRef(ref); err != nil {
		return err
	}

	err := s.mutateOwn(ctx, ref, uid, func(tx docstore.Tx, p docstore.Path) error {
		return tx.Delete(p)
	})
	if err != nil {
		return storeError("delete comment", err)
	}
	s.logger.Info("comment deleted", "workKey", ref.WorkKey, "commentId", ref.CommentID, "uid", uid)
	return nil
}

// GetComment returns one comment or ErrNotFound
func (s *CommentService) GetComment(ctx context.Context, ref models.CommentRef) (*models.Comment, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetComment(ctx, ref)
	if err != nil {
		return nil, storeError("get comment", err)
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	comment.WorkKey = ref.WorkKey
	return comment, nil
}

// ListComments returns the newest limit comments of a work. SortTop
// reorders them by score, keeping newest first among equal scores.
func (s *CommentService) ListComments(ctx context.Context, workKey string, order models.CommentSort, limit int) ([]*models.Comment, error) {
	if err := docstore.ValidateID(workKey); err != nil {
		return nil, invalidInput("work key: %v", err)
	}
	if limit <= 0 {
		limit = DefaultCommentLimit
	}

	comments, err := s.comments.ListComments(ctx, workKey, limit)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	if order == models.SortTop {
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].Score() > comments[j].Score()
		})
	}
	return comments, nil
}

// FillMyVotes sets MyVote on each comment to uid's stance
func (s *CommentService) FillMyVotes(ctx context.Context, comments []*models.Comment, uid string) error {
	if uid == "" {
		return nil
	}
	for _, c := range comments {
		v, err := s.comments.GetVote(ctx, c.Ref(), uid)
		if err != nil {
			return storeError("list votes", err)
		}
		c.MyVote = v
	}
	return nil
}
