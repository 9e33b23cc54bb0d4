package services

import (
	"context"
	"log/slog"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
)

// VoteService keeps each comment's upCount/downCount equal to the number
// of +1/-1 vote documents under it.
type VoteService struct {
	store    docstore.Store
	comments *repository.CommentRepository
	logger   *slog.Logger
}

func NewVoteService(store docstore.Store, logger *slog.Logger) *VoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{
		store:    store,
		comments: repository.NewCommentRepository(store),
		logger:   logger,
	}
}

// NextVoteValue returns the stance after casting dir: the same direction
// twice retracts the vote.
func NextVoteValue(prev int, dir models.VoteDirection) int {
	if prev == int(dir) {
		return 0
	}
	return int(dir)
}

// ApplyVoteTransition moves the counters from stance prev to stance next.
// Counters never go below zero; clamped reports that one would have.
func ApplyVoteTransition(up, down, prev, next int) (newUp, newDown int, clamped bool) {
	switch prev {
	case 1:
		up--
	case -1:
		down--
	}
	switch next {
	case 1:
		up++
	case -1:
		down++
	}
	if up < 0 {
		up, clamped = 0, true
	}
	if down < 0 {
		down, clamped = 0, true
	}
	return up, down, clamped
}

func validateRef(ref models.CommentRef) error {
	if err := docstore.ValidateID(ref.WorkKey); err != nil {
		return invalidInput("work key: %v", err)
	}
	if err := docstore.ValidateID(ref.CommentID); err != nil {
		return invalidInput("comment id: %v", err)
	}
	return nil
}

// CastVote toggles or switches voterUID's vote on a comment and updates the
// comment's counters in the same transaction.
func (s *VoteService) CastVote(ctx context.Context, ref models.CommentRef, authorUID, voterUID string, dir models.VoteDirection) (*models.VoteResult, error) {
	if err := validateUID(voterUID); err != nil {
		return nil, err
	}
	if authorUID == voterUID {
		return nil, ErrSelfVoteForbidden
	}
	if dir != models.VoteUp && dir != models.VoteDown {
		return nil, invalidInput("unknown vote direction %d", int(dir))
	}
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	var (
		result  models.VoteResult
		prev    int
		clamped bool
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		votePath := repository.VotePath(ref, voterUID)
		commentPath := repository.CommentPath(ref)

		voteSnap, err := tx.Get(votePath)
		if err != nil {
			return err
		}
		prev = repository.DecodeVote(voteSnap)

		commentSnap, err := tx.Get(commentPath)
		if err != nil {
			return err
		}
		comment := repository.DecodeComment(commentSnap)
		if comment == nil {
			return ErrNotFound
		}
		if comment.UID == voterUID {
			return ErrSelfVoteForbidden
		}

		next := NextVoteValue(prev, dir)
		var up, down int
		up, down, clamped = ApplyVoteTransition(comment.UpCount, comment.DownCount, prev, next)

		if err := tx.Set(votePath, docstore.Data{
			"uid":       voterUID,
			"value":     next,
			"updatedAt": docstore.ServerTimestamp,
		}, docstore.MergeAll); err != nil {
			return err
		}
		if err := tx.Set(commentPath, docstore.Data{
			"upCount":   up,
			"downCount": down,
			"updatedAt": docstore.ServerTimestamp,
		}, docstore.MergeAll); err != nil {
			return err
		}

		result = models.VoteResult{Value: next, UpCount: up, DownCount: down}
		return nil
	})
	if err != nil {
		return nil, storeError("cast vote", err)
	}

	if clamped {
		s.logger.Warn("vote counters clamped at zero",
			"workKey", ref.WorkKey, "commentId", ref.CommentID, "voter", voterUID, "previous", prev)
	}
	return &result, nil
}

// GetVote returns voterUID's stance on a comment: 1, -1 or 0
func (s *VoteService) GetVote(ctx context.Context, ref models.CommentRef, voterUID string) (int, error) {
	if err := validateUID(voterUID); err != nil {
		return 0, err
	}
	if err := validateRef(ref); err != nil {
		return 0, err
	}
	v, err := s.comments.GetVote(ctx, ref, voterUID)
	if err != nil {
		return 0, storeError("get vote", err)
	}
	return v, nil
}

// SubscribeVote calls onChange with voterUID's current stance, then on
// every change until Unsubscribe.
func (s *VoteService) SubscribeVote(ctx context.Context, ref models.CommentRef, voterUID string, onChange func(int)) (*Subscription, error) {
	if err := validateUID(voterUID); err != nil {
		return nil, err
	}
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	it, err := s.comments.ListenVote(ctx, ref, voterUID)
	if err != nil {
		return nil, storeError("subscribe vote", err)
	}
	sub, err := subscribe(it, repository.DecodeVote, onChange, s.logger.With("commentId", ref.CommentID, "voter", voterUID))
	if err != nil {
		return nil, storeError("subscribe vote", err)
	}
	return sub, nil
}
