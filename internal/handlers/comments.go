package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/middleware"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
	voteService    *services.VoteService
}

func NewCommentHandler(commentService *services.CommentService, voteService *services.VoteService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		voteService:    voteService,
	}
}

func workKey(c *gin.Context) string {
	return models.WorkKey(c.Param("platform"), c.Param("id"))
}

func commentRef(c *gin.Context) models.CommentRef {
	return models.CommentRef{WorkKey: workKey(c), CommentID: c.Param("commentId")}
}

// ListComments returns the newest comments of a work. Authenticated callers
// also get their own vote on each comment.
func (h *CommentHandler) ListComments(c *gin.Context) {
	order := models.SortLatest
	switch c.DefaultQuery("sort", string(models.SortLatest)) {
	case string(models.SortLatest):
	case string(models.SortTop):
		order = models.SortTop
	default:
		badRequest(c, "sort must be latest or top")
		return
	}

	limit := services.DefaultCommentLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= services.DefaultCommentLimit {
			limit = l
		}
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), workKey(c), order, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if id, ok := middleware.GetIdentity(c); ok {
		if err := h.commentService.FillMyVotes(c.Request.Context(), comments, id.UID); err != nil {
			writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// AddComment posts a comment as the caller
func (h *CommentHandler) AddComment(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), workKey(c), id, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// EditComment replaces the text of the caller's comment
func (h *CommentHandler) EditComment(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.EditComment(c.Request.Context(), commentRef(c), id.UID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment removes the caller's comment
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), commentRef(c), id.UID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CastVote toggles or switches the caller's vote on a comment
func (h *CommentHandler) CastVote(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dir, err := models.ParseVoteDirection(req.Direction)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ref := commentRef(c)
	comment, err := h.commentService.GetComment(c.Request.Context(), ref)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.voteService.CastVote(c.Request.Context(), ref, comment.UID, id.UID, dir)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVote returns the caller's stance on a comment
func (h *CommentHandler) GetVote(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	value, err := h.voteService.GetVote(c.Request.Context(), commentRef(c), id.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value})
}

// StreamVote pushes the caller's stance on a comment on every change
func (h *CommentHandler) StreamVote(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	ref := commentRef(c)
	streamUpdates(c, "vote", func(ctx context.Context, onChange func(int)) (*services.Subscription, error) {
		return h.voteService.SubscribeVote(ctx, ref, id.UID, onChange)
	})
}
