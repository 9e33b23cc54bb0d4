package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// EnsureProfile creates the caller's profile on first sign-in
func (h *ProfileHandler) EnsureProfile(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.profileService.EnsureProfile(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), id.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetProfile returns the caller's profile, null when none exists yet
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), id.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// StreamProfile pushes the caller's profile on every change
func (h *ProfileHandler) StreamProfile(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	streamUpdates(c, "profile", func(ctx context.Context, onChange func(*models.UserProfile)) (*services.Subscription, error) {
		return h.profileService.SubscribeProfile(ctx, id.UID, onChange)
	})
}

// SetNickname claims a nickname for the caller
func (h *ProfileHandler) SetNickname(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.SetNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.SetNickname(c.Request.Context(), id, req.Nickname)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// LookupNickname reports whether a nickname is taken and by whom
func (h *ProfileHandler) LookupNickname(c *gin.Context) {
	claim, err := h.profileService.LookupNickname(c.Request.Context(), c.Param("nickname"))
	if err != nil {
		writeError(c, err)
		return
	}
	if claim == nil {
		c.JSON(http.StatusOK, gin.H{"available": true, "claim": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": false, "claim": claim})
}
