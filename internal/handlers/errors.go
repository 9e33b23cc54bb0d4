package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/middleware"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/services"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{services.ErrNicknameTaken, http.StatusConflict, "nickname_taken"},
	{services.ErrSelfVoteForbidden, http.StatusForbidden, "self_vote_forbidden"},
	{services.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

// writeError maps a service error to its HTTP status
func writeError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.code, "message": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": msg})
}

// requireIdentity returns the authenticated caller or writes 401
func requireIdentity(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok || id.UID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Identity{}, false
	}
	return id, true
}
