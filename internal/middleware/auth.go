package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/models"
)

const identityKey = "identity"

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// IdentityFromToken converts a verified ID token into an Identity
func IdentityFromToken(tok *auth.Token) models.Identity {
	id := models.Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok && email != "" {
		id.Email = &email
	}
	if fb, ok := tok.Claims["firebase"].(map[string]interface{}); ok {
		if provider, ok := fb["sign_in_provider"].(string); ok && provider != "" {
			id.ProviderData = []models.ProviderInfo{{ProviderID: provider}}
		}
	}
	return id
}

func bearerToken(c *gin.Context) (token string, present bool, errMsg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false, "authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", true, "invalid authorization header format"
	}
	if parts[1] == "" {
		return "", true, "token is required"
	}
	return parts[1], true, ""
}

func authenticate(c *gin.Context, verifier TokenVerifier, required bool) {
	token, present, errMsg := bearerToken(c)
	if !present && !required {
		c.Next()
		return
	}
	if errMsg != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": errMsg})
		c.Abort()
		return
	}

	tok, err := verifier.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
		c.Abort()
		return
	}

	// Store the caller in context for use in handlers
	c.Set(identityKey, IdentityFromToken(tok))
	c.Next()
}

// AuthMiddleware rejects requests without a valid Firebase ID token
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, verifier, true)
	}
}

// OptionalAuth sets the identity when a token is sent. Requests without an
// Authorization header pass through anonymously; a bad token is still
// rejected.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, verifier, false)
	}
}

// GetIdentity returns the identity set by AuthMiddleware or OptionalAuth
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}
