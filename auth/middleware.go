package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

const (
	ctxUserID    = "userID"
	ctxUserEmail = "userEmail"
	ctxUserName  = "userName"
)

// ProfileEnsurer legt beim ersten Request das Profil eines Nutzers an.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID, fullName, email string) (*models.Profile, error)
}

// RoleChecker prüft die Rollen eines Nutzers.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, userID string, roles ...models.Role) (bool, error)
}

// Middleware verlangt ein gültiges Bearer-Token und legt die Nutzerdaten im Context ab.
func Middleware(secret, issuer string, profiles ProfileEnsurer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := ValidateToken(parts[1], secret, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if profiles != nil {
			if _, err := profiles.EnsureProfile(c.Request.Context(), claims.Subject, claims.Name, claims.Email); err != nil {
				logger.Error("Failed to ensure profile", zap.String("user_id", claims.Subject), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
				return
			}
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserName, claims.Name)
		c.Next()
	}
}

// RequireRole lässt nur Nutzer mit mindestens einer der Rollen durch.
func RequireRole(checker RoleChecker, logger *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := checker.HasAnyRole(c.Request.Context(), UserID(c), roles...)
		if err != nil {
			logger.Error("Failed to check roles", zap.String("user_id", UserID(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check roles"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// UserID liefert die User-ID des angemeldeten Nutzers.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
