package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/database"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

// RequireAPIKey authenticates the request via the X-API-Key header. Either
// of the user's two keys is accepted.
func RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(constants.APIKeyHeader)
		if key == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		authService := services.NewAuthService(
			repository.NewUserRepository(database.GetDB()),
			repository.NewAPIKeyRepository(database.GetDB()),
		)

		user, err := authService.Authenticate(key)
		if err != nil {
			if errors.Is(err, services.ErrInvalidAPIKey) {
				apierrors.Unauthorized(c, "Invalid API key")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
