package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"trohub/app/internal/auth"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
	"trohub/app/internal/utils"
)

const (
	// ContextKeyActor holds the authenticated services.Actor in Gin context.
	ContextKeyActor = "actor"
)

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
}

// AuthMiddleware creates a Gin middleware for JWT bearer authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c)
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			zap.S().Debugf("Rejected token from %s: %v", c.ClientIP(), err)
			unauthorized(c)
			return
		}

		// ValidateJWT has already checked the user id.
		userID, _ := utils.ParseSixID(claims.UserID)
		actor := services.Actor{UserID: userID, Role: claims.Role}
		if claims.OwnerID != "" {
			if ownerID, err := utils.ParseSixID(claims.OwnerID); err == nil {
				actor.OwnerID = ownerID
			}
		}
		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

// ActorFrom returns the actor AuthMiddleware stored, or the zero actor.
func ActorFrom(c *gin.Context) services.Actor {
	if v, ok := c.Get(ContextKeyActor); ok {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	return services.Actor{}
}

// IsAuthenticated reports whether AuthMiddleware accepted the request.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeyActor)
	return ok
}

// RequireRole only lets the listed roles through. Assumes AuthMiddleware runs first.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "You do not have permission to perform this action"})
	}
}

// AdminMiddleware requires the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
