package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

const (
	userKey   = "user"
	claimsKey = "claims"
)

// AuthMiddleware validates the bearer token and loads its user into the context
func AuthMiddleware(secret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogDebug("Missing Authorization header on %s", c.Request.URL.Path)
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			tokenString = strings.TrimPrefix(authHeader, "Token ")
		}
		if tokenString == authHeader || tokenString == "" {
			utils.LogDebug("Invalid Authorization header format")
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.LogDebug("Invalid token: %v", err)
			utils.Unauthorized(c, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).Preload("Profile").First(&user, claims.UserID).Error; err != nil {
			utils.LogError("Token user %d not found: %v", claims.UserID, err)
			utils.Unauthorized(c, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.LogError("Inactive user attempted access: %d", user.ID)
			utils.Forbidden(c, utils.ErrAccountInactive)
			c.Abort()
			return
		}

		// the stored role wins over the one baked into an older token
		claims.Role = user.Profile.Role
		c.Set(userKey, user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRoles admits only users whose role is one of roles. Must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}

		utils.LogError("User %d with role %s denied access to %s", claims.UserID, claims.Role, c.FullPath())
		utils.Forbidden(c, utils.MsgForbidden)
		c.Abort()
	}
}

// CurrentUser returns the authenticated user
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// Claims returns the authenticated token claims, or nil
func Claims(c *gin.Context) *utils.TokenClaims {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil
	}
	claims, _ := v.(*utils.TokenClaims)
	return claims
}
