package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/utils"
)

const (
	// SessionCookieName is the cookie carrying the browser session token.
	SessionCookieName = "classboard_session"
	// ContextUserIDKey is the gin context key for the authenticated user id.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey is the gin context key for the username.
	ContextUsernameKey = "username"
)

// SessionClaims resolves the caller's session from the Authorization header
// or the session cookie. Any failure (missing, expired, undecodable,
// revoked) reads as "no session".
func SessionClaims(ctx *gin.Context) (*utils.Claims, bool) {
	token := bearerToken(ctx)
	if token == "" {
		if c, err := ctx.Cookie(SessionCookieName); err == nil {
			token = c
		}
	}
	if token == "" {
		return nil, false
	}
	if utils.IsTokenBlacklisted(token) {
		return nil, false
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func bearerToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired rejects unauthenticated API requests with 401.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := SessionClaims(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// RequirePrivileged allows only teacher and admin accounts through. Must run
// after AuthRequired. The role comes from the user row, never from the
// token, so demotions apply immediately.
func RequirePrivileged(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.GetString(ContextUserIDKey)
		if userID == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "authentication required")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "account not found")
			ctx.Abort()
			return
		}
		if !user.Role.Privileged() {
			utils.Error(ctx, http.StatusForbidden, 40301, "teacher or admin access required")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
