package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sbb/config"
	"github.com/cppla/sbb/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey keeps the raw session token so logout can revoke it.
	ContextTokenKey = "session_token"
	// ContextClaimsKey keeps the parsed *utils.Claims.
	ContextClaimsKey = "session_claims"
)

// AuthRequired ensures the request carries a valid session token, either as a Bearer
// header or as the session cookie.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, code, msg := extractToken(ctx, config.Get().SessionCookie)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// extractToken prefers the Authorization header and falls back to the cookie.
func extractToken(ctx *gin.Context, cookieName string) (string, int, string) {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", 40102, "invalid authorization header format"
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return "", 40103, "empty bearer token"
		}
		return tokenString, 0, ""
	}

	if cookieName != "" {
		if c, err := ctx.Cookie(cookieName); err == nil && strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c), 0, ""
		}
	}
	return "", 40101, "authentication required"
}
