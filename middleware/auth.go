package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studieren/mindjournal/auth"
	"github.com/studieren/mindjournal/logger"
)

const ctxUserID = "auth_user_id"

// UserID 返回当前请求的登录用户
func UserID(c *gin.Context) (string, bool) {
	v := c.GetString(ctxUserID)
	return v, v != ""
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens *auth.TokenIssuer
}

func NewAuthMiddleware(log *logger.Logger, tokens *auth.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// Authenticate 没带 token 直接放行；带了但无效返回 401
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := am.tokens.Parse(token)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abortJSON(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set(ctxUserID, claims.Subject)
		c.Next()
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			abortJSON(c, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
