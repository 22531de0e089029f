package jwtmw

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextOperator は検証済みトークンの sub を格納するコンテキストキーです。
const ContextOperator = "operator"

// AuthRequired は運用者 JWT を検証するミドルウェアです。
// ヘッダー不備と不正トークンは401、スコープ不足は403、署名鍵の未設定は500で中断します。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		// 署名鍵はリクエストごとに環境変数から読む
		secret := os.Getenv(EnvKeyJWTSecret)
		if secret == "" {
			slog.Error("JWT_SECRET is not set")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		claims, err := ParseOperator(secret, tokenStr)
		switch {
		case errors.Is(err, ErrInsufficientScope):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
			return
		case err != nil:
			slog.Warn("rejected operator token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextOperator, claims.Subject)
		c.Next()
	}
}
