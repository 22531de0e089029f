// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check は依存先（Redis、DBなど）の疎通を確認する関数です。
type Check func(ctx context.Context) error

// checkTimeout は各依存先チェックの上限時間です。
const checkTimeout = 2 * time.Second

// Health はサービスヘルスチェック用の /healthz エンドポイントを返します。
// checks のいずれかが失敗した場合は503と失敗した依存先名を返します。
func Health(service string, checks map[string]Check) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		failed := map[string]string{}
		for _, n := range names {
			ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
			if err := checks[n](ctx); err != nil {
				failed[n] = err.Error()
			}
			cancel()
		}

		status := http.StatusOK
		body := gin.H{"status": "ok", "service": service, "timestamp": time.Now().UTC().Format(time.RFC3339)}
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["failed"] = failed
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		c.JSON(status, body)
	}
}
