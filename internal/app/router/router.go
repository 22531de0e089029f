// Package router は各サービスの gin ルーティングを組み立てます。
package router

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	candleshandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/transport/handler"
	symbollisthandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/transport/handler"
	tokenhandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/transport/handler"
	jwtmw "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/jwt"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/metrics"
)

// NewQueryRouter は OHLCV 参照 API のルーターを生成します。
// 参照 API は読み取り専用のため認証は掛けません。
func NewQueryRouter(candles *candleshandler.CandlesHandler, analytics *candleshandler.AnalyticsHandler,
	symbol *symbollisthandler.SymbolHandler, m *metrics.HTTPMetrics, health gin.HandlerFunc, origins []string) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(origins))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", m.Handler())
	}

	// 導通確認用
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	r.GET("/symbols", symbol.List)
	r.GET("/ohlcv/:symbol", candles.GetOHLCVHandler)
	r.GET("/latest", candles.GetLatestHandler)
	r.GET("/historical", candles.GetHistoricalHandler)
	r.GET("/aggregate", candles.GetAggregateHandler)
	// 旧クライアント向けのパス形式 (symbol,interval,period)
	r.GET("/alfaquantz/price/get/*params", candles.GetAggregateHandler)

	// 分析用 CSV からの日次統計
	a := r.Group("/analytics")
	{
		a.GET("/stats", analytics.GetStatsHandler)
		a.GET("/summary", analytics.GetSummaryHandler)
		a.GET("/range", analytics.GetRangeHandler)
		a.GET("/top-movers", analytics.GetTopMoversHandler)
	}

	return r
}

// NewTokenRouter はトークン生成 Web のルーターを生成します。
// フォーム画面以外は運用者 JWT を必須にします。
func NewTokenRouter(tokens *tokenhandler.TokenHandler, m *metrics.HTTPMetrics, health gin.HandlerFunc) *gin.Engine {
	r := gin.Default()
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", m.Handler())
	}

	// 認証不要
	r.GET("/healthz", health)
	r.GET("/", tokens.Index)

	// 認証必須のルート
	auth := r.Group("/tokens")
	auth.Use(jwtmw.AuthRequired())
	{
		auth.POST("", tokens.Generate)
		auth.POST("/refresh", tokens.Refresh)
		auth.GET("/status", tokens.Status)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
