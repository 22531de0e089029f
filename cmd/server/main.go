// Command server は保存済みの生データと分析用 CSV を参照する OHLCV クエリ API を提供します。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/di"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/router"
	candleshandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/transport/handler"
	candlesusecase "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	symbollisthandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/transport/handler"
	symbollistusecase "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/usecase"
	infrahttp "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http"
	httphandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http/handler"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/metrics"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := di.NewInfra(ctx, true)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := in.Close(); err != nil {
			slog.Error("failed to close connections", "error", err)
		}
	}()
	cfg := in.Config

	// Repository (Redis が使える場合はキャッシュでラップ)
	raw, err := di.NewRawStore(cfg, in.Session, in.DB, in.Redis, in.Window.Location)
	if err != nil {
		slog.Error("failed to create raw store", "error", err)
		os.Exit(1)
	}
	csvStore, err := di.NewAnalyticsStore(cfg, in.Session)
	if err != nil {
		slog.Error("failed to create analytics store", "error", err)
		os.Exit(1)
	}

	// Usecase
	candlesUC := candlesusecase.NewCandlesUsecase(raw, candlesusecase.QueryConfig{
		Location:     in.Window.Location,
		LookbackDays: cfg.QueryLookbackDays,
		DocsPerDay:   cfg.QueryDocsPerDay,
	})
	symbolUC := symbollistusecase.NewSymbolUsecase(candlesUC)
	analyticsUC := candlesusecase.NewAnalyticsUsecase(csvStore, in.Window.Location)

	// Handler
	candlesH := candleshandler.NewCandlesHandler(candlesUC)
	analyticsH := candleshandler.NewAnalyticsHandler(analyticsUC)
	symbolH := symbollisthandler.NewSymbolHandler(symbolUC)

	// ルータ生成
	r := router.NewQueryRouter(candlesH, analyticsH, symbolH, metrics.New("ohlcv_query", nil),
		httphandler.Health("ohlcv-query", in.HealthChecks()), cfg.CORSOrigins)

	if err := infrahttp.Serve(ctx, ":"+cfg.Port, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
