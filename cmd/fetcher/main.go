// Command fetcher は5分ごとに全銘柄の5分足を取得し、生データとして保存します。
// Lambda 上では EventBridge のスケジュールから呼ばれ、ローカルでは1回だけ実行します。
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/di"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/ratelimiter"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	in, err := di.NewInfra(context.Background(), true)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := in.Close(); err != nil {
			slog.Error("failed to close connections", "error", err)
		}
	}()

	uc, err := newIngestUsecase(in)
	if err != nil {
		slog.Error("failed to build fetcher", "error", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(func(ctx context.Context) (usecase.IngestResult, error) {
			return uc.Run(ctx)
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.Config.FetchBudget+time.Minute)
	defer cancel()
	res, err := uc.Run(ctx)
	if err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(res)
}

func newIngestUsecase(in *di.Infra) (*usecase.IngestUsecase, error) {
	cfg := in.Config
	raw, err := di.NewRawStore(cfg, in.Session, in.DB, in.Redis, in.Window.Location)
	if err != nil {
		return nil, err
	}
	params, err := di.NewParameterStore(cfg, in.Session, in.DB)
	if err != nil {
		return nil, err
	}
	tokens := di.NewTokenUsecase(cfg, params, in.Notifier)
	limiter := ratelimiter.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, cfg.CallDelay)

	return usecase.NewIngestUsecase(di.NewMarket(cfg, in.Window), tokens, raw, in.Notifier, limiter, usecase.IngestConfig{
		Symbols:           cfg.Symbols,
		Window:            in.Window,
		CheckTradingHours: cfg.CheckTradingHours,
		Budget:            cfg.FetchBudget,
		Demo:              cfg.DemoMode,
	}), nil
}
