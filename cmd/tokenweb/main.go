// Command tokenweb はブローカーの auth code からトークンを生成する運用者向け Web を提供します。
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
	tokenhandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/transport/handler"
	infrahttp "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http"
	httphandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http/handler"
	jwtmw "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/jwt"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/metrics"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	// JWT_SECRET が無いと全ての更新系リクエストが500になる
	if os.Getenv(jwtmw.EnvKeyJWTSecret) == "" {
		slog.Warn("JWT_SECRET is not set. Token endpoints will reject every request.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := di.NewInfra(ctx, false)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := in.Close(); err != nil {
			slog.Error("failed to close connections", "error", err)
		}
	}()

	params, err := di.NewParameterStore(in.Config, in.Session, in.DB)
	if err != nil {
		slog.Error("failed to create parameter store", "error", err)
		os.Exit(1)
	}
	tokenUC := di.NewTokenUsecase(in.Config, params, in.Notifier)

	r := router.NewTokenRouter(tokenhandler.NewTokenHandler(tokenUC), metrics.New("ohlcv_tokenweb", nil),
		httphandler.Health("ohlcv-tokenweb", in.HealthChecks()))

	if err := infrahttp.Serve(ctx, ":"+in.Config.Port, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
