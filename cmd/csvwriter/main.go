// Command csvwriter は1日分の生データを銘柄ごとの分析用 CSV に変換します。
// Lambda では {"date": "YYYY-MM-DD"} を受け取り、省略時は市場タイムゾーンの前日を処理します。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/di"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// Event は Lambda の入力イベントです。
type Event struct {
	Date string `json:"date"`
}

func main() {
	date := flag.String("date", "", "date to export (YYYY-MM-DD); defaults to yesterday in the market timezone")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	in, err := di.NewInfra(context.Background(), false)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := in.Close(); err != nil {
			slog.Error("failed to close connections", "error", err)
		}
	}()

	uc, err := newExportUsecase(in)
	if err != nil {
		slog.Error("failed to build csv writer", "error", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(func(ctx context.Context, ev Event) (usecase.ExportResult, error) {
			return uc.Run(ctx, ev.Date)
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.Config.ExportBudget+time.Minute)
	defer cancel()
	res, err := uc.Run(ctx, *date)
	// タイムアウト時も途中までの件数を出力する
	_ = json.NewEncoder(os.Stdout).Encode(res)
	if err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func newExportUsecase(in *di.Infra) (*usecase.ExportUsecase, error) {
	raw, err := di.NewRawStore(in.Config, in.Session, in.DB, nil, in.Window.Location)
	if err != nil {
		return nil, err
	}
	out, err := di.NewAnalyticsStore(in.Config, in.Session)
	if err != nil {
		return nil, err
	}
	return usecase.NewExportUsecase(raw, out, in.Notifier, usecase.ExportConfig{
		Location: in.Window.Location,
		Budget:   in.Config.ExportBudget,
	}), nil
}
