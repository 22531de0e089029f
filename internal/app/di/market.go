// Package di provides dependency injection factories for creating application components.
package di

import (
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/config"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/adapters"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	tokenusecase "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/externalapi/fyers"
	infrahttp "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
)

// NewMarket creates the candle source for the fetcher.
// In demo mode it returns a synthetic market, otherwise a Fyers history client.
func NewMarket(cfg config.Config, window markethours.Window) usecase.MarketRepository {
	if cfg.DemoMode {
		return adapters.NewDemoMarket(window)
	}
	fc := fyers.LoadConfig()
	return fyers.NewHistoryClient(fc, infrahttp.NewHTTPClient(fc.Timeout))
}

// NewTokenUsecase wires the credential lifecycle to the Fyers auth API.
func NewTokenUsecase(cfg config.Config, store tokenusecase.ParameterStore, notifier tokenusecase.Notifier) *tokenusecase.TokenUsecase {
	fc := fyers.LoadConfig()
	api := fyers.NewAuthClient(fc, infrahttp.NewHTTPClient(fc.Timeout))
	return tokenusecase.NewTokenUsecase(store, api, notifier, cfg.Project)
}
