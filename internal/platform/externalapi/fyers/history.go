package fyers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	tokenentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/externalapi/fyers/dto"
)

// Fyers のトークン系エラーコード (-8: 期限切れ, -15: 無効, -16: 認証不可, -17: 失効)
var authErrorCodes = map[int]bool{-8: true, -15: true, -16: true, -17: true}

// HistoryClient は Fyers の /data/history から5分足を取得する MarketRepository 実装です。
type HistoryClient struct {
	cfg    Config
	client *http.Client
}

// HistoryClient が MarketRepository を実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*HistoryClient)(nil)

// NewHistoryClient は指定された設定とHTTPクライアントで HistoryClient を生成します。
func NewHistoryClient(cfg Config, client *http.Client) *HistoryClient {
	return &HistoryClient{cfg: cfg, client: client}
}

// GetHistory は指定日の symbol のローソク足を取得します。
// 401/403 またはトークンエラーは domain.ErrAuthExpired、タイムアウトは domain.ErrUpstreamTimeout をラップして返します。
func (h *HistoryClient) GetHistory(ctx context.Context, creds tokenentity.CredentialSet, symbol string, day time.Time) ([]entity.Candle, error) {
	date := day.Format(time.DateOnly)
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", h.cfg.Resolution)
	q.Set("date_format", "1")
	q.Set("range_from", date)
	q.Set("range_to", date)
	q.Set("cont_flag", "1")

	u := fmt.Sprintf("%s/data/history?%s", h.cfg.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", creds.Authorization())
	req.Header.Set("version", "3")

	res, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: fyers history %s: %w", domain.ErrUpstreamTimeout, symbol, err)
		}
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: fyers http %d", domain.ErrAuthExpired, res.StatusCode)
	case res.StatusCode == http.StatusGatewayTimeout || res.StatusCode == http.StatusRequestTimeout:
		return nil, fmt.Errorf("%w: fyers http %d", domain.ErrUpstreamTimeout, res.StatusCode)
	case res.StatusCode >= 400:
		return nil, fmt.Errorf("fyers http %d", res.StatusCode)
	}

	// JSONレスポンスをDTOにデコード
	var body dto.HistoryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: fyers history body: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("decode fyers history: %w", err)
	}
	switch body.S {
	case "ok":
	case "no_data":
		return []entity.Candle{}, nil
	default:
		if authErrorCodes[body.Code] || strings.Contains(strings.ToLower(body.Message), "token") {
			return nil, fmt.Errorf("%w: fyers %d %s", domain.ErrAuthExpired, body.Code, body.Message)
		}
		return nil, fmt.Errorf("fyers: %d %s", body.Code, body.Message)
	}

	candles := make([]entity.Candle, 0, len(body.Candles))
	for i, row := range body.Candles {
		c, err := toCandle(row)
		if err != nil {
			return nil, fmt.Errorf("candle %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// toCandle は [epoch, o, h, l, c, v] の1行をドメインエンティティに変換します。
func toCandle(row []json.Number) (entity.Candle, error) {
	if len(row) < 6 {
		return entity.Candle{}, fmt.Errorf("expected 6 fields, got %d", len(row))
	}
	ts, err := decimal.NewFromString(row[0].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse timestamp %q: %w", row[0], err)
	}
	o, err := decimal.NewFromString(row[1].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse open %q: %w", row[1], err)
	}
	hi, err := decimal.NewFromString(row[2].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse high %q: %w", row[2], err)
	}
	l, err := decimal.NewFromString(row[3].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse low %q: %w", row[3], err)
	}
	c, err := decimal.NewFromString(row[4].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse close %q: %w", row[4], err)
	}
	v, err := decimal.NewFromString(row[5].String())
	if err != nil {
		return entity.Candle{}, fmt.Errorf("parse volume %q: %w", row[5], err)
	}
	vol, err := entity.VolumeFromDecimal(v)
	if err != nil {
		return entity.Candle{}, err
	}
	return entity.Candle{
		Time:   ts.IntPart(),
		Open:   o,
		High:   hi,
		Low:    l,
		Close:  c,
		Volume: vol,
	}, nil
}

// isTimeout はネットワークタイムアウトまたは期限超過かを判定します。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
