package adapters

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	tokenentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
)

// demoMarket は認証情報なしで動かすための疑似データ源です。
// 同じ銘柄・同じ日には常に同じローソク足を返します。
type demoMarket struct {
	window markethours.Window
	now    func() time.Time
}

var _ usecase.MarketRepository = (*demoMarket)(nil)

func NewDemoMarket(window markethours.Window) *demoMarket {
	return &demoMarket{window: window, now: time.Now}
}

// GetHistory は取引開始から現在時刻 (または取引終了) までの5分足を生成します。
func (m *demoMarket) GetHistory(ctx context.Context, _ tokenentity.CredentialSet, symbol string, day time.Time) ([]entity.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := m.window.Location
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	start := midnight.Add(m.window.Open)
	end := midnight.Add(m.window.Close)
	if now := m.now(); now.Before(end) {
		end = now
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(local.Format(time.DateOnly)))
	seed := h.Sum64()

	// 基準価格は 100.00 から 4999.99 の範囲
	price := decimal.New(int64(10000+seed%490000), -2)
	step := entity.BaseGranularity
	var out []entity.Candle
	for t, i := start, uint64(0); !t.Add(step).After(end); t, i = t.Add(step), i+1 {
		// 銘柄と時刻から決まる ±0.5% 以内の値動き
		x := (seed>>(i%48) + i*2654435761) % 1001
		move := price.Mul(decimal.New(int64(x)-500, -5))
		open := price
		closeP := price.Add(move).Round(2)
		high := decimal.Max(open, closeP).Add(open.Mul(decimal.New(1, -3))).Round(2)
		low := decimal.Min(open, closeP).Sub(open.Mul(decimal.New(1, -3))).Round(2)
		out = append(out, entity.Candle{
			Time:   t.Unix(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: int64(1000 + (seed+i*7919)%50000),
		})
		price = closeP
	}
	return out, nil
}
