package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnalyticsPrefix is the key prefix of every analytics CSV object.
const AnalyticsPrefix = "analytics/csv/"

// CSVHeader is the fixed column header of analytics CSV files.
var CSVHeader = []string{
	"symbol", "symbol_clean", "timestamp_unix", "timestamp_iso",
	"open", "high", "low", "close", "volume",
	"resolution", "fetch_timestamp", "year", "month", "day", "hour",
}

// CsvRow is one flattened candle with its partition fields.
type CsvRow struct {
	Symbol     string
	Candle     Candle
	Resolution string
	FetchedAt  time.Time
}

// Record renders the row in CSVHeader order. Calendar fields use loc.
func (r CsvRow) Record(loc *time.Location) []string {
	start := r.Candle.Start()
	local := start.In(loc)
	return []string{
		r.Symbol,
		CleanSymbol(r.Symbol),
		strconv.FormatInt(r.Candle.Time, 10),
		start.Format(time.RFC3339),
		r.Candle.Open.String(),
		r.Candle.High.String(),
		r.Candle.Low.String(),
		r.Candle.Close.String(),
		strconv.FormatInt(r.Candle.Volume, 10),
		r.Resolution,
		r.FetchedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(local.Year()),
		fmt.Sprintf("%02d", int(local.Month())),
		fmt.Sprintf("%02d", local.Day()),
		fmt.Sprintf("%02d", local.Hour()),
	}
}

// AnalyticsKey returns analytics/csv/symbol={CLEAN}/year=YYYY/month=MM/day=DD/data_YYYYMMDD.csv.gz.
// The key depends only on symbol and date so reruns overwrite the same object.
func AnalyticsKey(symbol string, day time.Time) string {
	return fmt.Sprintf("%ssymbol=%s/year=%04d/month=%02d/day=%02d/data_%s.csv.gz",
		AnalyticsPrefix, CleanSymbol(symbol), day.Year(), int(day.Month()), day.Day(), day.Format("20060102"))
}

// ParseAnalyticsKey returns the clean symbol and YYYY-MM-DD date of an AnalyticsKey.
func ParseAnalyticsKey(key string) (symbol, date string, ok bool) {
	rest, ok := strings.CutPrefix(key, AnalyticsPrefix)
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 5 || !strings.HasSuffix(parts[4], ".csv.gz") {
		return "", "", false
	}
	var fields [4]string
	for i, name := range []string{"symbol=", "year=", "month=", "day="} {
		v, found := strings.CutPrefix(parts[i], name)
		if !found || v == "" {
			return "", "", false
		}
		fields[i] = v
	}
	date = fields[1] + "-" + fields[2] + "-" + fields[3]
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", "", false
	}
	return fields[0], date, true
}
