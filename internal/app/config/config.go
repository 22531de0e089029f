// Package config はパイプライン全体の設定を環境変数から読み込みます。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
)

// ストアの種類
const (
	StoreS3  = "s3"
	StoreSSM = "ssm"
	StoreDB  = "db"
	StoreFS  = "fs"
)

// Config はパイプラインの設定です。
type Config struct {
	Project string `validate:"required"`

	RawStore        string `validate:"oneof=s3 db"`
	AnalyticsStore  string `validate:"oneof=s3 fs"`
	CredentialStore string `validate:"oneof=ssm db"`
	Bucket          string `validate:"required_if=RawStore s3"`
	AnalyticsBucket string `validate:"required_if=AnalyticsStore s3"`
	AnalyticsDir    string `validate:"required_if=AnalyticsStore fs"`
	TopicARN        string

	Symbols           []string `validate:"min=1,dive,required"`
	Timezone          string   `validate:"required"`
	TradingDays       string   `validate:"required"`
	MarketOpen        string   `validate:"required"`
	MarketClose       string   `validate:"required"`
	CheckTradingHours bool
	DemoMode          bool

	FetchBudget        time.Duration `validate:"gt=0"`
	ExportBudget       time.Duration `validate:"gt=0"`
	RateLimitPerMinute int           `validate:"gte=0"`
	CallDelay          time.Duration `validate:"gte=0"`

	QueryLookbackDays int           `validate:"gte=1"`
	QueryDocsPerDay   int           `validate:"gte=1"`
	CacheDocTTL       time.Duration `validate:"gte=0"`
	CORSOrigins       []string

	Port string `validate:"required,numeric"`
}

// Load は環境変数から設定を読み込み、検証します。
func Load() (Config, error) {
	cfg := Config{
		Project:         getEnv("PROJECT_NAME", "ohlcv"),
		RawStore:        getEnv("RAW_STORE", StoreS3),
		AnalyticsStore:  getEnv("ANALYTICS_STORE", StoreS3),
		CredentialStore: getEnv("CREDENTIAL_STORE", StoreSSM),
		Bucket:          os.Getenv("S3_BUCKET"),
		AnalyticsDir:    os.Getenv("ANALYTICS_DIR"),
		TopicARN:        os.Getenv("SNS_TOPIC_ARN"),

		Symbols:     entity.ParseSymbols(os.Getenv("SYMBOLS")),
		Timezone:    getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),
		TradingDays: getEnv("TRADING_DAYS", "Mon-Fri"),
		MarketOpen:  getEnv("MARKET_OPEN", "09:15"),
		MarketClose: getEnv("MARKET_CLOSE", "15:30"),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}
	cfg.AnalyticsBucket = getEnv("ANALYTICS_BUCKET", cfg.Bucket)

	var err error
	if cfg.CheckTradingHours, err = getBool("ENABLE_TRADING_HOURS_CHECK", true); err != nil {
		return Config{}, err
	}
	if cfg.DemoMode, err = getBool("DEMO_MODE", false); err != nil {
		return Config{}, err
	}
	if cfg.FetchBudget, err = getDuration("FETCH_BUDGET", 4*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ExportBudget, err = getDuration("EXPORT_BUDGET", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CallDelay, err = getDuration("API_CALL_DELAY", 200*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CacheDocTTL, err = getDuration("CACHE_DOC_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return Config{}, err
	}
	if cfg.QueryLookbackDays, err = getInt("QUERY_LOOKBACK_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.QueryDocsPerDay, err = getInt("QUERY_DOCS_PER_DAY", 6); err != nil {
		return Config{}, err
	}

	if len(cfg.Symbols) == 0 {
		cfg.Symbols = append([]string(nil), entity.DefaultSymbols...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Window(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Window は市場の取引時間帯を返します。
func (c Config) Window() (markethours.Window, error) {
	return markethours.New(c.Timezone, c.TradingDays, c.MarketOpen, c.MarketClose)
}

// NeedsDB は RDB を使うストアが選択されているかを返します。
func (c Config) NeedsDB() bool {
	return c.RawStore == StoreDB || c.CredentialStore == StoreDB
}

// NeedsAWS は AWS のクライアントが必要かを返します。
func (c Config) NeedsAWS() bool {
	return c.RawStore == StoreS3 || c.AnalyticsStore == StoreS3 || c.CredentialStore == StoreSSM || c.TopicARN != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
