package di

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/config"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/adapters"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
	tokenadapters "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/adapters"
	tokenusecase "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/cache"
	infradb "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/db"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/notify"
)

// fetch cadence used to expire cached listings of the current day
const fetchSlot = 5 * time.Minute

var (
	errNoSession = errors.New("aws session is required for this store")
	errNoDB      = errors.New("database is required for this store")
)

// NewDB opens the relational database when a db-backed store is configured.
// It returns nil when no store needs it.
func NewDB(cfg config.Config) (*gorm.DB, error) {
	if !cfg.NeedsDB() {
		return nil, nil
	}
	return infradb.OpenDB(infradb.LoadConfigFromEnv(), &adapters.RawDocumentModel{}, &tokenadapters.ParameterModel{})
}

// NewRawStore creates the raw document store selected by RAW_STORE.
// If rdb is non-nil, reads are cached in Redis.
func NewRawStore(cfg config.Config, sess *session.Session, db *gorm.DB, rdb *redis.Client, loc *time.Location) (usecase.RawStore, error) {
	var inner usecase.RawStore
	switch cfg.RawStore {
	case config.StoreDB:
		if db == nil {
			return nil, errNoDB
		}
		inner = adapters.NewRawStoreGorm(db)
	default:
		if sess == nil {
			return nil, errNoSession
		}
		inner = adapters.NewRawStoreS3(s3.New(sess), cfg.Bucket)
	}
	if rdb == nil {
		return inner, nil
	}
	return cache.NewCachingRawStore(rdb, inner, cfg.CacheDocTTL, fetchSlot, loc, cfg.Project+":raw"), nil
}

// AnalyticsStore is written by the CSV Writer and read by the analytics API.
type AnalyticsStore interface {
	usecase.AnalyticsStore
	usecase.AnalyticsReader
}

// NewAnalyticsStore creates the CSV destination selected by ANALYTICS_STORE.
func NewAnalyticsStore(cfg config.Config, sess *session.Session) (AnalyticsStore, error) {
	if cfg.AnalyticsStore == config.StoreFS {
		return adapters.NewAnalyticsFS(cfg.AnalyticsDir), nil
	}
	if sess == nil {
		return nil, errNoSession
	}
	return adapters.NewAnalyticsS3(s3.New(sess), cfg.AnalyticsBucket), nil
}

// NewParameterStore creates the credential store selected by CREDENTIAL_STORE.
func NewParameterStore(cfg config.Config, sess *session.Session, db *gorm.DB) (tokenusecase.ParameterStore, error) {
	if cfg.CredentialStore == config.StoreDB {
		if db == nil {
			return nil, errNoDB
		}
		return tokenadapters.NewParameterStoreGorm(db), nil
	}
	if sess == nil {
		return nil, errNoSession
	}
	return tokenadapters.NewSSMStore(ssm.New(sess)), nil
}

// Notifier publishes batch summaries and re-auth alerts.
type Notifier interface {
	usecase.Notifier
	tokenusecase.Notifier
}

// NewNotifier returns an SNS notifier when SNS_TOPIC_ARN is set, otherwise a log-only notifier.
func NewNotifier(cfg config.Config, sess *session.Session) Notifier {
	if cfg.TopicARN == "" || sess == nil {
		return notify.NewLogNotifier()
	}
	return notify.NewSNSNotifier(sns.New(sess), cfg.TopicARN)
}
