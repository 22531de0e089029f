package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/config"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/cache"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/externalapi/fyers"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
)

// localConfig は AWS を使わない構成です。
func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Project:         "ohlcv-test",
		RawStore:        config.StoreDB,
		AnalyticsStore:  config.StoreFS,
		CredentialStore: config.StoreDB,
		AnalyticsDir:    t.TempDir(),
	}
}

func TestNewAWSSession_LocalOnly(t *testing.T) {
	t.Parallel()

	sess, err := NewAWSSession(localConfig(t))

	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestNewStores_MissingDependencies(t *testing.T) {
	t.Parallel()

	s3cfg := config.Config{RawStore: config.StoreS3, AnalyticsStore: config.StoreS3, CredentialStore: config.StoreSSM, Bucket: "b"}
	dbcfg := localConfig(t)

	_, err := NewRawStore(s3cfg, nil, nil, nil, time.UTC)
	assert.ErrorIs(t, err, errNoSession)
	_, err = NewRawStore(dbcfg, nil, nil, nil, time.UTC)
	assert.ErrorIs(t, err, errNoDB)
	_, err = NewAnalyticsStore(s3cfg, nil)
	assert.ErrorIs(t, err, errNoSession)
	_, err = NewParameterStore(s3cfg, nil, nil)
	assert.ErrorIs(t, err, errNoSession)
	_, err = NewParameterStore(dbcfg, nil, nil)
	assert.ErrorIs(t, err, errNoDB)
}

// DB を使う構成で生データと認証情報の保存が動くことを検証する
func TestNewDB_LocalStores(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ohlcv.db"))
	cfg := localConfig(t)
	ctx := context.Background()

	db, err := NewDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	raw, err := NewRawStore(cfg, nil, db, nil, time.UTC)
	require.NoError(t, err)
	doc := entity.NewRawFetchDocument(time.Date(2025, 1, 15, 3, 50, 5, 0, time.UTC), "2025-01-15", "5", nil)
	key, err := raw.Put(ctx, doc)
	require.NoError(t, err)
	got, err := raw.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", got.Date)

	params, err := NewParameterStore(cfg, nil, db)
	require.NoError(t, err)
	require.NoError(t, params.PutParameter(ctx, "/ohlcv-test/broker/client_id", "APP-100"))
	vals, err := params.GetParameters(ctx, []string{"/ohlcv-test/broker/client_id"})
	require.NoError(t, err)
	assert.Equal(t, "APP-100", vals["/ohlcv-test/broker/client_id"])

	out, err := NewAnalyticsStore(cfg, nil)
	require.NoError(t, err)
	csvKey := "analytics/csv/symbol=RELIANCE/year=2025/month=01/day=15/data_20250115.csv.gz"
	require.NoError(t, out.Put(ctx, csvKey, []byte("a,b\n")))
	keys, err := out.List(ctx, "analytics/csv/")
	require.NoError(t, err)
	assert.Equal(t, []string{csvKey}, keys)
	body, err := out.Get(ctx, csvKey)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))
}

func TestNewDB_NotNeeded(t *testing.T) {
	t.Parallel()

	db, err := NewDB(config.Config{RawStore: config.StoreS3, CredentialStore: config.StoreSSM})

	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestNewRawStore_WrapsWithCache(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ohlcv.db"))
	cfg := localConfig(t)
	db, err := NewDB(cfg)
	require.NoError(t, err)
	rdb, _ := redismock.NewClientMock()

	raw, err := NewRawStore(cfg, nil, db, rdb, time.UTC)

	require.NoError(t, err)
	assert.IsType(t, &cache.CachingRawStore{}, raw)
}

func TestNewNotifier_LogFallback(t *testing.T) {
	t.Parallel()

	n := NewNotifier(config.Config{TopicARN: "arn:aws:sns:ap-south-1:1:alerts"}, nil)

	assert.NoError(t, n.Notify(context.Background(), "subject", "message"))
}

func TestNewMarket(t *testing.T) {
	t.Parallel()

	w, err := markethours.New("Asia/Kolkata", "Mon-Fri", "09:15", "15:30")
	require.NoError(t, err)

	assert.NotNil(t, NewMarket(config.Config{DemoMode: true}, w))
	assert.IsType(t, &fyers.HistoryClient{}, NewMarket(config.Config{}, w))
}

func TestNewInfra_Local(t *testing.T) {
	for _, k := range []string{"SYMBOLS", "MARKET_TIMEZONE", "TRADING_DAYS", "MARKET_OPEN", "MARKET_CLOSE", "PORT",
		"SNS_TOPIC_ARN", "FETCH_BUDGET", "EXPORT_BUDGET", "DEMO_MODE", "ENABLE_TRADING_HOURS_CHECK", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	t.Setenv("RAW_STORE", "db")
	t.Setenv("ANALYTICS_STORE", "fs")
	t.Setenv("ANALYTICS_DIR", t.TempDir())
	t.Setenv("CREDENTIAL_STORE", "db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ohlcv.db"))

	in, err := NewInfra(context.Background(), true)
	require.NoError(t, err)
	defer func() { assert.NoError(t, in.Close()) }()

	assert.Nil(t, in.Session)
	assert.Nil(t, in.Redis)
	assert.NotNil(t, in.DB)
	checks := in.HealthChecks()
	require.Contains(t, checks, "db")
	assert.NoError(t, checks["db"](context.Background()))
}

func TestNewInfra_InvalidConfig(t *testing.T) {
	t.Setenv("RAW_STORE", "ftp")

	_, err := NewInfra(context.Background(), false)

	assert.Error(t, err)
}
