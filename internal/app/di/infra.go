package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/config"
	httphandler "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/http/handler"
	infraredis "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/redis"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
)

// Infra bundles the shared clients every entrypoint builds from the same config.
type Infra struct {
	Config   config.Config
	Window   markethours.Window
	Session  *session.Session // nil when no AWS store is configured
	DB       *gorm.DB         // nil when no db store is configured
	Redis    *redis.Client    // nil when REDIS_ADDR is unset or unreachable
	Notifier Notifier
}

// NewInfra loads the config and opens the clients it selects.
// Redis is optional: a failed connection is logged and the process runs without cache.
func NewInfra(ctx context.Context, withCache bool) (*Infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	sess, err := NewAWSSession(cfg)
	if err != nil {
		return nil, err
	}
	db, err := NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	in := &Infra{Config: cfg, Window: window, Session: sess, DB: db, Notifier: NewNotifier(cfg, sess)}
	if withCache {
		rdb, err := infraredis.NewRedisClient(ctx)
		if err != nil {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		}
		in.Redis = rdb
	}
	return in, nil
}

// HealthChecks returns the dependency checks for /healthz.
func (in *Infra) HealthChecks() map[string]httphandler.Check {
	checks := map[string]httphandler.Check{}
	if in.DB != nil {
		checks["db"] = func(ctx context.Context) error {
			sqlDB, err := in.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if in.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return in.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases the database and Redis connections.
func (in *Infra) Close() error {
	var errs []error
	if in.Redis != nil {
		errs = append(errs, in.Redis.Close())
	}
	if in.DB != nil {
		if sqlDB, err := in.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
