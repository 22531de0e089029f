// Package awsclient は AWS SDK のセッション生成を提供します。
package awsclient

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

const defaultRegion = "ap-south-1"

// Config は AWS 接続設定です。
type Config struct {
	Region   string // AWS_REGION
	Endpoint string // AWS_ENDPOINT (localstack など。空なら既定のエンドポイント)
}

// LoadConfig は環境変数から AWS 設定を読み込みます。
func LoadConfig() Config {
	cfg := Config{
		Region:   os.Getenv("AWS_REGION"),
		Endpoint: os.Getenv("AWS_ENDPOINT"),
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return cfg
}

// NewSession は共有の AWS セッションを生成します。認証情報は SDK の既定チェーンから解決されます。
func NewSession(cfg Config) (*session.Session, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	slog.Info("AWS session created", "region", cfg.Region, "endpoint", cfg.Endpoint)
	return sess, nil
}
