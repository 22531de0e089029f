// Command opstoken はトークン生成 Web 用の運用者 JWT を発行します。
//
//	JWT_SECRET=... go run ./cmd/opstoken -operator oncall -ttl 8h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtmw "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/jwt"
)

func main() {
	operator := flag.String("operator", "", "operator name stored in the sub claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}
	if *ttl <= 0 {
		slog.Error("ttl must be positive", "ttl", *ttl)
		os.Exit(1)
	}

	token, err := jwtmw.NewGenerator(secret, *ttl).GenerateToken(*operator)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
