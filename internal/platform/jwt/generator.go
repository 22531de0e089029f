// Package jwtmw はトークン管理画面の運用者認証に使う JWT の発行と検証を提供します。
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvKeyJWTSecret は HS256 署名鍵を保持する環境変数名です。
const EnvKeyJWTSecret = "JWT_SECRET"

// ScopeTokens は認証情報の管理操作を許可するスコープです。
const ScopeTokens = "tokens:admin"

// Issuer は運用者トークンの iss クレームです。
const Issuer = "ohlcv-tokenweb"

// ErrInsufficientScope は署名は正しいが権限の無いトークンを表します。
var ErrInsufficientScope = errors.New("insufficient scope")

// OperatorClaims は運用者トークンのクレームです。
type OperatorClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Generator issues operator tokens.
type Generator interface {
	GenerateToken(operator string) (string, error)
}

type generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a generator signing with secret. Tokens expire after expiration.
func NewGenerator(secret string, expiration time.Duration) *generator {
	return &generator{secret: []byte(secret), expiration: expiration, now: time.Now}
}

// GenerateToken signs an HS256 token for operator carrying the tokens scope.
func (g *generator) GenerateToken(operator string) (string, error) {
	if operator == "" {
		return "", errors.New("operator is required")
	}
	if len(g.secret) == 0 {
		return "", errors.New("secret is required")
	}
	now := g.now()
	claims := OperatorClaims{
		Scope: ScopeTokens,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiration)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseOperator verifies tokenStr and returns its claims.
// Only HS256 tokens with an expiry are accepted. A valid token without the tokens scope
// or subject yields ErrInsufficientScope.
func ParseOperator(secret, tokenStr string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.Scope != ScopeTokens {
		return nil, ErrInsufficientScope
	}
	return claims, nil
}
