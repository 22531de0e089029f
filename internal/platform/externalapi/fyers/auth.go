package fyers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/externalapi/fyers/dto"
)

// AuthClient は Fyers の認証エンドポイントを呼び出す AuthAPI 実装です。
type AuthClient struct {
	cfg    Config
	client *http.Client
}

// AuthClient が AuthAPI を実装していることをコンパイル時に検証します。
var _ usecase.AuthAPI = (*AuthClient)(nil)

// NewAuthClient は新しい AuthClient を生成します。
func NewAuthClient(cfg Config, client *http.Client) *AuthClient {
	return &AuthClient{cfg: cfg, client: client}
}

// RefreshAccessToken は refresh token を使って新しい access token を取得します。
func (a *AuthClient) RefreshAccessToken(ctx context.Context, creds entity.CredentialSet) (string, error) {
	body := dto.RefreshRequest{
		GrantType:    "refresh_token",
		AppIDHash:    creds.AppIDHash(),
		RefreshToken: creds.RefreshToken,
		PIN:          creds.PIN,
	}
	res, err := a.post(ctx, "/api/v3/validate-refresh-token", body)
	if err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// ExchangeAuthCode は auth code を access/refresh token の組と交換します。
func (a *AuthClient) ExchangeAuthCode(ctx context.Context, creds entity.CredentialSet, authCode string) (usecase.AuthTokens, error) {
	body := dto.AuthCodeRequest{
		GrantType: "authorization_code",
		AppIDHash: creds.AppIDHash(),
		Code:      authCode,
	}
	res, err := a.post(ctx, "/api/v3/validate-authcode", body)
	if err != nil {
		return usecase.AuthTokens{}, err
	}
	if res.RefreshToken == "" {
		return usecase.AuthTokens{}, fmt.Errorf("%w: response has no refresh_token", domain.ErrRefreshRejected)
	}
	return usecase.AuthTokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
}

// post は JSON を送信し、レスポンスを分類します。
// 4xx と s!="ok" は ErrRefreshRejected、通信エラーと 5xx は ErrTransient です。
func (a *AuthClient) post(ctx context.Context, path string, payload any) (dto.TokenResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return dto.TokenResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return dto.TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 500 {
		return dto.TokenResponse{}, fmt.Errorf("%w: fyers http %d", domain.ErrTransient, res.StatusCode)
	}

	var out dto.TokenResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&out)
	if res.StatusCode >= 400 {
		return dto.TokenResponse{}, fmt.Errorf("%w: fyers http %d %s", domain.ErrRefreshRejected, res.StatusCode, out.Message)
	}
	if decodeErr != nil {
		return dto.TokenResponse{}, fmt.Errorf("%w: decode token response: %w", domain.ErrTransient, decodeErr)
	}
	if out.S != "ok" || out.AccessToken == "" {
		return dto.TokenResponse{}, fmt.Errorf("%w: fyers %d %s", domain.ErrRefreshRejected, out.Code, out.Message)
	}
	return out, nil
}
