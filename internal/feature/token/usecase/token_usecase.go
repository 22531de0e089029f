// Package usecase はブローカーの認証情報ライフサイクルを管理するユースケースを提供します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
)

// パラメータストア上の論理キー名
const (
	KeyClientID         = "client_id"
	KeyAppSecret        = "app_secret"
	KeyRefreshToken     = "refresh_token"
	KeyAccessToken      = "access_token"
	KeyPIN              = "pin"
	KeyAccessExpiresAt  = "access_token_expires_at"
	KeyRefreshExpiresAt = "refresh_token_expires_at"
	// KeyReauthRequired は "true" の間、人手で新しい refresh token を登録するまでリフレッシュを行いません。
	KeyReauthRequired = "reauth_required"
)

var allKeys = []string{
	KeyClientID, KeyAppSecret, KeyRefreshToken, KeyAccessToken, KeyPIN, KeyAccessExpiresAt, KeyRefreshExpiresAt, KeyReauthRequired,
}

// ParameterStore は認証情報を永続化するストアのインターフェースです。
// 存在しないキーは結果の map に含めません。
type ParameterStore interface {
	GetParameters(ctx context.Context, names []string) (map[string]string, error)
	PutParameter(ctx context.Context, name, value string) error
}

// AuthTokens は auth code 交換で得られるトークンの組です。
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

// AuthAPI はブローカーの認証エンドポイントを抽象化します。
// 拒否された場合は domain.ErrRefreshRejected、ネットワーク障害や 5xx は domain.ErrTransient をラップして返します。
type AuthAPI interface {
	RefreshAccessToken(ctx context.Context, creds entity.CredentialSet) (string, error)
	ExchangeAuthCode(ctx context.Context, creds entity.CredentialSet, authCode string) (AuthTokens, error)
}

// Notifier は人手の対応が必要な事象を通知します。
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// GenerateRequest は Web フォームから受け取るトークン生成リクエストです。
type GenerateRequest struct {
	ClientID    string
	AppSecret   string
	RedirectURL string
	PIN         string
}

// TokenUsecase は refresh token から access token を維持するユースケースです。
// 状態は CredentialSet として呼び出し元との間で受け渡し、内部に保持しません。
type TokenUsecase struct {
	store    ParameterStore
	api      AuthAPI
	notifier Notifier
	project  string
	now      func() time.Time
}

// NewTokenUsecase は新しい TokenUsecase を生成します。
func NewTokenUsecase(store ParameterStore, api AuthAPI, notifier Notifier, project string) *TokenUsecase {
	return &TokenUsecase{store: store, api: api, notifier: notifier, project: project, now: time.Now}
}

// ParamName は論理キー名をパラメータストアのフルパスに変換します。
func (u *TokenUsecase) ParamName(key string) string {
	return fmt.Sprintf("/%s/broker/%s", u.project, key)
}

// Load はパラメータストアから認証情報を読み込みます。
func (u *TokenUsecase) Load(ctx context.Context) (entity.CredentialSet, error) {
	names := make([]string, 0, len(allKeys))
	for _, k := range allKeys {
		names = append(names, u.ParamName(k))
	}
	values, err := u.store.GetParameters(ctx, names)
	if err != nil {
		return entity.CredentialSet{}, fmt.Errorf("load credentials: %w", err)
	}

	get := func(k string) string { return strings.TrimSpace(values[u.ParamName(k)]) }
	creds := entity.CredentialSet{
		ClientID:         get(KeyClientID),
		AppSecret:        get(KeyAppSecret),
		RefreshToken:     get(KeyRefreshToken),
		AccessToken:      get(KeyAccessToken),
		PIN:              get(KeyPIN),
		AccessExpiresAt:  parseTime(get(KeyAccessExpiresAt)),
		RefreshExpiresAt: parseTime(get(KeyRefreshExpiresAt)),
		ReauthRequired:   get(KeyReauthRequired) == "true",
	}
	return creds, nil
}

// State は現在時刻における認証情報の状態を返します。
func (u *TokenUsecase) State(creds entity.CredentialSet) entity.TokenState {
	return creds.State(u.now())
}

// EnsureValidAccessCredential は利用可能な access token を持つ CredentialSet を返します。
// 有効な access token があればリフレッシュは行わず、欠落または期限切れの場合に限り1回だけリフレッシュします。
// 再認証待ちが保存済みの場合は API 呼び出しも通知も行いません。
func (u *TokenUsecase) EnsureValidAccessCredential(ctx context.Context, creds entity.CredentialSet) (entity.CredentialSet, error) {
	switch creds.State(u.now()) {
	case entity.StateValid:
		return creds, nil
	case entity.StateNeedsManualReauth:
		if creds.ReauthRequired {
			return creds, domain.ErrReauthRequired
		}
		return u.requireReauth(ctx, creds, "refresh token is missing or expired")
	default:
		return u.Refresh(ctx, creds)
	}
}

// Invalidate は API に拒否された access token を期限切れとして扱います。
func (u *TokenUsecase) Invalidate(creds entity.CredentialSet) entity.CredentialSet {
	creds.AccessExpiresAt = u.now()
	return creds
}

// Refresh は refresh token を使って access token を再発行し、パラメータストアへ保存します。
func (u *TokenUsecase) Refresh(ctx context.Context, creds entity.CredentialSet) (entity.CredentialSet, error) {
	if creds.ClientID == "" || creds.AppSecret == "" {
		return creds, fmt.Errorf("refresh: %w: client_id or app_secret", domain.ErrCredentialMissing)
	}
	if creds.ReauthRequired {
		return creds, domain.ErrReauthRequired
	}
	now := u.now()
	if !creds.HasRefreshToken() || creds.RefreshExpired(now) {
		return u.requireReauth(ctx, creds, "refresh token is missing or expired")
	}

	token, err := u.api.RefreshAccessToken(ctx, creds)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshRejected) {
			creds, _ = u.requireReauth(ctx, creds, err.Error())
			return creds, fmt.Errorf("%w: %w", domain.ErrReauthRequired, err)
		}
		if !errors.Is(err, domain.ErrTransient) {
			err = fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		slog.Warn("access token refresh failed", "error", err)
		return creds, err
	}

	creds.AccessToken = token
	creds.AccessExpiresAt = now.Add(entity.AccessTokenTTL)
	creds.ReauthRequired = false

	// 保存に失敗しても、この実行中はメモリ上のトークンを利用できる
	if err := u.put(ctx, map[string]string{
		KeyAccessToken:     token,
		KeyAccessExpiresAt: creds.AccessExpiresAt.UTC().Format(time.RFC3339),
	}); err != nil {
		slog.Error("failed to persist refreshed access token", "error", err)
	}
	slog.Info("access token refreshed", "expires_at", creds.AccessExpiresAt)
	return creds, nil
}

// ExchangeAuthCode はリダイレクトURLの auth_code を refresh/access token と交換し、すべての認証情報を保存します。
func (u *TokenUsecase) ExchangeAuthCode(ctx context.Context, req GenerateRequest) (entity.CredentialSet, error) {
	code, err := AuthCodeFromRedirect(req.RedirectURL)
	if err != nil {
		return entity.CredentialSet{}, err
	}
	creds := entity.CredentialSet{
		ClientID:  strings.TrimSpace(req.ClientID),
		AppSecret: strings.TrimSpace(req.AppSecret),
		PIN:       strings.TrimSpace(req.PIN),
	}
	if creds.ClientID == "" || creds.AppSecret == "" {
		return entity.CredentialSet{}, fmt.Errorf("%w: client_id or app_secret", domain.ErrCredentialMissing)
	}

	tokens, err := u.api.ExchangeAuthCode(ctx, creds, code)
	if err != nil {
		return entity.CredentialSet{}, fmt.Errorf("exchange auth code: %w", err)
	}

	now := u.now()
	creds.AccessToken = tokens.AccessToken
	creds.RefreshToken = tokens.RefreshToken
	creds.AccessExpiresAt = now.Add(entity.AccessTokenTTL)
	creds.RefreshExpiresAt = now.Add(entity.RefreshTokenTTL)

	params := map[string]string{
		KeyClientID:         creds.ClientID,
		KeyAppSecret:        creds.AppSecret,
		KeyAccessToken:      creds.AccessToken,
		KeyRefreshToken:     creds.RefreshToken,
		KeyAccessExpiresAt:  creds.AccessExpiresAt.UTC().Format(time.RFC3339),
		KeyRefreshExpiresAt: creds.RefreshExpiresAt.UTC().Format(time.RFC3339),
		KeyReauthRequired:   "false",
	}
	if creds.PIN != "" {
		params[KeyPIN] = creds.PIN
	}
	if err := u.put(ctx, params); err != nil {
		return entity.CredentialSet{}, fmt.Errorf("store credentials: %w", err)
	}
	slog.Info("tokens generated and stored", "client_id", creds.ClientID)
	return creds, nil
}

// AuthCodeFromRedirect はブローカーのリダイレクトURLから auth_code を取り出します。
func AuthCodeFromRedirect(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidRedirectURL, err)
	}
	q := u.Query()
	code := q.Get("auth_code")
	if code == "" {
		code = q.Get("code")
	}
	if code == "" {
		return "", domain.ErrInvalidRedirectURL
	}
	return code, nil
}

// put は allKeys の順にパラメータを書き込み、最初のエラーで中断します。
func (u *TokenUsecase) put(ctx context.Context, params map[string]string) error {
	for _, k := range allKeys {
		v, ok := params[k]
		if !ok {
			continue
		}
		if err := u.store.PutParameter(ctx, u.ParamName(k), v); err != nil {
			return fmt.Errorf("put %s: %w", k, err)
		}
	}
	return nil
}

// requireReauth は再認証待ちを保存してから運用者へ1度だけ通知します。
// 保存に失敗した場合も通知は送り、エラーはログに残します。
func (u *TokenUsecase) requireReauth(ctx context.Context, creds entity.CredentialSet, reason string) (entity.CredentialSet, error) {
	creds.ReauthRequired = true
	if err := u.put(ctx, map[string]string{KeyReauthRequired: "true"}); err != nil {
		slog.Error("failed to persist reauth flag", "error", err)
	}
	u.notifyReauth(ctx, reason)
	return creds, domain.ErrReauthRequired
}

func (u *TokenUsecase) notifyReauth(ctx context.Context, reason string) {
	slog.Error("manual re-authorization required", "reason", reason)
	if u.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Broker token refresh failed for project %s: %s\nOpen the token web form and generate new tokens.", u.project, reason)
	if err := u.notifier.Notify(ctx, "Broker Re-authorization Required", msg); err != nil {
		slog.Warn("failed to send reauth notification", "error", err)
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		slog.Warn("ignoring malformed expiry", "value", s, "error", err)
		return time.Time{}
	}
	return t
}
