// Package handler はトークン管理Webフォームのハンドラーを提供します。
package handler

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/transport/http/dto"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
)

//go:embed web/index.html
var indexHTML []byte

// TokenUsecase はトークン管理のユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type TokenUsecase interface {
	Load(ctx context.Context) (entity.CredentialSet, error)
	State(creds entity.CredentialSet) entity.TokenState
	Refresh(ctx context.Context, creds entity.CredentialSet) (entity.CredentialSet, error)
	ExchangeAuthCode(ctx context.Context, req usecase.GenerateRequest) (entity.CredentialSet, error)
}

// TokenHandler はトークン管理のHTTPリクエストを処理します。
type TokenHandler struct {
	uc TokenUsecase
}

// NewTokenHandler はTokenHandlerの新しいインスタンスを生成します。
func NewTokenHandler(uc TokenUsecase) *TokenHandler {
	return &TokenHandler{uc: uc}
}

// Index はトークン生成用のHTMLフォームを返します。
func (h *TokenHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// Generate はリダイレクトURLの auth_code からトークンを生成し、パラメータストアへ保存します。
// - バリデーションエラー時は400を返却
// - auth_code が無い、またはブローカーに拒否された場合は400を返却
// - 一時的な障害は502を返却
func (h *TokenHandler) Generate(c *gin.Context) {
	var req dto.GenerateTokensRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Warn("token request validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request: client_id, app_secret, redirect_url and action=generate_tokens are required"})
		return
	}

	creds, err := h.uc.ExchangeAuthCode(c.Request.Context(), usecase.GenerateRequest{
		ClientID:    req.ClientID,
		AppSecret:   req.AppSecret,
		RedirectURL: req.RedirectURL,
		PIN:         req.PIN,
	})
	if err != nil {
		writeError(c, "token generation failed", err)
		return
	}

	slog.Info("tokens generated via web form", "client_id", creds.ClientID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.TokenResponse{
		Status:           "success",
		Message:          "Tokens generated and stored",
		AccessToken:      preview(creds.AccessToken),
		AccessExpiresAt:  formatTime(creds.AccessExpiresAt),
		RefreshExpiresAt: formatTime(creds.RefreshExpiresAt),
	})
}

// Refresh は保存済みの refresh token で access token を再発行します。
func (h *TokenHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	creds, err := h.uc.Load(ctx)
	if err != nil {
		writeError(c, "failed to load credentials", err)
		return
	}
	creds, err = h.uc.Refresh(ctx, creds)
	if err != nil {
		writeError(c, "token refresh failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{
		Status:           "success",
		Message:          "Access token refreshed",
		AccessToken:      preview(creds.AccessToken),
		AccessExpiresAt:  formatTime(creds.AccessExpiresAt),
		RefreshExpiresAt: formatTime(creds.RefreshExpiresAt),
	})
}

// Status は保存済み認証情報の状態を返します。トークン本体は返しません。
func (h *TokenHandler) Status(c *gin.Context) {
	creds, err := h.uc.Load(c.Request.Context())
	if err != nil {
		writeError(c, "failed to load credentials", err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{
		State:            string(h.uc.State(creds)),
		ClientID:         creds.ClientID,
		HasAccessToken:   creds.HasAccessToken(),
		HasRefreshToken:  creds.HasRefreshToken(),
		AccessExpiresAt:  formatTime(creds.AccessExpiresAt),
		RefreshExpiresAt: formatTime(creds.RefreshExpiresAt),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError はトークン系のドメインエラーを HTTP ステータスに変換します。
func writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRedirectURL),
		errors.Is(err, domain.ErrCredentialMissing):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrReauthRequired):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRefreshRejected):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTransient):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err, "remote_addr", c.ClientIP())
	} else {
		slog.Warn(msg, "error", err, "remote_addr", c.ClientIP())
	}
	c.JSON(status, dto.ErrorResponse{Error: msg + ": " + err.Error()})
}

func preview(token string) string {
	if len(token) <= 12 {
		return ""
	}
	return token[:12] + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
