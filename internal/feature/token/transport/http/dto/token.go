package dto

// GenerateTokensRequest は Web フォームから送信されるトークン生成リクエストです。
// JSON とフォームの両方を受け付けます。
type GenerateTokensRequest struct {
	Action      string `json:"action" form:"action" binding:"required,eq=generate_tokens"`
	ClientID    string `json:"client_id" form:"client_id" binding:"required"`
	AppSecret   string `json:"app_secret" form:"app_secret" binding:"required"`
	RedirectURL string `json:"redirect_url" form:"redirect_url" binding:"required"`
	PIN         string `json:"pin" form:"pin"`
}

// TokenResponse はトークン生成・更新の結果です。トークン本体は先頭のみを返します。
type TokenResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	AccessToken      string `json:"access_token_preview,omitempty"`
	AccessExpiresAt  string `json:"access_token_expires_at,omitempty"`
	RefreshExpiresAt string `json:"refresh_token_expires_at,omitempty"`
}

// StatusResponse は /tokens/status のレスポンスです。
type StatusResponse struct {
	State            string `json:"state"`
	ClientID         string `json:"client_id,omitempty"`
	HasAccessToken   bool   `json:"has_access_token"`
	HasRefreshToken  bool   `json:"has_refresh_token"`
	AccessExpiresAt  string `json:"access_token_expires_at,omitempty"`
	RefreshExpiresAt string `json:"refresh_token_expires_at,omitempty"`
	Timestamp        string `json:"timestamp"`
}

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}
