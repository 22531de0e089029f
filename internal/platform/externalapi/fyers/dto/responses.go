// Package dto defines data transfer objects for the Fyers API.
package dto

import "encoding/json"

// HistoryResponse represents the JSON response from the /data/history endpoint.
// Each candle row is [epoch, open, high, low, close, volume].
type HistoryResponse struct {
	S       string          `json:"s"`
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Candles [][]json.Number `json:"candles"`
}

// RefreshRequest is the body of the validate-refresh-token call.
type RefreshRequest struct {
	GrantType    string `json:"grant_type"`
	AppIDHash    string `json:"appIdHash"`
	RefreshToken string `json:"refresh_token"`
	PIN          string `json:"pin,omitempty"`
}

// AuthCodeRequest is the body of the validate-authcode call.
type AuthCodeRequest struct {
	GrantType string `json:"grant_type"`
	AppIDHash string `json:"appIdHash"`
	Code      string `json:"code"`
}

// TokenResponse is returned by both auth endpoints.
type TokenResponse struct {
	S            string `json:"s"`
	Code         int    `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
