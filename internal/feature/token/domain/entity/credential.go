// Package entity defines the credential entities owned by the token manager.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// AccessTokenTTL is the validity window of an access credential.
	AccessTokenTTL = 24 * time.Hour
	// RefreshTokenTTL is the validity window of a refresh credential.
	RefreshTokenTTL = 15 * 24 * time.Hour
)

// placeholders are values written by provisioning before a real token exists.
var placeholders = map[string]bool{
	"":               true,
	"CHANGE_ME":      true,
	"AUTO_GENERATED": true,
	"PLACEHOLDER":    true,
}

// TokenState is a position in the credential lifecycle.
type TokenState string

const (
	StateNoAccessToken     TokenState = "no_access_token"
	StateValid             TokenState = "valid"
	StateExpired           TokenState = "expired"
	StateNeedsManualReauth TokenState = "needs_manual_reauth"
)

// CredentialSet holds everything needed to call the brokerage API.
// Zero expiry times mean the expiry is unknown.
type CredentialSet struct {
	ClientID         string
	AppSecret        string
	RefreshToken     string
	AccessToken      string
	PIN              string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	// ReauthRequired is set once a refresh was rejected; it stays set until
	// a human supplies a new refresh credential.
	ReauthRequired bool
}

// HasAccessToken reports whether a non-placeholder access token is present.
func (c CredentialSet) HasAccessToken() bool {
	return !placeholders[c.AccessToken]
}

// HasRefreshToken reports whether a non-placeholder refresh token is present.
func (c CredentialSet) HasRefreshToken() bool {
	return !placeholders[c.RefreshToken]
}

// AccessExpired reports whether the access token is past its validity window at now.
func (c CredentialSet) AccessExpired(now time.Time) bool {
	return !c.AccessExpiresAt.IsZero() && !now.Before(c.AccessExpiresAt)
}

// RefreshExpired reports whether the refresh token is past its validity window at now.
func (c CredentialSet) RefreshExpired(now time.Time) bool {
	return !c.RefreshExpiresAt.IsZero() && !now.Before(c.RefreshExpiresAt)
}

// State derives the lifecycle state at now.
func (c CredentialSet) State(now time.Time) TokenState {
	switch {
	case c.ReauthRequired:
		return StateNeedsManualReauth
	case !c.HasAccessToken():
		if !c.HasRefreshToken() || c.RefreshExpired(now) {
			return StateNeedsManualReauth
		}
		return StateNoAccessToken
	case c.AccessExpired(now):
		if !c.HasRefreshToken() || c.RefreshExpired(now) {
			return StateNeedsManualReauth
		}
		return StateExpired
	default:
		return StateValid
	}
}

// AppIDHash is the sha256 hex of "client_id:app_secret" required by the brokerage auth endpoints.
func (c CredentialSet) AppIDHash() string {
	sum := sha256.Sum256([]byte(c.ClientID + ":" + c.AppSecret))
	return hex.EncodeToString(sum[:])
}

// Authorization is the header value for data API calls: "client_id:access_token".
func (c CredentialSet) Authorization() string {
	return c.ClientID + ":" + c.AccessToken
}
