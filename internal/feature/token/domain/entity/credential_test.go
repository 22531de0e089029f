package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialSet_State(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		c    CredentialSet
		want TokenState
	}{
		{"valid with known expiry", CredentialSet{AccessToken: "a", AccessExpiresAt: later}, StateValid},
		{"valid with unknown expiry", CredentialSet{AccessToken: "a"}, StateValid},
		{"placeholder access token", CredentialSet{AccessToken: "CHANGE_ME", RefreshToken: "r"}, StateNoAccessToken},
		{"expired access token", CredentialSet{AccessToken: "a", AccessExpiresAt: earlier, RefreshToken: "r"}, StateExpired},
		{"expiry exactly now", CredentialSet{AccessToken: "a", AccessExpiresAt: now, RefreshToken: "r"}, StateExpired},
		{"expired refresh token", CredentialSet{AccessToken: "a", AccessExpiresAt: earlier, RefreshToken: "r", RefreshExpiresAt: earlier}, StateNeedsManualReauth},
		{"no tokens at all", CredentialSet{}, StateNeedsManualReauth},
		{"reauth flag wins", CredentialSet{AccessToken: "a", ReauthRequired: true}, StateNeedsManualReauth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.c.State(now))
		})
	}
}

func TestCredentialSet_Headers(t *testing.T) {
	t.Parallel()

	c := CredentialSet{ClientID: "ABC-100", AppSecret: "secret", AccessToken: "tok"}
	assert.Equal(t, "ABC-100:tok", c.Authorization())
	// sha256("ABC-100:secret")
	assert.Len(t, c.AppIDHash(), 64)
	assert.Equal(t, c.AppIDHash(), CredentialSet{ClientID: "ABC-100", AppSecret: "secret"}.AppIDHash())
}
