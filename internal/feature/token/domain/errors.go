// Package domain contains domain-level errors for the token feature.
package domain

import "errors"

var (
	// ErrReauthRequired indicates the refresh credential is no longer usable and a human must re-authorize.
	ErrReauthRequired = errors.New("manual re-authorization required")
	// ErrRefreshRejected indicates the brokerage refused a refresh or auth-code exchange.
	ErrRefreshRejected = errors.New("token request rejected")
	// ErrTransient indicates a retryable network or server failure.
	ErrTransient = errors.New("transient token error")
	// ErrCredentialMissing indicates required credential parameters are absent.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrInvalidRedirectURL indicates the redirect URL carries no auth_code.
	ErrInvalidRedirectURL = errors.New("redirect url has no auth_code")
)
