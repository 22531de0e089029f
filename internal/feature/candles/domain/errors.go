// Package domain contains the error taxonomy shared by the candles feature.
package domain

import "errors"

var (
	// ErrInvalidInterval is returned when a bucket width is not a positive multiple of the base granularity.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrUnorderedInput is returned when candle timestamps are not strictly increasing.
	ErrUnorderedInput = errors.New("unordered input")
	// ErrAuthExpired is returned when the brokerage rejects the access credential.
	ErrAuthExpired = errors.New("auth expired")
	// ErrUpstreamTimeout is returned when the brokerage call exceeds its timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrNotFound is returned when no data exists for the requested symbol or window.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a raw document key has already been written.
	ErrAlreadyExists = errors.New("already exists")
	// ErrTimeout is returned when an invocation exceeds its wall-clock budget.
	ErrTimeout = errors.New("invocation timeout")
	// ErrInvalidPeriod is returned for a malformed aggregation period.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange is returned for a date range that is reversed or too long.
	ErrInvalidRange = errors.New("invalid date range")
)
