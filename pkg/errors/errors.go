package pumpkin_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Device and pairing errors
var (
	ErrDeviceLimitExceeded = errors.New("device limit exceeded")
	ErrDeviceInactive      = errors.New("device inactive")
	ErrDeviceRevoked       = errors.New("device revoked")
	ErrTokenExpired        = errors.New("pairing token expired")
	ErrTokenAlreadyUsed    = errors.New("pairing token already used")
	ErrTokenInvalidated    = errors.New("pairing token invalidated")
)

// Encryption and backup errors
var (
	ErrNoDevicesEncrypted  = errors.New("no devices encrypted")
	ErrPartialEncryption   = errors.New("partial encryption failure")
	ErrDecryptFailure      = errors.New("decrypt failure")
	ErrInvalidBackupFormat = errors.New("invalid backup format")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
