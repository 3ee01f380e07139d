package services

import (
	"errors"
	"net/http"

	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type errorMapping struct {
	err    error
	code   string
	status int
}

// errorTable is shared by REST error bodies and realtime acks. Order matters
// only in that the first match wins.
var errorTable = []errorMapping{
	{pumpkin_errors.ErrInvalidBackupFormat, "INVALID_BACKUP_FORMAT", http.StatusBadRequest},
	{pumpkin_errors.ErrInvalidInput, "VALIDATION_ERROR", http.StatusBadRequest},
	{pumpkin_errors.ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{pumpkin_errors.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{pumpkin_errors.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{pumpkin_errors.ErrDeviceLimitExceeded, "DEVICE_LIMIT_EXCEEDED", http.StatusConflict},
	{pumpkin_errors.ErrDeviceRevoked, "DEVICE_REVOKED", http.StatusConflict},
	{pumpkin_errors.ErrDeviceInactive, "DEVICE_INACTIVE", http.StatusConflict},
	{pumpkin_errors.ErrTokenExpired, "TOKEN_EXPIRED", http.StatusGone},
	{pumpkin_errors.ErrTokenInvalidated, "TOKEN_INVALIDATED", http.StatusGone},
	{pumpkin_errors.ErrTokenAlreadyUsed, "TOKEN_ALREADY_USED", http.StatusConflict},
	{pumpkin_errors.ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{pumpkin_errors.ErrConflict, "CONFLICT", http.StatusConflict},
	{pumpkin_errors.ErrNoDevicesEncrypted, "NO_DEVICES_ENCRYPTED", http.StatusUnprocessableEntity},
	{pumpkin_errors.ErrPartialEncryption, "PARTIAL_ENCRYPTION", http.StatusUnprocessableEntity},
	{pumpkin_errors.ErrDecryptFailure, "DECRYPT_FAILURE", http.StatusUnprocessableEntity},
	{pumpkin_errors.ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	{pumpkin_errors.ErrServiceUnavailable, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// ErrorCode returns the stable code clients switch on.
func ErrorCode(err error) string {
	if m, ok := lookup(err); ok {
		return m.code
	}
	return "INTERNAL_ERROR"
}

func HTTPStatus(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the error text safe to show a client. Unmapped
// errors are hidden behind a generic message.
func PublicMessage(err error) string {
	if _, ok := lookup(err); ok {
		return err.Error()
	}
	return "internal error"
}

// ErrorForCode maps a code received from the server back to its sentinel
// error, or nil for unknown codes.
func ErrorForCode(code string) error {
	for _, m := range errorTable {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
