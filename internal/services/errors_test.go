package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

func TestErrorCodeAndStatus(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{pumpkin_errors.ErrInvalidInput, "VALIDATION_ERROR", http.StatusBadRequest},
		{fmt.Errorf("%w: bad envelope", pumpkin_errors.ErrInvalidInput), "VALIDATION_ERROR", http.StatusBadRequest},
		{pumpkin_errors.ErrInvalidBackupFormat, "INVALID_BACKUP_FORMAT", http.StatusBadRequest},
		{pumpkin_errors.ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
		{pumpkin_errors.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
		{pumpkin_errors.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{pumpkin_errors.ErrDeviceLimitExceeded, "DEVICE_LIMIT_EXCEEDED", http.StatusConflict},
		{pumpkin_errors.ErrTokenAlreadyUsed, "TOKEN_ALREADY_USED", http.StatusConflict},
		{pumpkin_errors.ErrTokenExpired, "TOKEN_EXPIRED", http.StatusGone},
		{pumpkin_errors.ErrTokenInvalidated, "TOKEN_INVALIDATED", http.StatusGone},
		{pumpkin_errors.ErrNoDevicesEncrypted, "NO_DEVICES_ENCRYPTED", http.StatusUnprocessableEntity},
		{pumpkin_errors.ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
		{pumpkin_errors.ErrServiceUnavailable, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
		{errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}

	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: secret detail")))
	assert.Equal(t, "not found", PublicMessage(pumpkin_errors.ErrNotFound))
}

func TestErrorForCodeRoundTrip(t *testing.T) {
	for _, m := range errorTable {
		assert.ErrorIs(t, ErrorForCode(ErrorCode(m.err)), m.err, m.code)
	}
	assert.Nil(t, ErrorForCode("INTERNAL_ERROR"))
	assert.Nil(t, ErrorForCode(""))
}
