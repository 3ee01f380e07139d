package services

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

var (
	userIDKey   ctxKey = "user_id"
	deviceIDKey ctxKey = "device_id"
)

// Principal is the authenticated user and the device the credential is bound to.
type Principal struct {
	UserID   uuid.UUID
	DeviceID uuid.UUID
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, userIDKey, p.UserID)
	ctx = context.WithValue(ctx, deviceIDKey, p.DeviceID)
	return ctx
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	deviceID, ok := DeviceIDFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return Principal{UserID: userID, DeviceID: deviceID}, true
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

func DeviceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	deviceID, ok := ctx.Value(deviceIDKey).(uuid.UUID)
	return deviceID, ok
}
