package httpdto

import (
	"time"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/google/uuid"
)

// RegisterDeviceRequest is used for POST /v1/devices
type RegisterDeviceRequest struct {
	DeviceClass string `json:"device_class" binding:"required"`
	PublicKey   string `json:"public_key" binding:"required"`
}

type Device struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	DeviceClass  string `json:"device_class"`
	PublicKey    string `json:"public_key"`
	IsActive     bool   `json:"is_active"`
	IsRevoked    bool   `json:"is_revoked,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastActiveAt string `json:"last_active_at"`
}

func FromDevice(d device.Device) Device {
	return Device{
		ID:           d.ID.String(),
		UserID:       d.UserID.String(),
		DeviceClass:  string(d.Class),
		PublicKey:    d.PublicKey,
		IsActive:     d.IsActive,
		IsRevoked:    d.IsRevoked,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastActiveAt: d.LastActiveAt.UTC().Format(time.RFC3339Nano),
	}
}

func FromDevices(devices []device.Device) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, FromDevice(d))
	}
	return out
}

// ToDevice parses a device received from the API.
func ToDevice(dto Device) (device.Device, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return device.Device{}, err
	}
	userID, err := uuid.Parse(dto.UserID)
	if err != nil {
		return device.Device{}, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	lastActiveAt, _ := time.Parse(time.RFC3339Nano, dto.LastActiveAt)
	return device.Device{
		ID:           id,
		UserID:       userID,
		Class:        device.Class(dto.DeviceClass),
		PublicKey:    dto.PublicKey,
		IsActive:     dto.IsActive,
		IsRevoked:    dto.IsRevoked,
		CreatedAt:    createdAt,
		LastActiveAt: lastActiveAt,
	}, nil
}

func ToDevices(dtos []Device) ([]device.Device, error) {
	out := make([]device.Device, 0, len(dtos))
	for _, dto := range dtos {
		d, err := ToDevice(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
