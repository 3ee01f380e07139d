package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type DeviceRepository struct {
	s *Store
}

// activeCount must be called with the store lock held.
func (r *DeviceRepository) activeCount(userID uuid.UUID) int {
	n := 0
	for _, d := range r.s.devices {
		if d.UserID == userID && d.IsActive {
			n++
		}
	}
	return n
}

func (r *DeviceRepository) CreateWithinLimit(_ context.Context, d *device.Device, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[d.UserID]; !ok {
		return pumpkin_errors.ErrNotFound
	}
	if _, ok := r.s.devices[d.ID]; ok {
		return pumpkin_errors.ErrConflict
	}
	if r.activeCount(d.UserID) >= limit {
		return pumpkin_errors.ErrDeviceLimitExceeded
	}
	d.IsActive = true
	d.IsRevoked = false
	r.s.devices[d.ID] = *d
	return nil
}

func (r *DeviceRepository) ReactivateWithinLimit(_ context.Context, deviceID, userID uuid.UUID, limit int, now time.Time) (device.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok || d.UserID != userID {
		return device.Device{}, pumpkin_errors.ErrNotFound
	}
	if d.IsRevoked {
		return device.Device{}, pumpkin_errors.ErrDeviceRevoked
	}
	if d.IsActive {
		return d, nil
	}
	if r.activeCount(userID) >= limit {
		return device.Device{}, pumpkin_errors.ErrDeviceLimitExceeded
	}
	d.IsActive = true
	if now.After(d.LastActiveAt) {
		d.LastActiveAt = now
	}
	r.s.devices[deviceID] = d
	return d, nil
}

func (r *DeviceRepository) Deactivate(_ context.Context, deviceID, userID uuid.UUID) error {
	return r.update(deviceID, userID, func(d *device.Device) { d.IsActive = false })
}

func (r *DeviceRepository) Revoke(_ context.Context, deviceID, userID uuid.UUID) error {
	return r.update(deviceID, userID, func(d *device.Device) {
		d.IsActive = false
		d.IsRevoked = true
	})
}

func (r *DeviceRepository) update(deviceID, userID uuid.UUID, fn func(*device.Device)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok || d.UserID != userID {
		return pumpkin_errors.ErrNotFound
	}
	fn(&d)
	r.s.devices[deviceID] = d
	return nil
}

func (r *DeviceRepository) GetDeviceByID(_ context.Context, deviceID uuid.UUID) (device.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return device.Device{}, pumpkin_errors.ErrNotFound
	}
	return d, nil
}

func (r *DeviceRepository) GetActiveDevices(_ context.Context, userID uuid.UUID) ([]device.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]device.Device, 0)
	for _, d := range r.s.devices {
		if d.UserID == userID && d.IsActive {
			out = append(out, d)
		}
	}
	sortDevices(out)
	return out, nil
}

func (r *DeviceRepository) CountActiveDevices(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.activeCount(userID), nil
}

func (r *DeviceRepository) UpdateLastActive(_ context.Context, deviceID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.devices[deviceID]
	if !ok {
		return pumpkin_errors.ErrNotFound
	}
	if at.After(d.LastActiveAt) {
		d.LastActiveAt = at
		r.s.devices[deviceID] = d
	}
	return nil
}
