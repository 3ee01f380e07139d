package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

type DeviceService struct {
	repo      repository.DeviceRepository
	maxActive int
	log       *logger.Logger
	now       func() time.Time
}

func NewDeviceService(repo repository.DeviceRepository, cfg *config.Config, log *logger.Logger) *DeviceService {
	maxActive := device.DefaultMaxActive
	if cfg != nil && cfg.MaxActiveDevices > 0 {
		maxActive = cfg.MaxActiveDevices
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DeviceService{repo: repo, maxActive: maxActive, log: log, now: time.Now}
}

func (s *DeviceService) MaxActive() int {
	return s.maxActive
}

// Register creates a new active device for the user, failing with
// ErrDeviceLimitExceeded when the user is already at the cap.
func (s *DeviceService) Register(ctx context.Context, userID uuid.UUID, class device.Class, publicKey string) (device.Device, error) {
	if userID == uuid.Nil {
		return device.Device{}, fmt.Errorf("%w: user id is required", pumpkin_errors.ErrInvalidInput)
	}
	class = device.Class(strings.ToLower(strings.TrimSpace(string(class))))
	if !class.Valid() {
		return device.Device{}, fmt.Errorf("%w: unknown device class %q", pumpkin_errors.ErrInvalidInput, class)
	}
	publicKey = strings.TrimSpace(publicKey)
	if err := crypto.ValidatePublicKey(publicKey); err != nil {
		return device.Device{}, err
	}

	now := s.now()
	d := &device.Device{
		ID:           uuid.New(),
		UserID:       userID,
		Class:        class,
		PublicKey:    publicKey,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.repo.CreateWithinLimit(ctx, d, s.maxActive); err != nil {
		return device.Device{}, err
	}

	s.log.WithContext(ctx).Info("device registered",
		zap.String("user_id", userID.String()),
		zap.String("device_id", d.ID.String()),
		zap.String("device_class", string(class)),
	)
	return *d, nil
}

// Deactivate soft-deletes the device. Calling it on an inactive device is a no-op.
func (s *DeviceService) Deactivate(ctx context.Context, deviceID, userID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, deviceID, userID); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("device deactivated",
		zap.String("user_id", userID.String()),
		zap.String("device_id", deviceID.String()),
	)
	return nil
}

// Revoke deactivates the device and blocks any later reactivation.
func (s *DeviceService) Revoke(ctx context.Context, deviceID, userID uuid.UUID) error {
	if err := s.repo.Revoke(ctx, deviceID, userID); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("device revoked",
		zap.String("user_id", userID.String()),
		zap.String("device_id", deviceID.String()),
	)
	return nil
}

func (s *DeviceService) Reactivate(ctx context.Context, deviceID, userID uuid.UUID) (device.Device, error) {
	return s.repo.ReactivateWithinLimit(ctx, deviceID, userID, s.maxActive, s.now())
}

func (s *DeviceService) ListActive(ctx context.Context, userID uuid.UUID) ([]device.Device, error) {
	return s.repo.GetActiveDevices(ctx, userID)
}

func (s *DeviceService) Get(ctx context.Context, deviceID uuid.UUID) (device.Device, error) {
	return s.repo.GetDeviceByID(ctx, deviceID)
}

// RequireActive returns the device if it belongs to userID and is active.
func (s *DeviceService) RequireActive(ctx context.Context, deviceID, userID uuid.UUID) (device.Device, error) {
	d, err := s.repo.GetDeviceByID(ctx, deviceID)
	if err != nil {
		if isNotFound(err) {
			return device.Device{}, fmt.Errorf("%w: unknown device", pumpkin_errors.ErrUnauthorized)
		}
		return device.Device{}, err
	}
	if d.UserID != userID {
		return device.Device{}, fmt.Errorf("%w: device belongs to another user", pumpkin_errors.ErrUnauthorized)
	}
	if !d.IsActive {
		return device.Device{}, fmt.Errorf("%w: device is not active", pumpkin_errors.ErrUnauthorized)
	}
	return d, nil
}

// Touch records activity on the device. Failures are logged only.
func (s *DeviceService) Touch(ctx context.Context, deviceID uuid.UUID) {
	if err := s.repo.UpdateLastActive(ctx, deviceID, s.now()); err != nil {
		s.log.WithContext(ctx).Warn("failed to update device activity",
			zap.String("device_id", deviceID.String()), zap.Error(err))
	}
}
