// Package fanout encrypts one plaintext separately for every target device
// and recovers it again on the receiving device.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const (
	PlaceholderNotForDevice  = "[not encrypted for this device]"
	PlaceholderDecryptFailed = "[decrypt failed]"
)

type Status int

const (
	StatusDecrypted Status = iota
	StatusNotForDevice
	StatusDecryptFailed
)

func (s Status) String() string {
	switch s {
	case StatusDecrypted:
		return "decrypted"
	case StatusNotForDevice:
		return "not_for_device"
	case StatusDecryptFailed:
		return "decrypt_failed"
	}
	return "unknown"
}

// Result is the outcome of decoding a message on one device.
type Result struct {
	Status    Status
	Plaintext string
	Err       error
}

// Text returns the plaintext, or the placeholder for the failure status.
func (r Result) Text() string {
	switch r.Status {
	case StatusDecrypted:
		return r.Plaintext
	case StatusNotForDevice:
		return PlaceholderNotForDevice
	default:
		return PlaceholderDecryptFailed
	}
}

type Skip struct {
	DeviceID uuid.UUID
	Err      error
}

// Report lists which devices were encrypted for and which were skipped.
type Report struct {
	Encrypted []uuid.UUID
	Skipped   []Skip
}

// Partial reports whether some, but not all, targets were encrypted.
func (r Report) Partial() bool {
	return len(r.Encrypted) > 0 && len(r.Skipped) > 0
}

// Err returns ErrPartialEncryption for a partial report and nil otherwise.
func (r Report) Err() error {
	if !r.Partial() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d devices skipped", pumpkin_errors.ErrPartialEncryption,
		len(r.Skipped), len(r.Skipped)+len(r.Encrypted))
}

type Encoder struct {
	provider crypto.Provider
	log      *logger.Logger
}

func NewEncoder(p crypto.Provider, log *logger.Logger) *Encoder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Encoder{provider: p, log: log}
}

// EncodeForDevices encrypts plaintext once per distinct active device, in
// parallel. Envelopes keep the order of devices. A device that cannot be
// encrypted for is logged and skipped; the call fails with
// ErrNoDevicesEncrypted only when no envelope was produced.
func (e *Encoder) EncodeForDevices(ctx context.Context, plaintext []byte, devices []device.Device) ([]message.Envelope, Report, error) {
	targets := dedupe(devices)

	type outcome struct {
		env message.Envelope
		err error
	}
	outcomes := make([]outcome, len(targets))

	var wg sync.WaitGroup
	for i, d := range targets {
		if !d.IsActive {
			outcomes[i].err = pumpkin_errors.ErrDeviceInactive
			continue
		}
		wg.Add(1)
		go func(i int, d device.Device) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return
			}
			ct, err := e.provider.Encrypt(plaintext, d.PublicKey)
			if err != nil {
				outcomes[i].err = err
				return
			}
			outcomes[i].env = message.Envelope{DeviceID: d.ID, Ciphertext: ct}
		}(i, d)
	}
	wg.Wait()

	var report Report
	envelopes := make([]message.Envelope, 0, len(targets))
	for i, o := range outcomes {
		if o.err != nil {
			e.log.Logger.Warn("skipping device in fan-out",
				zap.String("device_id", targets[i].ID.String()),
				zap.Error(o.err),
			)
			report.Skipped = append(report.Skipped, Skip{DeviceID: targets[i].ID, Err: o.err})
			continue
		}
		envelopes = append(envelopes, o.env)
		report.Encrypted = append(report.Encrypted, o.env.DeviceID)
	}

	if len(envelopes) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		return nil, report, pumpkin_errors.ErrNoDevicesEncrypted
	}
	return envelopes, report, nil
}

// PrepareOutgoing builds the envelope set for a new message: every sender
// device except the composing one, then every recipient device.
func (e *Encoder) PrepareOutgoing(ctx context.Context, plaintext []byte, composingDeviceID uuid.UUID, senderDevices, recipientDevices []device.Device) ([]message.Envelope, Report, error) {
	targets := make([]device.Device, 0, len(senderDevices)+len(recipientDevices))
	targets = append(targets, device.Without(senderDevices, composingDeviceID)...)
	targets = append(targets, device.Without(recipientDevices, composingDeviceID)...)
	return e.EncodeForDevices(ctx, plaintext, targets)
}

// DecodeForDevice finds the envelope for deviceID and decrypts it. The three
// outcomes are reported separately.
func (e *Encoder) DecodeForDevice(envelopes []message.Envelope, deviceID uuid.UUID, privateKey string) Result {
	env, ok := message.Find(envelopes, deviceID)
	if !ok {
		return Result{Status: StatusNotForDevice}
	}
	pt, err := e.provider.Decrypt(env.Ciphertext, privateKey)
	if err != nil {
		if !errors.Is(err, pumpkin_errors.ErrDecryptFailure) {
			err = fmt.Errorf("%w: %v", pumpkin_errors.ErrDecryptFailure, err)
		}
		return Result{Status: StatusDecryptFailed, Err: err}
	}
	return Result{Status: StatusDecrypted, Plaintext: string(pt)}
}

func dedupe(devices []device.Device) []device.Device {
	seen := make(map[uuid.UUID]struct{}, len(devices))
	out := make([]device.Device, 0, len(devices))
	for _, d := range devices {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}
