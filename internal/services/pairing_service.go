package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/pairing"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const (
	pairingTokenBytes  = 32
	pairingIssueTries  = 3
	PairingURIScheme   = "pumpkin"
	defaultPairingTTL  = 5 * time.Minute
	pairingReleaseWait = 5 * time.Second
)

// CredentialIssuer signs credentials for a freshly paired device.
type CredentialIssuer interface {
	IssueCredentials(userID, deviceID uuid.UUID) (Credentials, error)
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	QRPayload string
}

type RedeemResult struct {
	UserID      uuid.UUID
	Device      device.Device
	Credentials Credentials
}

type PairingService struct {
	repo    repository.PairingRepository
	devices *DeviceService
	issuer  CredentialIssuer
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time
}

func NewPairingService(repo repository.PairingRepository, devices *DeviceService, issuer CredentialIssuer, cfg *config.Config, log *logger.Logger) *PairingService {
	ttl := defaultPairingTTL
	if cfg != nil && cfg.PairingTokenTTLMin > 0 {
		ttl = cfg.PairingTokenTTL()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PairingService{repo: repo, devices: devices, issuer: issuer, ttl: ttl, log: log, now: time.Now}
}

// HashToken returns the stored form of a pairing token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// QRPayload is the string encoded into the pairing QR code.
func QRPayload(token string) string {
	u := url.URL{Scheme: PairingURIScheme, Host: "pair"}
	q := url.Values{}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenFromPayload accepts either a raw token or a QR payload.
func TokenFromPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, PairingURIScheme+"://") {
		return payload
	}
	u, err := url.Parse(payload)
	if err != nil {
		return payload
	}
	return u.Query().Get("token")
}

// Issue creates a single-use pairing token for the user. Earlier unused tokens
// are invalidated so only the newest code can be redeemed.
func (s *PairingService) Issue(ctx context.Context, userID uuid.UUID) (IssuedToken, error) {
	if userID == uuid.Nil {
		return IssuedToken{}, fmt.Errorf("%w: user id is required", pumpkin_errors.ErrInvalidInput)
	}
	now := s.now()
	log := s.log.WithContext(ctx)

	if _, err := s.repo.PurgeExpired(ctx, userID, now); err != nil {
		log.Warn("failed to purge expired pairing tokens", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if _, err := s.repo.InvalidateUserTokens(ctx, userID, now); err != nil {
		return IssuedToken{}, err
	}

	for attempt := 1; attempt <= pairingIssueTries; attempt++ {
		raw, err := randomToken()
		if err != nil {
			return IssuedToken{}, err
		}
		t := &pairing.Token{
			TokenHash: HashToken(raw),
			UserID:    userID,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		}
		err = s.repo.Create(ctx, t)
		if errors.Is(err, pumpkin_errors.ErrConflict) {
			log.Warn("pairing token collision", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return IssuedToken{}, err
		}
		log.Info("pairing token issued", zap.String("user_id", userID.String()), zap.Time("expires_at", t.ExpiresAt))
		return IssuedToken{Token: raw, ExpiresAt: t.ExpiresAt, QRPayload: QRPayload(raw)}, nil
	}
	return IssuedToken{}, fmt.Errorf("%w: could not allocate a unique pairing token", pumpkin_errors.ErrConflict)
}

// Redeem consumes the token and registers the new device for the token's
// user. If registration fails the token is released so it can be retried.
func (s *PairingService) Redeem(ctx context.Context, token string, class device.Class, publicKey string) (RedeemResult, error) {
	token = TokenFromPayload(token)
	if token == "" {
		return RedeemResult{}, fmt.Errorf("%w: token is required", pumpkin_errors.ErrInvalidInput)
	}
	class = device.Class(trimLower(string(class)))
	if !class.Valid() {
		return RedeemResult{}, fmt.Errorf("%w: unknown device class %q", pumpkin_errors.ErrInvalidInput, class)
	}
	if err := crypto.ValidatePublicKey(strings.TrimSpace(publicKey)); err != nil {
		return RedeemResult{}, err
	}

	hash := HashToken(token)
	consumed, err := s.repo.Consume(ctx, hash, s.now())
	if err != nil {
		return RedeemResult{}, err
	}

	d, err := s.devices.Register(ctx, consumed.UserID, class, publicKey)
	if err != nil {
		s.release(ctx, consumed)
		return RedeemResult{}, err
	}

	var creds Credentials
	if s.issuer != nil {
		creds, err = s.issuer.IssueCredentials(consumed.UserID, d.ID)
		if err != nil {
			s.discard(ctx, d)
			s.release(ctx, consumed)
			return RedeemResult{}, err
		}
	}

	s.log.WithContext(ctx).Info("pairing token redeemed",
		zap.String("user_id", consumed.UserID.String()),
		zap.String("device_id", d.ID.String()),
	)
	return RedeemResult{UserID: consumed.UserID, Device: d, Credentials: creds}, nil
}

// discard frees the cap slot taken by a device that never received credentials.
func (s *PairingService) discard(ctx context.Context, d device.Device) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pairingReleaseWait)
	defer cancel()
	if err := s.devices.Deactivate(ctx, d.ID, d.UserID); err != nil {
		s.log.WithContext(ctx).Error("failed to deactivate uncredentialed device",
			zap.String("device_id", d.ID.String()), zap.Error(err))
	}
}

func (s *PairingService) release(ctx context.Context, t pairing.Token) {
	if t.UsedAt == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pairingReleaseWait)
	defer cancel()
	if err := s.repo.Release(ctx, t.TokenHash, *t.UsedAt); err != nil {
		s.log.WithContext(ctx).Error("failed to release pairing token",
			zap.String("user_id", t.UserID.String()), zap.Error(err))
	}
}

// Invalidate supersedes every outstanding token of the user.
func (s *PairingService) Invalidate(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.InvalidateUserTokens(ctx, userID, s.now())
}

// PurgeExpired deletes expired tokens across all users.
func (s *PairingService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, uuid.Nil, s.now())
}

// RunSweeper purges expired tokens every interval until ctx is done.
func (s *PairingService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Warnf("pairing token sweep failed: %v", err)
				continue
			}
			if n > 0 {
				s.log.Debugf("purged %d expired pairing tokens", n)
			}
		}
	}
}

func randomToken() (string, error) {
	buf := make([]byte, pairingTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
