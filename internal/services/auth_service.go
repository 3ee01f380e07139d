package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const tokenIssuer = "pumpkin-chat"

type AuthService struct {
	users     repository.UserRepository
	devices   *DeviceService
	jwtSecret []byte
	accessTTL time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// AccessClaims binds a credential to one user and one device. The subject
// carries the user id.
type AccessClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput authenticates with a password and binds the credential either to
// an existing device (DeviceID) or to a new one (DeviceClass and PublicKey).
type LoginInput struct {
	Identity    string
	Password    string
	DeviceID    uuid.UUID
	DeviceClass device.Class
	PublicKey   string
}

type AuthResult struct {
	User        user.User
	Device      device.Device
	Credentials Credentials
}

func NewAuthService(users repository.UserRepository, devices *DeviceService, cfg *config.Config, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.NewNop()
	}
	ttl := 24 * time.Hour
	secret := "change-me"
	if cfg != nil {
		if cfg.JWTExpiryMin > 0 {
			ttl = cfg.AccessTTL()
		}
		if cfg.JWTSecret != "" {
			secret = cfg.JWTSecret
		}
	}
	return &AuthService{
		users:     users,
		devices:   devices,
		jwtSecret: []byte(secret),
		accessTTL: ttl,
		log:       log,
		now:       time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	username := strings.TrimSpace(in.Username)
	email := trimLower(in.Email)
	if len(username) < 3 || len(username) > 32 {
		return user.User{}, fmt.Errorf("%w: username must be 3-32 characters", pumpkin_errors.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return user.User{}, fmt.Errorf("%w: invalid email", pumpkin_errors.ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return user.User{}, fmt.Errorf("%w: password must be at least 8 characters", pumpkin_errors.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}
	u := &user.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, pumpkin_errors.ErrConflict) {
			return user.User{}, fmt.Errorf("%w: username or email taken", pumpkin_errors.ErrAlreadyExists)
		}
		return user.User{}, err
	}
	s.log.WithContext(ctx).Info("user registered", zap.String("user_id", u.ID.String()))
	return *u, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	u, err := s.lookupIdentity(ctx, in.Identity)
	if err != nil {
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", pumpkin_errors.ErrUnauthorized)
	}

	var d device.Device
	if in.DeviceID != uuid.Nil {
		d, err = s.devices.Get(ctx, in.DeviceID)
		if err != nil {
			return AuthResult{}, err
		}
		if d.UserID != u.ID {
			return AuthResult{}, pumpkin_errors.ErrNotFound
		}
		if !d.IsActive {
			d, err = s.devices.Reactivate(ctx, d.ID, u.ID)
			if err != nil {
				return AuthResult{}, err
			}
		}
	} else {
		d, err = s.devices.Register(ctx, u.ID, in.DeviceClass, in.PublicKey)
		if err != nil {
			return AuthResult{}, err
		}
	}

	creds, err := s.IssueCredentials(u.ID, d.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Device: d, Credentials: creds}, nil
}

func (s *AuthService) lookupIdentity(ctx context.Context, identity string) (user.User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return user.User{}, fmt.Errorf("%w: identity is required", pumpkin_errors.ErrInvalidInput)
	}
	var (
		u   user.User
		err error
	)
	if strings.Contains(identity, "@") {
		u, err = s.users.GetUserByEmail(ctx, strings.ToLower(identity))
	} else {
		u, err = s.users.GetUserByUsername(ctx, identity)
	}
	if err != nil {
		if isNotFound(err) {
			return user.User{}, fmt.Errorf("%w: invalid credentials", pumpkin_errors.ErrUnauthorized)
		}
		return user.User{}, err
	}
	return u, nil
}

// IssueCredentials signs an access token for the device.
func (s *AuthService) IssueCredentials(userID, deviceID uuid.UUID) (Credentials, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	claims := AccessClaims{
		DeviceID: deviceID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (Principal, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Principal{}, pumpkin_errors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, pumpkin_errors.ErrUnauthorized
	}
	deviceID, err := uuid.Parse(claims.DeviceID)
	if err != nil {
		return Principal{}, pumpkin_errors.ErrUnauthorized
	}
	return Principal{UserID: userID, DeviceID: deviceID}, nil
}

// Authenticate parses the token and checks that the bound device is still
// active. A deactivated device loses access immediately.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (Principal, error) {
	p, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return Principal{}, err
	}
	if _, err := s.devices.RequireActive(ctx, p.DeviceID, p.UserID); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (user.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
}
