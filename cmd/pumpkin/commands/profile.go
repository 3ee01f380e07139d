package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
)

const (
	profileFile = "profile.json"
	keyFile     = "device_key.pem"
)

var errNoProfile = errors.New("not logged in: run `pumpkin login` or `pumpkin redeem` first")

// profile is the signed-in device kept under --home. The private key lives
// in its own PEM file next to it.
type profile struct {
	Server      string `json:"server"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	DeviceID    string `json:"device_id"`
	DeviceClass string `json:"device_class"`
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	Provider    string `json:"provider"`
}

func (p *profile) userID() uuid.UUID {
	id, _ := uuid.Parse(p.UserID)
	return id
}

func (p *profile) deviceID() uuid.UUID {
	id, _ := uuid.Parse(p.DeviceID)
	return id
}

func loadProfile(dir string) (*profile, error) {
	var p profile
	ok, err := readJSON(filepath.Join(dir, profileFile), &p)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if !ok || p.AccessToken == "" {
		return nil, errNoProfile
	}
	return &p, nil
}

func saveProfile(dir string, p *profile) error {
	return writeJSON(filepath.Join(dir, profileFile), p, 0o600)
}

// loadKey returns the device private key, or "" when none was generated yet.
func loadKey(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, keyFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return crypto.PrivateKeyFromPEM(b)
}

func saveKey(dir, privateKey string) error {
	b, err := crypto.PrivateKeyToPEM(privateKey)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, keyFile), b, 0o600)
}

// readJSON reads path into out; a missing file reports false.
func readJSON(path string, out any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b, mode)
}

// writeFile writes via a temp file then rename.
func writeFile(path string, b []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
