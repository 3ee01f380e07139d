// Package crypto implements the device key pair and per-device message
// encryption used by the fan-out encoder. Keys travel as base64 strings: the
// public key as PKIX/SPKI DER and the private key as PKCS#8 DER.
package crypto

import (
	"fmt"
	"strings"
)

// KeyPair holds base64 encoded key material for one device.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Provider encrypts a plaintext for a single device public key and reverses
// it with the matching private key. Decrypt never panics; any failure is
// reported as an error wrapping ErrDecryptFailure.
type Provider interface {
	Name() string
	GenerateKeyPair() (KeyPair, error)
	Encrypt(plaintext []byte, publicKey string) (string, error)
	Decrypt(ciphertext, privateKey string) ([]byte, error)
}

const (
	ProviderRSAOAEP = "rsa-oaep"
	ProviderHybrid  = "hybrid"
)

// NewProvider returns the provider registered under name.
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderRSAOAEP:
		return NewRSAOAEP(), nil
	case ProviderHybrid, "":
		return NewHybrid(), nil
	default:
		return nil, fmt.Errorf("unknown crypto provider %q", name)
	}
}
