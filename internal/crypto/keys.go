package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

const (
	rsaKeyBits = 2048
	minKeyBits = 2048
)

func generateRSAKeyPair() (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	return KeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(pubDER),
		PrivateKey: base64.StdEncoding.EncodeToString(privDER),
	}, nil
}

// ParsePublicKey decodes a base64 SPKI RSA public key of at least 2048 bits.
func ParsePublicKey(publicKey string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not base64", pumpkin_errors.ErrInvalidInput)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", pumpkin_errors.ErrInvalidInput, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", pumpkin_errors.ErrInvalidInput)
	}
	if rsaKey.N.BitLen() < minKeyBits {
		return nil, fmt.Errorf("%w: public key shorter than %d bits", pumpkin_errors.ErrInvalidInput, minKeyBits)
	}
	return rsaKey, nil
}

// ValidatePublicKey reports whether publicKey can be used as an encryption target.
func ValidatePublicKey(publicKey string) error {
	_, err := ParsePublicKey(publicKey)
	return err
}

// ParsePrivateKey decodes a base64 PKCS#8 RSA private key.
func ParsePrivateKey(privateKey string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return nil, errors.New("private key is not base64")
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}

// PublicKeyOf derives the base64 SPKI public key from a private key.
func PublicKeyOf(privateKey string) (string, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// PrivateKeyToPEM wraps a base64 PKCS#8 key in a "PRIVATE KEY" PEM block.
func PrivateKeyToPEM(privateKey string) ([]byte, error) {
	der, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return nil, errors.New("private key is not base64")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// PrivateKeyFromPEM returns the base64 PKCS#8 key held in a PEM block.
func PrivateKeyFromPEM(data []byte) (string, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PRIVATE KEY" {
		return "", errors.New("no PRIVATE KEY block found")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(block.Bytes), nil
}

func decryptFailure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", pumpkin_errors.ErrDecryptFailure, fmt.Sprintf(format, args...))
}
