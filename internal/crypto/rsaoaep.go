package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// RSAOAEPMaxPlaintext is the largest plaintext RSA-2048 OAEP-SHA256 can seal.
const RSAOAEPMaxPlaintext = rsaKeyBits/8 - 2*sha256.Size - 2

// RSAOAEP encrypts directly with RSA-OAEP using SHA-256 for both the hash and
// MGF1. Plaintexts over the OAEP limit of the recipient key fall back to the
// hybrid layout, so every message has a readable envelope.
type RSAOAEP struct{}

func NewRSAOAEP() *RSAOAEP {
	return &RSAOAEP{}
}

func (*RSAOAEP) Name() string { return ProviderRSAOAEP }

func (*RSAOAEP) GenerateKeyPair() (KeyPair, error) {
	return generateRSAKeyPair()
}

func (*RSAOAEP) Encrypt(plaintext []byte, publicKey string) (string, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	if len(plaintext) > oaepLimit(pub) {
		return sealHybrid(pub, plaintext)
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("rsa-oaep encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (*RSAOAEP) Decrypt(ciphertext, privateKey string) ([]byte, error) {
	return open(ciphertext, privateKey)
}

func oaepLimit(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

func openRSA(priv *rsa.PrivateKey, raw []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
	if err != nil {
		return nil, decryptFailure("rsa-oaep: %v", err)
	}
	return pt, nil
}
