package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const hybridVersion byte = 1

// Hybrid wraps a fresh 32-byte content key with RSA-OAEP-SHA256 and seals the
// plaintext with XChaCha20-Poly1305 under that key. The encoded layout is
//
//	version(1) | wrappedKeyLen(2, big endian) | wrappedKey | nonce(24) | sealed
type Hybrid struct{}

func NewHybrid() *Hybrid {
	return &Hybrid{}
}

func (*Hybrid) Name() string { return ProviderHybrid }

func (*Hybrid) GenerateKeyPair() (KeyPair, error) {
	return generateRSAKeyPair()
}

func (*Hybrid) Encrypt(plaintext []byte, publicKey string) (string, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	return sealHybrid(pub, plaintext)
}

func (*Hybrid) Decrypt(ciphertext, privateKey string) ([]byte, error) {
	return open(ciphertext, privateKey)
}

func sealHybrid(pub *rsa.PublicKey, plaintext []byte) (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate content key: %w", err)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return "", fmt.Errorf("wrap content key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("create xchacha20-poly1305: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 3+len(wrapped)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, hybridVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(len(wrapped)))
	out = append(out, wrapped...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, []byte{hybridVersion})
	return base64.StdEncoding.EncodeToString(out), nil
}

// open decrypts either envelope layout. A bare RSA-OAEP block is exactly the
// key size; a hybrid envelope is always longer because it carries a wrapped
// key of that size plus header, nonce and tag.
func open(ciphertext, privateKey string) ([]byte, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, decryptFailure("%v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, decryptFailure("ciphertext is not base64")
	}
	if len(raw) == priv.Size() {
		return openRSA(priv, raw)
	}
	return openHybrid(priv, raw)
}

func openHybrid(priv *rsa.PrivateKey, raw []byte) ([]byte, error) {
	if len(raw) < 3 || raw[0] != hybridVersion {
		return nil, decryptFailure("unsupported envelope version")
	}
	wrappedLen := int(binary.BigEndian.Uint16(raw[1:3]))
	rest := raw[3:]
	if len(rest) < wrappedLen+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, decryptFailure("truncated envelope")
	}
	wrapped, rest := rest[:wrappedLen], rest[wrappedLen:]
	nonce, sealed := rest[:chacha20poly1305.NonceSizeX], rest[chacha20poly1305.NonceSizeX:]

	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, decryptFailure("unwrap content key: %v", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, decryptFailure("%v", err)
	}
	pt, err := aead.Open(nil, nonce, sealed, []byte{hybridVersion})
	if err != nil {
		return nil, decryptFailure("open payload: %v", err)
	}
	return pt, nil
}
