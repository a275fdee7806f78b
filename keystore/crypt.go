package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/Osamakahen/freo-wallet-sub001/core"
)

const (
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12
)

// KDFParams are the scrypt cost parameters baked into each sealed blob, so
// old blobs stay decryptable after a default change.
type KDFParams struct {
	N int
	R int
	P int
}

// DefaultKDFParams targets interactive unlock latency (~32MB, well under
// mobile per-app memory limits).
var DefaultKDFParams = KDFParams{N: 1 << 15, R: 8, P: 1}

// EncryptedSecret is the persisted, password-wrapped form of the recovery
// secret. Iterations holds the scrypt N cost.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	R          int    `json:"r"`
	P          int    `json:"p"`
}

// sealSecret encrypts the secret under the password and returns the JSON
// blob for the secret store. The caller should zero both inputs after use.
func sealSecret(secret, password []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, secret, nil)

	blob, err := json.Marshal(EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Iterations: params.N,
		R:          params.R,
		P:          params.P,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal encrypted secret: %w", err)
	}
	return blob, nil
}

// openSecret decrypts a sealed blob. Any tampering or wrong password fails
// closed with core.ErrInvalidPassword; garbage is never returned.
func openSecret(blob, password []byte) ([]byte, error) {
	var sealed EncryptedSecret
	if err := json.Unmarshal(blob, &sealed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal encrypted secret: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode iv: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(sealed.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	key, err := scrypt.Key(password, salt, sealed.Iterations, sealed.R, sealed.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	secret, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, core.ErrInvalidPassword
	}
	return secret, nil
}

// burnPassword runs the KDF against a throwaway salt. Used when no wallet
// exists so a failed unlock costs the same as a wrong password.
func burnPassword(password []byte, params KDFParams) {
	salt := make([]byte, saltLen)
	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, scryptKeyLen)
	if err == nil {
		clear(key)
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
