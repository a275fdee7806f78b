// Package keystore is the single source of truth for "can we sign right
// now". It is the only package that touches raw key material.
package keystore

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// KeyStore derives, encrypts at rest, and exposes a signing capability
// gated by lock/unlock. Exactly one signing key is active at a time.
type KeyStore struct {
	mu        sync.Mutex
	secrets   ports.SecretStore
	passwords ports.PasswordValidator
	kdf       KDFParams

	key     *ecdsa.PrivateKey // nil while locked
	address common.Address
}

// Option configures a KeyStore.
type Option func(*KeyStore)

// WithKDFParams overrides the scrypt cost parameters. Tests use light
// parameters to keep unlock cheap.
func WithKDFParams(p KDFParams) Option {
	return func(k *KeyStore) { k.kdf = p }
}

// New creates a locked KeyStore over the given secret persistence.
func New(secrets ports.SecretStore, passwords ports.PasswordValidator, opts ...Option) *KeyStore {
	k := &KeyStore{
		secrets:   secrets,
		passwords: passwords,
		kdf:       DefaultKDFParams,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Setup creates (or overwrites) the wallet. An empty mnemonic generates a
// fresh phrase; a supplied one is validated against its checksum. The
// derived address and the phrase in use are returned, and the store is left
// unlocked. Callers must gate overwrites behind explicit user confirmation.
func (k *KeyStore) Setup(ctx context.Context, password, mnemonic string) (common.Address, string, error) {
	if k.passwords != nil {
		if err := k.passwords.Validate(password); err != nil {
			return common.Address{}, "", err
		}
	}

	if mnemonic == "" {
		var err error
		mnemonic, err = generateMnemonic()
		if err != nil {
			return common.Address{}, "", err
		}
	}

	key, err := deriveKey(mnemonic, 0)
	if err != nil {
		return common.Address{}, "", err
	}

	passwordBytes := []byte(password)
	blob, err := sealSecret([]byte(mnemonic), passwordBytes, k.kdf)
	clear(passwordBytes)
	if err != nil {
		return common.Address{}, "", err
	}
	if err := k.secrets.Save(ctx, blob); err != nil {
		return common.Address{}, "", fmt.Errorf("failed to persist encrypted secret: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.dropKey()
	k.key = key
	k.address = crypto.PubkeyToAddress(key.PublicKey)
	return k.address, mnemonic, nil
}

// Unlock decrypts the persisted secret and rederives the signing key. A
// failed unlock leaves the store locked. When no wallet exists the KDF is
// still run so the failure is not cheaply distinguishable from a wrong
// password.
func (k *KeyStore) Unlock(ctx context.Context, password string) (common.Address, error) {
	passwordBytes := []byte(password)
	defer clear(passwordBytes)

	blob, err := k.secrets.Load(ctx)
	if err != nil {
		if errors.Is(err, core.ErrNoWallet) {
			burnPassword(passwordBytes, k.kdf)
			return common.Address{}, core.ErrInvalidPassword
		}
		return common.Address{}, fmt.Errorf("failed to load encrypted secret: %w", err)
	}

	secret, err := openSecret(blob, passwordBytes)
	if err != nil {
		return common.Address{}, err
	}
	mnemonic := string(secret)
	clear(secret)

	key, err := deriveKey(mnemonic, 0)
	if err != nil {
		return common.Address{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	k.address = crypto.PubkeyToAddress(key.PublicKey)
	return k.address, nil
}

// Lock discards the in-memory signing key. Always succeeds.
func (k *KeyStore) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.dropKey()
}

// Unlocked reports whether a signing key is active.
func (k *KeyStore) Unlocked() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key != nil
}

// Initialized reports whether an encrypted secret has been persisted.
func (k *KeyStore) Initialized(ctx context.Context) bool {
	_, err := k.secrets.Load(ctx)
	return err == nil
}

// Address returns the active account address, or core.ErrLocked.
func (k *KeyStore) Address() (common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return common.Address{}, core.ErrLocked
	}
	return k.address, nil
}

// DeriveAccount returns the address at the given account index. Only index
// 0 exists in the single-account model.
func (k *KeyStore) DeriveAccount(index uint32) (common.Address, error) {
	if index > 0 {
		return common.Address{}, fmt.Errorf("%w: %d", core.ErrUnsupportedAccountIndex, index)
	}
	return k.Address()
}

// SignMessage signs data as an EIP-191 personal message and returns the
// 65-byte [R||S||V] signature with V in {27,28}.
func (k *KeyStore) SignMessage(data []byte) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return nil, core.ErrLocked
	}
	sig, err := crypto.Sign(accounts.TextHash(data), k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignTypedData signs EIP-712 v4 typed data.
func (k *KeyStore) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return nil, core.ErrLocked
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	sig, err := crypto.Sign(hash, k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignTx signs a transaction for the given chain.
func (k *KeyStore) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return nil, core.ErrLocked
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// dropKey zeroes and discards the key. Callers hold k.mu.
func (k *KeyStore) dropKey() {
	if k.key != nil {
		k.key.D.SetInt64(0)
		k.key = nil
	}
	k.address = common.Address{}
}
