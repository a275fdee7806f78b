package keystore

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// generateMnemonic produces a fresh 12-word BIP-39 phrase.
func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// deriveKey derives the signing key at m/44'/60'/0'/0/<index>. Only index 0
// is supported in the single-account model.
func deriveKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	if index > 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrUnsupportedAccountIndex, index)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, core.ErrInvalidSecret
	}

	seed := bip39.NewSeed(mnemonic, "")
	defer clear(seed)

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	defer master.Zero()

	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
		index,
	}
	key := master
	for _, step := range path {
		key, err = key.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	return priv.ToECDSA(), nil
}
