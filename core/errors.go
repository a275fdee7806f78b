package core

import (
	"errors"
)

var (
	// ErrLocked is returned when signing is attempted without an unlocked key
	ErrLocked = errors.New("wallet is locked")

	// ErrInvalidPassword is returned when the password does not decrypt the stored secret
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidSecret is returned when a recovery phrase fails checksum validation
	ErrInvalidSecret = errors.New("invalid recovery phrase")

	// ErrNoWallet is returned when no encrypted secret has been persisted yet
	ErrNoWallet = errors.New("wallet is not initialized")

	// ErrNotConnected is returned when a method requires a session that does not exist
	ErrNotConnected = errors.New("origin is not connected")

	// ErrUnsupportedChain is returned when a chain id is not in the supported set
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrUserRejected is returned when the user declines an approval prompt
	ErrUserRejected = errors.New("user rejected the request")

	// ErrBridgeUnavailable is returned when the privileged context is unreachable
	ErrBridgeUnavailable = errors.New("bridge unavailable")

	// ErrUnsupportedAccountIndex is returned for derivation indexes beyond 0
	ErrUnsupportedAccountIndex = errors.New("unsupported account index")

	// ErrInvalidOrigin is returned when an origin cannot be normalized
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidParams is returned when request params do not match the method
	ErrInvalidParams = errors.New("invalid params")

	// ErrNotFound is returned by stores when a key is absent
	ErrNotFound = errors.New("not found")

	// ErrStoreOperationFailed is returned when a store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)
