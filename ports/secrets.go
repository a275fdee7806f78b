package ports

import "context"

// SecretStore persists the password-wrapped recovery secret. Load returns
// core.ErrNoWallet when nothing has been persisted yet.
type SecretStore interface {
	Save(ctx context.Context, blob []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// PasswordValidator gates passwords accepted at wallet setup.
type PasswordValidator interface {
	Validate(password string) error
}
