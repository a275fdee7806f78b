package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// FileStore persists the encrypted secret blob as a mode-0600 file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed secret store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ ports.SecretStore = (*FileStore)(nil)

// Save writes the blob, creating parent directories as needed.
func (s *FileStore) Save(ctx context.Context, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create secret dir: %w", err)
	}
	if err := os.WriteFile(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return nil
}

// Load reads the blob, returning core.ErrNoWallet when nothing was saved.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNoWallet
		}
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}
	if len(blob) == 0 {
		return nil, core.ErrNoWallet
	}
	return blob, nil
}

// MemoryStore keeps the blob in memory. Test and ephemeral use only.
type MemoryStore struct {
	blob []byte
}

// NewMemoryStore creates an empty in-memory secret store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ ports.SecretStore = (*MemoryStore)(nil)

func (s *MemoryStore) Save(ctx context.Context, blob []byte) error {
	s.blob = append([]byte(nil), blob...)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	if len(s.blob) == 0 {
		return nil, core.ErrNoWallet
	}
	return append([]byte(nil), s.blob...), nil
}
