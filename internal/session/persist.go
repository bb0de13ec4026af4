package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keyxmakerx/gatehouse/internal/plugins/auth"
)

// persistedState is the subset of store state that survives a process
// restart. Loading and error flags are transient and never written.
type persistedState struct {
	User            *auth.User `json:"user"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

// Persister saves and restores the persisted slice of session state.
// Implementations must tolerate Load before any Save (fresh install).
type Persister interface {
	Save(state persistedState) error
	// Load returns nil with no error when nothing has been persisted yet.
	Load() (*persistedState, error)
}

// DefaultStoreFile is the file name used when no explicit path is given,
// placed in the user cache directory.
const DefaultStoreFile = "auth-store.json"

// FilePersister stores session state as a JSON file on disk. It is the
// CLI/desktop equivalent of browser local storage.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to the given path. An empty
// path resolves to DefaultStoreFile under os.UserCacheDir.
func NewFilePersister(path string) (*FilePersister, error) {
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache dir: %w", err)
		}
		path = filepath.Join(dir, "gatehouse", DefaultStoreFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &FilePersister{path: path}, nil
}

// Save writes the state as JSON. The file is user-readable only: it holds
// the principal's identity and permission list.
func (p *FilePersister) Save(state persistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}

// Load reads previously saved state. A missing file is not an error -- it
// just means nothing was persisted yet. A corrupt file is treated the same
// way: the cache is disposable, the server remains the source of truth.
func (p *FilePersister) Load() (*persistedState, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	return &state, nil
}
