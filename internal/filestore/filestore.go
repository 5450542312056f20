// Package filestore persists uploaded document files. The database keeps
// only the storage path; bytes live on local disk or, when
// USE_REMOTE_UPLOAD=1, in an S3-compatible bucket.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store saves and loads document files by storage path.
type Store interface {
	// Save writes the file and returns the storage path recorded on the
	// document (relative for local storage, object key for remote).
	Save(sessionID, fileName string, content []byte) (string, error)
	Load(path string) ([]byte, error)
	// Remote reports whether paths are object keys rather than local
	// files.
	Remote() bool
}

// LocalStore keeps files under baseDir/<session_id>/<file>.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local file store rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (l *LocalStore) Save(sessionID, fileName string, content []byte) (string, error) {
	sessionDir := filepath.Join(l.baseDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	fullPath := filepath.Join(sessionDir, fileName)
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document file: %w", err)
	}

	return filepath.Join(sessionID, fileName), nil
}

func (l *LocalStore) Load(path string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(l.baseDir, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	return content, nil
}

func (l *LocalStore) Remote() bool { return false }
