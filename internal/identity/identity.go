// Package identity holds the device-side participant identity. The server
// binaries never import it; client programs call Load to obtain the stable id
// they present on every request and WebSocket subscription.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Load returns the device's stable participant id, generating and persisting
// a fresh one on first use. Subsequent calls against the same path return
// the stored value unchanged.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read participant id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist participant id: %w", err)
	}
	return id, nil
}

// DefaultPath returns the conventional location of the identity file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "spyroom", "participant_id"), nil
}
