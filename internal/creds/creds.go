package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Credentials is the stored WebDAV login, written by `nextsync login`.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Parse parses JSON bytes into Credentials.
func Parse(data []byte) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if c.Username == "" {
		return nil, fmt.Errorf("credentials file has no username")
	}
	return &c, nil
}

// LoadFromFile loads Credentials from a local file path.
func LoadFromFile(path string) (*Credentials, error) {
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// SaveToFile writes Credentials with owner-only permissions.
func SaveToFile(path string, c *Credentials) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ExpandPath resolves a leading ~/ against the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
