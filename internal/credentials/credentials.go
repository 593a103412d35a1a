// Package credentials loads the Sup auth session token from the filesystem.
//
// The token file holds the value of the auth_session cookie. Tokens are
// loaded once per sync loop start and are never persisted elsewhere.
package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Load resolves path to a session token string. A leading "~" refers to the
// current user's home directory. The file content is trimmed of surrounding
// whitespace; a missing file or an empty result is an error.
func Load(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("auth session path not set")
	}

	resolved, err := ExpandHome(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		slog.Error("Failed to read auth session file", "error", err, "path", resolved)
		return "", fmt.Errorf("read auth session file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		slog.Error("Auth session file is empty", "path", resolved)
		return "", fmt.Errorf("auth session file %s is empty", resolved)
	}

	slog.Debug("Auth session loaded", "path", resolved, "token_length", len(token))
	return token, nil
}

// ExpandHome replaces a leading "~" in path with the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
