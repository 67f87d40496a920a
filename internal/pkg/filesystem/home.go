package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// UserHome returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// ExpandPath resolves a leading "~/" against the home directory.
func ExpandPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHome(), path[2:])
	}
	return filepath.Clean(path)
}
