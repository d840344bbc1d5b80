package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the parent directory of path exists
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// CleanRelPath normalizes a slash separated relative path coming from the
// CMS and rejects anything that would escape the content directory.
func CleanRelPath(rel string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(rel, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path %q", rel)
	}
	for _, part := range strings.Split(strings.Trim(rel, "/"), "/") {
		if part == ".." {
			return "", fmt.Errorf("path %q escapes the content directory", rel)
		}
	}
	return cleaned, nil
}
