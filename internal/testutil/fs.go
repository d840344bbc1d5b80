package testutil

import (
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// ErrInjected is returned by operations a FailingFS was told to fail
var ErrInjected = errors.New("injected filesystem failure")

// FailingFS wraps a billy filesystem and fails renames onto chosen paths,
// which is the last step of an atomic write.
type FailingFS struct {
	billy.Filesystem

	mu      sync.Mutex
	renames map[string]int
}

// NewFailingFS wraps fs
func NewFailingFS(fs billy.Filesystem) *FailingFS {
	return &FailingFS{Filesystem: fs, renames: make(map[string]int)}
}

// FailRename makes the next times renames onto name fail
func (f *FailingFS) FailRename(name string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames[cleanName(name)] = times
}

// Rename fails with ErrInjected while failures are pending for to
func (f *FailingFS) Rename(from, to string) error {
	f.mu.Lock()
	name := cleanName(to)
	if n := f.renames[name]; n > 0 {
		f.renames[name] = n - 1
		f.mu.Unlock()
		return ErrInjected
	}
	f.mu.Unlock()
	return f.Filesystem.Rename(from, to)
}

func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
