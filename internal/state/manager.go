package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Manager owns the in-memory sync state and its file on disk. All methods
// are safe for concurrent use.
type Manager struct {
	path     string
	state    *SyncState
	mu       sync.RWMutex
	dirty    bool
	logger   *utils.Logger
	seenURLs sync.Map
}

type ManagerOptions struct {
	// Path is the full path of the state file
	Path   string
	Logger *utils.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Manager{
		path:   opts.Path,
		logger: logger.WithComponent("state"),
		state:  NewSyncState(),
	}
}

// Load reads the state file. On any failure the manager keeps a fresh empty
// state and the returned error only describes why.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = NewSyncState()
	m.dirty = false
	m.seenURLs.Clear()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrStateNotFound
	}
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}

	state, err := decodeState(data)
	if err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			m.logger.Warn().
				Str("path", m.path).
				Str("expected_version", StateVersion).
				Msg("State version mismatch, will rebuild state")
		}
		return err
	}

	m.state = state
	return nil
}

func decodeState(data []byte) (*SyncState, error) {
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupted, err)
	}
	if state.Version != StateVersion {
		return nil, fmt.Errorf("%w: got %q", ErrVersionMismatch, state.Version)
	}
	if state.ContentHashes == nil {
		state.ContentHashes = make(map[string]string)
	}
	return &state, nil
}

// Save writes the state atomically (temp file + rename). It is a no-op when
// nothing changed since the last load or save.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}

	if err := writeFileAtomic(m.path, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	m.dirty = false
	m.logger.Debug().
		Int("hashes", len(m.state.ContentHashes)).
		Str("path", m.path).
		Msg("State saved")
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// HasChanged reports whether fingerprint differs from the recorded one.
// Unknown URLs are always changed.
func (m *Manager) HasChanged(url, fingerprint string) bool {
	m.MarkSeen(url)

	m.mu.RLock()
	defer m.mu.RUnlock()

	prev, exists := m.state.ContentHashes[url]
	return !exists || prev != fingerprint
}

// Record stores the fingerprint of url
func (m *Manager) Record(url, fingerprint string) {
	m.MarkSeen(url)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.ContentHashes[url] == fingerprint {
		return
	}
	m.state.ContentHashes[url] = fingerprint
	m.dirty = true
}

// Reset discards every hash and stamps lastSync, as a full sync does
func (m *Manager) Reset(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = NewSyncState()
	m.state.LastSync = &now
	m.dirty = true
	m.seenURLs.Clear()
}

// Touch stamps lastSync
func (m *Manager) Touch(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastSync = &now
	m.dirty = true
}

// MarkSeen records that url was visited during the current run
func (m *Manager) MarkSeen(url string) {
	m.seenURLs.Store(url, true)
}

// PruneUnseen drops hashes of resources not visited during this run, for
// example pages removed from the CMS. It returns how many were dropped.
func (m *Manager) PruneUnseen() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for url := range m.state.ContentHashes {
		if _, seen := m.seenURLs.Load(url); !seen {
			delete(m.state.ContentHashes, url)
			pruned++
		}
	}
	if pruned > 0 {
		m.dirty = true
	}
	return pruned
}

// LastSync returns the time of the last successful sync, nil if none
func (m *Manager) LastSync() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state.LastSync == nil {
		return nil
	}
	t := *m.state.LastSync
	return &t
}

// Snapshot returns a deep copy of the current state
func (m *Manager) Snapshot() SyncState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Clone()
}

// Bytes returns the state as it would be written to disk
func (m *Manager) Bytes() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return json.MarshalIndent(m.state, "", "  ")
}

// Restore replaces the in-memory state with a serialized one and marks it
// for saving. Invalid data leaves the current state untouched.
func (m *Manager) Restore(data []byte) error {
	state, err := decodeState(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state
	m.dirty = true
	m.seenURLs.Clear()
	return nil
}

// Exists reports whether the state file is present on disk
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the state file location
func (m *Manager) Path() string {
	return m.path
}

// Stats returns the number of tracked resources and how many of them were
// visited during the current run.
func (m *Manager) Stats() (total, seen int) {
	m.mu.RLock()
	total = len(m.state.ContentHashes)
	m.mu.RUnlock()

	m.seenURLs.Range(func(_, _ any) bool {
		seen++
		return true
	})
	return total, seen
}
