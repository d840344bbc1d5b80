package state

import (
	"maps"
	"time"
)

// StateVersion is the schema version written to the state file
const StateVersion = "1.0.0"

// StateFileName is the default name of the state file
const StateFileName = "kirby-sync-state.json"

// SyncState is the persisted record of the last successful sync
type SyncState struct {
	// LastSync is nil until the first successful sync
	LastSync *time.Time `json:"lastSync"`
	// ContentHashes maps fully-qualified resource URLs to fingerprints
	ContentHashes map[string]string `json:"contentHashes"`
	Version       string            `json:"version"`
}

// NewSyncState creates a new empty sync state
func NewSyncState() *SyncState {
	return &SyncState{
		ContentHashes: make(map[string]string),
		Version:       StateVersion,
	}
}

// HashCount returns the number of tracked resources
func (s SyncState) HashCount() int {
	return len(s.ContentHashes)
}

// IsFresh reports whether no sync has completed yet
func (s SyncState) IsFresh() bool {
	return s.LastSync == nil
}

// Clone returns a deep copy
func (s *SyncState) Clone() SyncState {
	c := SyncState{
		ContentHashes: maps.Clone(s.ContentHashes),
		Version:       s.Version,
	}
	if c.ContentHashes == nil {
		c.ContentHashes = make(map[string]string)
	}
	if s.LastSync != nil {
		t := *s.LastSync
		c.LastSync = &t
	}
	return c
}
