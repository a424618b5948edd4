// Package breakpoint stores per-audio ordered resume points, independent
// across audio ids, with whole-file atomic persistence.
package breakpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"showconsole/internal/errors"
	"showconsole/internal/logging"
	"showconsole/internal/model"
)

var log = logging.ForService("breakpoint")

// Store is a mapping from audio_id to an ordered (insertion-order) list of
// breakpoints for that audio. Mutations on one audio never touch another's.
type Store struct {
	mu   sync.RWMutex
	byID map[string][]model.Breakpoint
}

// New returns an empty breakpoint store.
func New() *Store {
	return &Store{byID: make(map[string][]model.Breakpoint)}
}

// Save appends a new breakpoint for audioID and returns its generated id.
func (s *Store) Save(audioID string, position float64, label string, autoSaved bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp := model.Breakpoint{
		ID:        uuid.NewString(),
		AudioID:   audioID,
		Position:  position,
		Label:     label,
		CreatedAt: time.Now(),
		AutoSaved: autoSaved,
	}
	s.byID[audioID] = append(s.byID[audioID], bp)
	log.Debug("saved breakpoint", "audio_id", audioID, "bp_id", bp.ID, "auto_saved", autoSaved)
	return bp.ID
}

// GetAll returns a copy of every breakpoint saved for audioID, in the
// order they were saved. Returns an empty (non-nil) slice if none exist.
func (s *Store) GetAll(audioID string) []model.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.byID[audioID]
	out := make([]model.Breakpoint, len(existing))
	copy(out, existing)
	return out
}

// Get looks up a single breakpoint by audio id and breakpoint id.
func (s *Store) Get(audioID, bpID string) (model.Breakpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bp := range s.byID[audioID] {
		if bp.ID == bpID {
			return bp, true
		}
	}
	return model.Breakpoint{}, false
}

// Delete removes one breakpoint by audio id and breakpoint id.
func (s *Store) Delete(audioID, bpID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byID[audioID]
	for i, bp := range list {
		if bp.ID == bpID {
			s.byID[audioID] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAudio drops every breakpoint for audioID; a no-op if none existed.
func (s *Store) ClearAudio(audioID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, audioID)
}

// ClearSelected removes any breakpoint whose id appears in ids, scanning
// every audio's list, and returns the number actually deleted.
func (s *Store) ClearSelected(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for audioID, list := range s.byID {
		kept := list[:0:0]
		for _, bp := range list {
			if _, match := want[bp.ID]; match {
				deleted++
				continue
			}
			kept = append(kept, bp)
		}
		s.byID[audioID] = kept
	}
	return deleted
}

// AllIDs returns every breakpoint id currently stored, across all audios.
func (s *Store) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, list := range s.byID {
		for _, bp := range list {
			ids = append(ids, bp.ID)
		}
	}
	return ids
}

// LoadFromFile replaces the store's contents from a JSON breakpoints file.
// A missing file is not an error.
func (s *Store) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.FileError(err, path, 0).Category(errors.CategoryFileIO).Build()
	}
	var m map[string][]model.Breakpoint
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.FileError(err, path, int64(len(data))).Build()
	}
	s.mu.Lock()
	s.byID = m
	s.mu.Unlock()
	log.Info("loaded breakpoints", "path", path, "audios", len(m))
	return nil
}

// SaveToFile writes the store's contents to path atomically
// (write-temp-then-rename), pretty-printed per the on-disk contract.
func (s *Store) SaveToFile(path string) error {
	s.mu.RLock()
	snapshot := make(map[string][]model.Breakpoint, len(s.byID))
	for k, v := range s.byID {
		list := make([]model.Breakpoint, len(v))
		copy(list, v)
		snapshot[k] = list
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err).Category(errors.CategoryFileIO).Build()
	}
	if err := writeFileAtomic(path, data); err != nil {
		return errors.FileError(err, path, int64(len(data))).Build()
	}
	log.Info("saved breakpoints", "path", path, "audios", len(snapshot))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // data dir, not secret material
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup if rename succeeds first

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
