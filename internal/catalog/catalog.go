// Package catalog holds the ordered cue list and the audio-track registry
// it references, tracking the current-cue index across edits.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"showconsole/internal/errors"
	"showconsole/internal/logging"
	"showconsole/internal/model"
)

var log = logging.ForService("catalog")

// Catalog is the in-memory ordered cue list plus the audio-track registry.
// All mutating operations hold an internal lock; callers never need their
// own synchronization.
type Catalog struct {
	mu           sync.RWMutex
	cues         []model.Cue
	audioFiles   []model.AudioTrack
	currentIndex int
	configName   string
	configVer    string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{configVer: "1.0"}
}

// Cues returns a read-only copy of the cue list.
func (c *Catalog) Cues() []model.Cue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Cue, len(c.cues))
	copy(out, c.cues)
	return out
}

// AudioFiles returns a read-only copy of the audio-track registry.
func (c *Catalog) AudioFiles() []model.AudioTrack {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.AudioTrack, len(c.audioFiles))
	copy(out, c.audioFiles)
	return out
}

// CurrentIndex returns the current cue index.
func (c *Catalog) CurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIndex
}

// CueCount returns the number of cues.
func (c *Catalog) CueCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cues)
}

// CurrentCue returns the cue at the current index, or nil if the catalog
// is empty or the index is out of bounds.
func (c *Catalog) CurrentCue() *model.Cue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentCueLocked()
}

func (c *Catalog) currentCueLocked() *model.Cue {
	if len(c.cues) == 0 || c.currentIndex >= len(c.cues) {
		return nil
	}
	cue := c.cues[c.currentIndex]
	return &cue
}

// NextCue returns the cue following the current index, or nil if there is none.
func (c *Catalog) NextCue() *model.Cue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	next := c.currentIndex + 1
	if len(c.cues) == 0 || next >= len(c.cues) {
		return nil
	}
	cue := c.cues[next]
	return &cue
}

// CueByID looks up a cue by id.
func (c *Catalog) CueByID(cueID string) *model.Cue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.cues {
		if c.cues[i].ID == cueID {
			cue := c.cues[i]
			return &cue
		}
	}
	return nil
}

// CueByIndex looks up a cue by position.
func (c *Catalog) CueByIndex(index int) *model.Cue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.cues) {
		return nil
	}
	cue := c.cues[index]
	return &cue
}

// CueIndex returns the index of a cue by id, or -1 if not present.
func (c *Catalog) CueIndex(cueID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.cues {
		if c.cues[i].ID == cueID {
			return i
		}
	}
	return -1
}

// ContainsCue reports whether the given cue id exists.
func (c *Catalog) ContainsCue(cueID string) bool {
	return c.CueIndex(cueID) >= 0
}

// Advance moves to the next cue and returns it, or returns nil without
// moving the index if already at the last cue.
func (c *Catalog) Advance() *model.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentIndex < len(c.cues)-1 {
		c.currentIndex++
		return c.currentCueLocked()
	}
	return nil
}

// Reset moves the current index back to 0.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentIndex = 0
}

// SetIndex sets the current index directly; returns false if out of range.
func (c *Catalog) SetIndex(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.cues) {
		return false
	}
	c.currentIndex = index
	return true
}

// AddCue appends a cue to the end of the list.
func (c *Catalog) AddCue(cue model.Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cues = append(c.cues, cue)
}

// InsertCue inserts a cue at index, shifting current-index adjustment
// rules per the catalog's edit contract.
func (c *Catalog) InsertCue(index int, cue model.Cue) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index > len(c.cues) {
		return false
	}
	c.cues = append(c.cues, model.Cue{})
	copy(c.cues[index+1:], c.cues[index:])
	c.cues[index] = cue
	if index <= c.currentIndex {
		c.currentIndex++
	}
	return true
}

// RemoveCue removes a cue by id, adjusting the current index so it still
// points at the same logical cue whenever possible.
func (c *Catalog) RemoveCue(cueID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cues {
		if c.cues[i].ID != cueID {
			continue
		}
		c.cues = append(c.cues[:i], c.cues[i+1:]...)
		switch {
		case i < c.currentIndex:
			c.currentIndex--
		case i == c.currentIndex && c.currentIndex >= len(c.cues):
			c.currentIndex = max(0, len(c.cues)-1)
		}
		return true
	}
	return false
}

// UpdateCue replaces the cue with the given id in place.
func (c *Catalog) UpdateCue(updated model.Cue) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cues {
		if c.cues[i].ID == updated.ID {
			c.cues[i] = updated
			return true
		}
	}
	return false
}

// MoveCue relocates a cue from one index to another, following the
// current-index adjustment rules for drag-reorder edits.
func (c *Catalog) MoveCue(fromIndex, toIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fromIndex < 0 || fromIndex >= len(c.cues) || toIndex < 0 || toIndex >= len(c.cues) {
		return false
	}

	cue := c.cues[fromIndex]
	c.cues = append(c.cues[:fromIndex], c.cues[fromIndex+1:]...)
	c.cues = append(c.cues, model.Cue{})
	copy(c.cues[toIndex+1:], c.cues[toIndex:])
	c.cues[toIndex] = cue

	switch {
	case fromIndex == c.currentIndex:
		c.currentIndex = toIndex
	case fromIndex < c.currentIndex && c.currentIndex <= toIndex:
		c.currentIndex--
	case toIndex <= c.currentIndex && c.currentIndex < fromIndex:
		c.currentIndex++
	}
	return true
}

// ClearCues removes every cue and resets the current index.
func (c *Catalog) ClearCues() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cues = nil
	c.currentIndex = 0
}

// AddAudioFile registers an audio track.
func (c *Catalog) AddAudioFile(track model.AudioTrack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audioFiles = append(c.audioFiles, track)
}

// RemoveAudioFile removes an audio track by id. It refuses — returning
// false, catalog unchanged — if any cue still references that audio.
func (c *Catalog) RemoveAudioFile(audioID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cue := range c.cues {
		if cue.AudioID == audioID {
			return false, errors.New(errors.NewStd("audio is referenced by a cue")).
				Category(errors.CategoryConflict).
				Context("audio_id", audioID).
				Context("cue_id", cue.ID).
				Build()
		}
	}

	for i := range c.audioFiles {
		if c.audioFiles[i].ID == audioID {
			c.audioFiles = append(c.audioFiles[:i], c.audioFiles[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// AudioFile looks up a registered audio track by id.
func (c *Catalog) AudioFile(audioID string) *model.AudioTrack {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.audioFiles {
		if c.audioFiles[i].ID == audioID {
			track := c.audioFiles[i]
			return &track
		}
	}
	return nil
}

// SetConfigName sets the name recorded in a saved CueListConfig.
func (c *Catalog) SetConfigName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configName = name
}

// ConfigName returns the name recorded in a saved CueListConfig.
func (c *Catalog) ConfigName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configName
}

// ToConfig exports the catalog's current contents as a CueListConfig.
func (c *Catalog) ToConfig() model.CueListConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cues := make([]model.Cue, len(c.cues))
	copy(cues, c.cues)
	audio := make([]model.AudioTrack, len(c.audioFiles))
	copy(audio, c.audioFiles)
	return model.CueListConfig{
		Version:    c.configVer,
		Name:       c.configName,
		CreatedAt:  time.Now(),
		Cues:       cues,
		AudioFiles: audio,
	}
}

// LoadFromConfig replaces the catalog's contents wholesale and resets the
// current index to 0.
func (c *Catalog) LoadFromConfig(cfg model.CueListConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cues = append([]model.Cue(nil), cfg.Cues...)
	c.audioFiles = append([]model.AudioTrack(nil), cfg.AudioFiles...)
	c.configName = cfg.Name
	if cfg.Version != "" {
		c.configVer = cfg.Version
	}
	c.currentIndex = 0
}

// LoadConfig reads and applies a CueListConfig from path. A missing file
// is not an error — the catalog is left as-is, matching first-run startup.
func (c *Catalog) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.FileError(err, path, 0).Category(errors.CategoryFileIO).Build()
	}
	var cfg model.CueListConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return errors.FileError(err, path, int64(len(data))).Build()
	}
	c.LoadFromConfig(cfg)
	log.Info("loaded cue list config", "path", path, "cues", len(cfg.Cues), "audio_files", len(cfg.AudioFiles))
	return nil
}

// SaveConfig writes the catalog's current contents to path atomically
// (write-temp-then-rename), pretty-printed per the on-disk contract.
func (c *Catalog) SaveConfig(path string) error {
	cfg := c.ToConfig()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err).Category(errors.CategoryFileIO).Build()
	}
	if err := writeFileAtomic(path, data); err != nil {
		return errors.FileError(err, path, int64(len(data))).Build()
	}
	log.Info("saved cue list config", "path", path, "cues", len(cfg.Cues))
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
