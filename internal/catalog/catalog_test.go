package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showconsole/internal/model"
)

func cue(id, audioID string) model.Cue {
	return model.Cue{ID: id, AudioID: audioID, StartTime: 0, Volume: 1}
}

func TestAdvanceStopsAtLastCue(t *testing.T) {
	c := New()
	c.AddCue(cue("c0", "a"))
	c.AddCue(cue("c1", "b"))

	next := c.Advance()
	require.NotNil(t, next)
	assert.Equal(t, "c1", next.ID)
	assert.Equal(t, 1, c.CurrentIndex())

	assert.Nil(t, c.Advance())
	assert.Equal(t, 1, c.CurrentIndex())
}

func TestRemoveCueBeforeCurrentDecrementsIndex(t *testing.T) {
	c := New()
	c.AddCue(cue("c0", "a"))
	c.AddCue(cue("c1", "b"))
	c.AddCue(cue("c2", "c"))
	require.True(t, c.SetIndex(2))

	assert.True(t, c.RemoveCue("c0"))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, "c2", c.CurrentCue().ID)
}

func TestRemoveCurrentCueClampsToLast(t *testing.T) {
	c := New()
	c.AddCue(cue("c0", "a"))
	c.AddCue(cue("c1", "b"))
	require.True(t, c.SetIndex(1))

	assert.True(t, c.RemoveCue("c1"))
	assert.Equal(t, 0, c.CurrentIndex())
}

func TestMoveCueAcrossCurrentBoundary(t *testing.T) {
	c := New()
	c.AddCue(cue("c0", "a"))
	c.AddCue(cue("c1", "b"))
	c.AddCue(cue("c2", "c"))
	require.True(t, c.SetIndex(1))

	// moving a cue from before current to after current shifts current back one
	require.True(t, c.MoveCue(0, 2))
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, "c1", c.CurrentCue().ID)
}

func TestMoveCurrentCueFollowsIt(t *testing.T) {
	c := New()
	c.AddCue(cue("c0", "a"))
	c.AddCue(cue("c1", "b"))
	c.AddCue(cue("c2", "c"))
	require.True(t, c.SetIndex(0))

	require.True(t, c.MoveCue(0, 2))
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, "c0", c.CurrentCue().ID)
}

func TestRemoveAudioFileRefusedWhenReferenced(t *testing.T) {
	c := New()
	c.AddAudioFile(model.AudioTrack{ID: "a", TrackType: model.TrackBGM})
	c.AddCue(cue("c0", "a"))

	ok, err := c.RemoveAudioFile("a")
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Len(t, c.AudioFiles(), 1)
}

func TestRemoveAudioFileSucceedsWhenUnreferenced(t *testing.T) {
	c := New()
	c.AddAudioFile(model.AudioTrack{ID: "a", TrackType: model.TrackBGM})

	ok, err := c.RemoveAudioFile("a")
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Empty(t, c.AudioFiles())
}

func TestSaveConfigAtomicRoundTrip(t *testing.T) {
	c := New()
	c.SetConfigName("demo")
	c.AddAudioFile(model.AudioTrack{ID: "a", FilePath: "a.wav", Duration: 10, Title: "A", TrackType: model.TrackBGM})
	c.AddCue(cue("c0", "a"))

	dir := t.TempDir()
	path := filepath.Join(dir, "cuelist.json")
	require.NoError(t, c.SaveConfig(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no leftover temp file after atomic rename")

	reloaded := New()
	require.NoError(t, reloaded.LoadConfig(path))
	assert.Equal(t, "demo", reloaded.ConfigName())
	require.Len(t, reloaded.Cues(), 1)
	assert.Equal(t, "c0", reloaded.Cues()[0].ID)
	assert.Equal(t, 0, reloaded.CurrentIndex())
}

func TestLoadConfigMissingFileIsNotError(t *testing.T) {
	c := New()
	err := c.LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, err)
}
