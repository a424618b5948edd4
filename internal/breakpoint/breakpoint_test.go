package breakpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetAll(t *testing.T) {
	s := New()
	id := s.Save("a", 7.5, "auto", true)
	require.NotEmpty(t, id)

	all := s.GetAll("a")
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].ID)
	assert.InDelta(t, 7.5, all[0].Position, 0.001)
	assert.True(t, all[0].AutoSaved)
}

func TestMutatingOneAudioLeavesOthersUntouched(t *testing.T) {
	s := New()
	s.Save("a", 1, "", false)
	bID := s.Save("b", 2, "", false)

	s.ClearAudio("a")

	assert.Empty(t, s.GetAll("a"))
	all := s.GetAll("b")
	require.Len(t, all, 1)
	assert.Equal(t, bID, all[0].ID)
}

func TestClearSelectedAcrossAudios(t *testing.T) {
	s := New()
	id1 := s.Save("a", 1, "", false)
	id2 := s.Save("b", 2, "", false)
	s.Save("b", 3, "", false)

	count := s.ClearSelected([]string{id1, id2})
	assert.Equal(t, 2, count)
	assert.Empty(t, s.GetAll("a"))
	assert.Len(t, s.GetAll("b"), 1)
}

func TestDeleteReturnsFalseForUnknown(t *testing.T) {
	s := New()
	assert.False(t, s.Delete("a", "nonexistent"))
}

func TestSaveToFileRoundTrip(t *testing.T) {
	s := New()
	s.Save("a", 1.5, "label", false)

	path := filepath.Join(t.TempDir(), "breakpoints.json")
	require.NoError(t, s.SaveToFile(path))

	reloaded := New()
	require.NoError(t, reloaded.LoadFromFile(path))
	all := reloaded.GetAll("a")
	require.Len(t, all, 1)
	assert.Equal(t, "label", all[0].Label)
}

func TestLoadFromFileMissingIsNotError(t *testing.T) {
	s := New()
	assert.NoError(t, s.LoadFromFile(filepath.Join(t.TempDir(), "missing.json")))
}
