package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showconsole/internal/audiomixer"
	"showconsole/internal/breakpoint"
	"showconsole/internal/catalog"
	"showconsole/internal/events"
	"showconsole/internal/model"
	"showconsole/internal/showcontrol"
)

type fakeBuffer struct{ seconds float64 }

func (f fakeBuffer) DurationSeconds() float64 { return f.seconds }

type fakeBackend struct{}

func (fakeBackend) LoadTrack(string) (audiomixer.Buffer, error) { return fakeBuffer{seconds: 30}, nil }
func (fakeBackend) PlayBGM(audiomixer.Buffer, int)       {}
func (fakeBackend) PauseBGM()                            {}
func (fakeBackend) ResumeBGM()                            {}
func (fakeBackend) StopBGM() int                          { return 0 }
func (fakeBackend) IsBGMPlaying() bool                    { return false }
func (fakeBackend) IsBGMPaused() bool                     { return false }
func (fakeBackend) SetBGMVolume(float64)                  {}
func (fakeBackend) SetSFXVolume(float64)                  {}
func (fakeBackend) FreeSFXSlot() (int, bool)              { return 0, true }
func (fakeBackend) PlaySFX(int, audiomixer.Buffer) error  { return nil }
func (fakeBackend) StopSFX(int)                           {}
func (fakeBackend) StopAllSFX()                           {}
func (fakeBackend) IsSFXPlaying(int) bool                 { return false }
func (fakeBackend) CheckBGMJustEnded() bool                { return false }
func (fakeBackend) Close() error                           { return nil }

func newTestController(t *testing.T) (*echo.Echo, *Controller) {
	t.Helper()
	cat := catalog.New()
	cat.AddAudioFile(model.AudioTrack{ID: "a1", FilePath: "/tmp/a1.wav", Duration: 30})
	cat.AddAudioFile(model.AudioTrack{ID: "a2", FilePath: "/tmp/a2.wav", Duration: 30})
	cat.AddCue(model.Cue{ID: "c1", AudioID: "a1", StartTime: 0})

	bps := breakpoint.New()
	bus := events.New(16)
	mixer := audiomixer.New(fakeBackend{})
	kernel := showcontrol.New(mixer, cat, bps, bus, 20*time.Millisecond)

	e := echo.New()
	controller := New(e, kernel, cat, bps, bus)

	t.Cleanup(func() {
		controller.Shutdown()
		kernel.Shutdown()
		bus.Shutdown()
		mixer.Close()
	})
	return e, controller
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPlayEndpointStartsPlayback(t *testing.T) {
	e, controller := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/api/v2/control/play", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result simpleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.True(t, controller.Kernel.IsPlaying())
}

func TestPlayEndpointDefersUnderLocalPriorityWhenRemote(t *testing.T) {
	e, controller := newTestController(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/control/play", http.NoBody)
	req.Header.Set("X-Command-Source", "remote")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var result simpleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.False(t, controller.Kernel.IsPlaying())
}

func TestSetBGMVolumeClampsAndPersists(t *testing.T) {
	e, controller := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/api/v2/control/volume/bgm", `{"volume": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result volumeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3.0, result.Volume)
	assert.Equal(t, 3.0, controller.Kernel.BGMVolume())
}

func TestSeekRejectsOutOfRangePosition(t *testing.T) {
	e, controller := newTestController(t)
	doRequest(e, http.MethodPost, "/api/v2/control/play", "")

	rec := doRequest(e, http.MethodPost, "/api/v2/control/seek", `{"position": 9999}`)
	var result simpleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	_ = controller
}

func TestAddCueThenListReflectsIt(t *testing.T) {
	e, _ := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/api/v2/catalog/cues", `{"id":"c2","audio_id":"a1","start_time":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v2/catalog/cues", "")
	var cues []model.Cue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cues))
	assert.Len(t, cues, 2)
}

func TestDeleteAudioRefusedWhenReferenced(t *testing.T) {
	e, _ := newTestController(t)
	rec := doRequest(e, http.MethodDelete, "/api/v2/catalog/audio/a1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSaveAndRestoreBreakpoint(t *testing.T) {
	e, controller := newTestController(t)
	doRequest(e, http.MethodPost, "/api/v2/control/play", "")

	rec := doRequest(e, http.MethodPost, "/api/v2/breakpoints", `{"label":"manual save"}`)
	var saved saveBreakpointResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.True(t, saved.Success)
	require.NotEmpty(t, saved.BPID)

	controller.Kernel.Stop(showcontrol.SourceLocal)

	rec = doRequest(e, http.MethodPost, "/api/v2/breakpoints/restore",
		`{"audio_id":"a1","bp_id":"`+saved.BPID+`"}`)
	var result simpleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.True(t, controller.Kernel.IsPlaying())
}

func TestPlayNewBGMEndpointSwitchesTrackAndSavesBreakpoint(t *testing.T) {
	e, controller := newTestController(t)
	doRequest(e, http.MethodPost, "/api/v2/control/play", "")

	rec := doRequest(e, http.MethodPost, "/api/v2/control/play-new-bgm", `{"audio_id":"a2","start_position":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result simpleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "a2", *controller.Kernel.GetState().CurrentAudioID)

	bps := controller.Bps.GetAll("a1")
	require.Len(t, bps, 1)
	assert.True(t, bps[0].AutoSaved)
}

func TestPlayNewBGMEndpointRejectsUnknownAudio(t *testing.T) {
	e, _ := newTestController(t)
	rec := doRequest(e, http.MethodPost, "/api/v2/control/play-new-bgm", `{"audio_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLocalPriorityGatesRemoteCommands(t *testing.T) {
	e, controller := newTestController(t)

	rec := doRequest(e, http.MethodPost, "/api/v2/remote/priority", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, controller.Kernel.LocalPriority())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/control/play", http.NoBody)
	req.Header.Set("X-Command-Source", "remote")
	recPlay := httptest.NewRecorder()
	e.ServeHTTP(recPlay, req)

	var result simpleResult
	require.NoError(t, json.Unmarshal(recPlay.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.True(t, controller.Kernel.IsPlaying())
}
