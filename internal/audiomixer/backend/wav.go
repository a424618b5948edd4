// Package backend implements the audio-mixer façade's concrete PCM
// decode and playback device: WAV decoding via go-audio/wav and
// real-time PortAudio output.
package backend

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer is decoded mono PCM, normalized to [-1, 1] float32 samples.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// DurationSeconds returns the buffer's playback length.
func (b Buffer) DurationSeconds() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// FrameAt converts a position in seconds to a sample index, clamped to
// the buffer's bounds.
func (b Buffer) FrameAt(seconds float64) int {
	if seconds <= 0 || b.SampleRate == 0 {
		return 0
	}
	frame := int(seconds * float64(b.SampleRate))
	if frame > len(b.Samples) {
		frame = len(b.Samples)
	}
	return frame
}

// DecodeWAVFile reads a WAV file and returns its PCM content downmixed to
// mono float32 samples. Multi-channel files are averaged across channels.
func DecodeWAVFile(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Buffer{}, fmt.Errorf("%s is not a valid WAV file", path)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return Buffer{
		Samples:    downmixToMono(pcm),
		SampleRate: int(dec.SampleRate),
	}, nil
}

func downmixToMono(buf *audio.IntBuffer) []float32 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	maxVal := float32(int(1) << (buf.SourceBitDepth - 1))
	if buf.SourceBitDepth == 0 {
		maxVal = 32768
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / maxVal
		}
		out[i] = sum / float32(channels)
	}
	return out
}
