package wave

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrInvalidInput marks waveforms that cannot be analyzed.
var ErrInvalidInput = errors.New("invalid waveform input")

// Waveform is an immutable decoded audio clip.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Validate reports whether the waveform is usable for analysis.
func (w Waveform) Validate() error {
	if len(w.Samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidInput)
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidInput, w.SampleRate)
	}
	return nil
}

// FromFile decodes a PCM WAV file into a mono waveform with samples in [-1,1].
// Multi-channel audio is mixed down by averaging channels.
func FromFile(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: %s is not a valid WAV file", ErrInvalidInput, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Waveform{}, fmt.Errorf("%w: %s contains no audio data", ErrInvalidInput, path)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / scale
	}

	w := Waveform{Samples: samples, SampleRate: buf.Format.SampleRate}
	if err := w.Validate(); err != nil {
		return Waveform{}, err
	}
	return w, nil
}
