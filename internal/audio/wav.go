package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth    = 16
	wavChannels    = 1
	wavFormatPCM   = 1
	wavTempPattern = "tone-*.wav"
)

// WriteWAV encodes mono samples as a 16-bit PCM WAV stream.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, wavChannels, wavFormatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(clamp(s) * math.MaxInt16)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: wavChannels},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}

// WriteToneFile renders one tone into a WAV file, replacing it atomically.
func WriteToneFile(path string, frequencyHz float64, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create tone dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), wavTempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp tone: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := WriteWAV(tmpFile, Synthesize(frequencyHz, NoteDuration, sampleRate), sampleRate); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close tone: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write tone: %w", err)
	}
	return nil
}

// WAVPlayer is a Player that renders each tone to a file instead of a
// sound device. Rendering runs in the background; the last tone wins.
type WAVPlayer struct {
	Path string
	Logf func(string, ...any)

	wg sync.WaitGroup
	mu sync.Mutex
}

// PlayTone implements Player.
func (p *WAVPlayer) PlayTone(frequencyHz float64) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := WriteToneFile(p.Path, frequencyHz, DefaultSampleRate); err != nil && p.Logf != nil {
			p.Logf("failed to render tone: %v\n", err)
		}
	}()
}

// Wait blocks until queued tones are written.
func (p *WAVPlayer) Wait() {
	p.wg.Wait()
}
