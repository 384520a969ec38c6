package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeEnvelope(t *testing.T) {
	samples := Synthesize(440, NoteDuration, 8000)
	require.Len(t, samples, 8000)
	assert.Equal(t, 0.0, samples[0])

	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}
	assert.LessOrEqual(t, peak, 0.5+1e-9)
	assert.Greater(t, peak, 0.4)

	tail := 0.0
	for _, s := range samples[len(samples)-10:] {
		tail = math.Max(tail, math.Abs(s))
	}
	assert.Less(t, tail, 0.01, "release fades to silence")
}

func TestSynthesizeInvalid(t *testing.T) {
	assert.Nil(t, Synthesize(0, time.Second, 8000))
	assert.Nil(t, Synthesize(440, 0, 8000))
	assert.Nil(t, Synthesize(440, time.Second, 0))
}

func TestShortToneStaysQuiet(t *testing.T) {
	samples := Synthesize(ErrorToneHz, ErrorDuration, 8000)
	require.Len(t, samples, 4000)
	for _, s := range samples {
		require.LessOrEqual(t, math.Abs(s), 0.5)
	}
}

func TestToPCM16(t *testing.T) {
	pcm := ToPCM16([]float64{0, 1, -1, 2})
	require.Len(t, pcm, 8)
	assert.Equal(t, []byte{0, 0}, pcm[0:2])
	assert.Equal(t, []byte{0xff, 0x7f}, pcm[2:4])
	assert.Equal(t, []byte{0x01, 0x80}, pcm[4:6])
	assert.Equal(t, pcm[2:4], pcm[6:8], "clamped")
}

func TestWriteToneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tones", "a4.wav")
	require.NoError(t, WriteToneFile(path, 440, 8000))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Len(t, buf.Data, 8000)
}

func TestWAVPlayerOverlapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.wav")
	p := &WAVPlayer{Path: path}
	p.PlayTone(261.63)
	p.PlayTone(329.63)
	p.Wait()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44))
}

func TestNopPlayer(t *testing.T) {
	var p Player = Nop{}
	p.PlayTone(440)
}
