// Package audio plays and renders quiz tones.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is used for playback and WAV rendering.
const DefaultSampleRate = 44100

// Tone durations and the wrong-answer feedback pitch.
const (
	NoteDuration  = time.Second
	ErrorDuration = 500 * time.Millisecond
	ErrorToneHz   = 200.0
)

// Player plays a tone without blocking the caller. Implementations must
// tolerate overlapping calls.
type Player interface {
	PlayTone(frequencyHz float64)
}

// Nop discards every tone.
type Nop struct{}

// PlayTone implements Player.
func (Nop) PlayTone(float64) {}

// envelope points are (time in seconds, gain) pairs, linearly interpolated.
type envPoint struct {
	at   float64
	gain float64
}

// Attack to 0.5 over 100ms, settle to 0.3 by 300ms, release to silence at
// the end of the tone.
func envelopeFor(duration float64) []envPoint {
	if duration < 0.4 {
		return []envPoint{{0, 0}, {0.1 * duration / 0.4, 0.3}, {duration, 0}}
	}
	return []envPoint{{0, 0}, {0.1, 0.5}, {0.3, 0.3}, {duration, 0}}
}

func gainAt(env []envPoint, t float64) float64 {
	if t <= env[0].at {
		return env[0].gain
	}
	for i := 1; i < len(env); i++ {
		if t <= env[i].at {
			prev := env[i-1]
			span := env[i].at - prev.at
			if span <= 0 {
				return env[i].gain
			}
			frac := (t - prev.at) / span
			return prev.gain + (env[i].gain-prev.gain)*frac
		}
	}
	return env[len(env)-1].gain
}

// Synthesize renders a mono sine tone with a click-free envelope.
// Samples are in the range [-1, 1].
func Synthesize(frequencyHz float64, duration time.Duration, sampleRate int) []float64 {
	if frequencyHz <= 0 || duration <= 0 || sampleRate <= 0 {
		return nil
	}
	secs := duration.Seconds()
	n := int(secs * float64(sampleRate))
	env := envelopeFor(secs)
	out := make([]float64, n)
	step := 2 * math.Pi * frequencyHz / float64(sampleRate)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = math.Sin(step*float64(i)) * gainAt(env, t)
	}
	return out
}

// ToPCM16 converts float samples to little-endian signed 16-bit PCM.
func ToPCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clamp(s) * math.MaxInt16)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
