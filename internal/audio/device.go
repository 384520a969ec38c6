package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// DevicePlayer plays tones on the default output device. Each tone gets its
// own playback device so a running tone never delays the next one.
type DevicePlayer struct {
	ctx        *malgo.AllocatedContext
	sampleRate int
	logf       func(string, ...any)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDevicePlayer initializes the audio backend.
func NewDevicePlayer(logf func(string, ...any)) (*DevicePlayer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &DevicePlayer{ctx: ctx, sampleRate: DefaultSampleRate, logf: logf}, nil
}

// PlayTone implements Player. Errors are logged, never returned.
func (p *DevicePlayer) PlayTone(frequencyHz float64) {
	duration := NoteDuration
	if frequencyHz == ErrorToneHz {
		duration = ErrorDuration
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.play(frequencyHz, duration); err != nil && p.logf != nil {
			p.logf("failed to play tone: %v\n", err)
		}
	}()
}

func (p *DevicePlayer) play(frequencyHz float64, duration time.Duration) error {
	pcm := ToPCM16(Synthesize(frequencyHz, duration, p.sampleRate))
	var offset atomic.Int64
	done := make(chan struct{})
	var once sync.Once

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(p.sampleRate)
	cfg.Alsa.NoMMap = 1

	onSend := func(out, _ []byte, _ uint32) {
		start := int(offset.Load())
		n := copy(out, pcm[min(start, len(pcm)):])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		offset.Add(int64(n))
		if start+n >= len(pcm) {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSend})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	select {
	case <-done:
	case <-time.After(duration + time.Second):
	}
	return device.Stop()
}

// Close waits for running tones and releases the audio backend.
func (p *DevicePlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	if err := p.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninit audio context: %w", err)
	}
	p.ctx.Free()
	return nil
}
