package miniaudio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/google/uuid"

	"github.com/girovoice/giro-core/core/audio"
)

// playbackClient owns one malgo playback device shared by consecutive
// playbacks. At most one Playback is fed to the device at a time; starting
// a new one releases the previous one first.
type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	current *Playback

	mu      sync.Mutex
	audioMu sync.Mutex
}

// Playback is one live audio handle. Loudness is the root-mean-square of
// the most recently rendered output window, normalized to [0, 1].
type Playback struct {
	id   string
	data []byte
	pos  int
	loop bool

	onEnded func()

	released atomic.Bool
	loudness atomic.Uint64
}

func (p *Playback) ID() string { return p.id }

// Stop releases the handle without invoking the completion callback.
func (p *Playback) Stop() {
	p.released.Store(true)
	p.loudness.Store(0)
}

func (p *Playback) Loudness() float64 {
	return math.Float64frombits(p.loudness.Load())
}

func (p *Playback) setLoudness(value float64) {
	p.loudness.Store(math.Float64bits(value))
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

// Play starts rendering the buffer and returns its handle. Any previous
// playback is released first; its completion callback never fires.
func (c *playbackClient) Play(data []byte, opts ...audio.PlayOption) (audio.Playback, error) {
	options := audio.PlayOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		c.mu.Unlock()
		return nil, fmt.Errorf("device not started")
	}
	c.mu.Unlock()

	playback := &Playback{
		id:      uuid.NewString(),
		data:    data,
		loop:    options.Loop,
		onEnded: options.OnEnded,
	}

	c.audioMu.Lock()
	if c.current != nil {
		c.current.Stop()
	}
	c.current = playback
	c.audioMu.Unlock()

	return playback, nil
}

func (c *playbackClient) StopCurrent() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()

	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

func (c *playbackClient) Uninit() error {
	c.StopCurrent()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.audioMu.Lock()
		playback := c.current
		if playback == nil || playback.released.Load() {
			c.current = nil
			c.audioMu.Unlock()
			return
		}

		written := 0
		for written < need {
			remaining := playback.data[playback.pos:]
			if len(remaining) == 0 {
				if !playback.loop {
					break
				}
				playback.pos = 0
				remaining = playback.data
			}

			n := copy(pOutput[written:need], remaining)
			playback.pos += n
			written += n
		}

		finished := written < need && !playback.loop
		if finished {
			c.current = nil
		}
		c.audioMu.Unlock()

		playback.setLoudness(rmsLinear16(pOutput[:written]))

		if finished {
			playback.setLoudness(0)
			if playback.released.CompareAndSwap(false, true) && playback.onEnded != nil {
				go playback.onEnded()
			}
		}
	}
}

// rmsLinear16 computes the root-mean-square of a little-endian 16-bit PCM
// window, normalized so a full-scale square wave yields 1.
func rmsLinear16(window []byte) float64 {
	sampleCount := len(window) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount*2; i += 2 {
		sample := int16(uint16(window[i]) | uint16(window[i+1])<<8)
		normalized := float64(sample) / 32768
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}
