package session

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/girovoice/giro-core/core/audio"
)

const (
	// loudnessSampleInterval paces the smoothing loop that follows the live
	// handle's raw RMS.
	loudnessSampleInterval = 50 * time.Millisecond

	// loudnessSmoothing is the exponential-moving-average factor applied to
	// raw loudness samples before they are exposed for display.
	loudnessSmoothing = 0.1
)

// playbackController owns the at-most-one live playback handle. Starting a
// new playback always stops and releases the current one first: fresh
// server audio and the user starting to speak both trump whatever is
// playing.
type playbackController struct {
	player AudioPlayer

	mu           sync.Mutex
	current      audio.Playback
	currentFinal bool
	samplerStop  chan struct{}

	smoothedLoudness atomic.Uint64

	// onFinished is invoked off the caller goroutine when a playback ends
	// naturally. The handle ID lets the owner discard completions from
	// superseded handles.
	onFinished func(handleID string, final bool)
}

func newPlaybackController(player AudioPlayer) *playbackController {
	return &playbackController{player: player}
}

func (p *playbackController) setCallbacks(onFinished func(handleID string, final bool)) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = onFinished
}

func (p *playbackController) isConfigured() bool {
	return p != nil && p.player != nil
}

// play starts the buffer, superseding any in-flight playback. final marks
// the synthesized response segment whose lifecycle drives the speaking
// state; cue sounds pass false.
func (p *playbackController) play(buffer []byte, loop, final bool) error {
	if !p.isConfigured() {
		return nil
	}

	p.mu.Lock()
	p.releaseCurrentLocked()

	playOpts := []audio.PlayOption{}
	if loop {
		playOpts = append(playOpts, audio.WithLoop())
	}

	var handle audio.Playback
	playOpts = append(playOpts, audio.WithEndedCallback(func() {
		p.handleEnded(handle)
	}))

	var err error
	handle, err = p.player.Play(buffer, playOpts...)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	p.current = handle
	p.currentFinal = final
	p.samplerStop = make(chan struct{})
	go p.sampleLoudness(handle, p.samplerStop)
	p.mu.Unlock()

	return nil
}

// stopCurrent releases the live handle, if any. The handle's completion
// callback does not fire for stopped playbacks.
func (p *playbackController) stopCurrent() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseCurrentLocked()
}

// currentIsFinal reports whether the live playback carries the synthesized
// response, as opposed to a progress cue.
func (p *playbackController) currentIsFinal() bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && p.currentFinal
}

func (p *playbackController) currentID() string {
	if p == nil {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.ID()
}

// loudness returns the smoothed live output loudness in [0, 1]; zero while
// nothing is playing.
func (p *playbackController) loudness() float64 {
	if p == nil {
		return 0
	}
	return math.Float64frombits(p.smoothedLoudness.Load())
}

func (p *playbackController) close() {
	p.stopCurrent()
}

func (p *playbackController) releaseCurrentLocked() {
	if p.current == nil {
		return
	}

	p.current.Stop()
	p.current = nil
	p.currentFinal = false
	if p.samplerStop != nil {
		close(p.samplerStop)
		p.samplerStop = nil
	}
	p.smoothedLoudness.Store(0)
}

// handleEnded runs on the player's completion goroutine; it only clears
// state if the finished handle is still the live one.
func (p *playbackController) handleEnded(handle audio.Playback) {
	if handle == nil {
		return
	}

	p.mu.Lock()
	if p.current == nil || p.current.ID() != handle.ID() {
		p.mu.Unlock()
		return
	}

	final := p.currentFinal
	p.current = nil
	p.currentFinal = false
	if p.samplerStop != nil {
		close(p.samplerStop)
		p.samplerStop = nil
	}
	p.smoothedLoudness.Store(0)
	onFinished := p.onFinished
	p.mu.Unlock()

	if onFinished != nil {
		onFinished(handle.ID(), final)
	}
}

func (p *playbackController) sampleLoudness(handle audio.Playback, stop <-chan struct{}) {
	ticker := time.NewTicker(loudnessSampleInterval)
	defer ticker.Stop()

	smoothed := 0.0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			smoothed += loudnessSmoothing * (handle.Loudness() - smoothed)
			p.smoothedLoudness.Store(math.Float64bits(smoothed))
		}
	}
}
