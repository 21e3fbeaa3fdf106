package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/girovoice/giro-core/core/audio"
	"github.com/girovoice/giro-core/core/speechtotext"
)

// captureDirective is the controller's intent for the recognition engine,
// consulted by the engine's own close handler. The engine stopping on its
// own (end-of-utterance pauses, engine timeouts) while the directive is
// directiveRun triggers an immediate restart; an explicit Stop flips the
// directive first so the resulting close stays down.
type captureDirective int32

const (
	directiveStop captureDirective = iota
	directiveRun
)

type captureCallbacks struct {
	onFragment      func(fragment string)
	onSpeechStarted func()
	onSpeechEnded   func()
}

// captureController wraps the continuous recognition engine and the
// microphone input behind one start/stop surface. It owns mute state, the
// recognition language and the auto-restart policy.
type captureController struct {
	recognizer SpeechRecognizer
	input      *audioInput

	directive atomic.Int32
	muted     atomic.Bool

	mu       sync.Mutex
	language string

	callbacks   captureCallbacks
	baseContext context.Context
}

func newCaptureController(recognizer SpeechRecognizer, input *audioInput) *captureController {
	return &captureController{
		recognizer:  recognizer,
		input:       input,
		baseContext: context.Background(),
	}
}

func (c *captureController) configure(ctx context.Context, language string, callbacks captureCallbacks) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseContext = ctx
	c.language = language
	c.callbacks = callbacks
}

func (c *captureController) isConfigured() bool {
	return c != nil && c.recognizer != nil
}

func (c *captureController) isRunning() bool {
	return c != nil && captureDirective(c.directive.Load()) == directiveRun
}

// start opens a recognition session and begins streaming microphone audio
// into it. Safe to call when already running.
func (c *captureController) start() error {
	if !c.isConfigured() {
		return nil
	}

	c.directive.Store(int32(directiveRun))
	if err := c.openEngine(); err != nil {
		c.directive.Store(int32(directiveStop))
		return err
	}

	c.input.start(c.baseContext)
	return nil
}

// stop flips the directive before touching the engine so the close event it
// causes does not trigger a restart.
func (c *captureController) stop() {
	if !c.isConfigured() {
		return
	}

	c.directive.Store(int32(directiveStop))
	if err := c.recognizer.Close(c.baseContext); err != nil {
		log.Printf("Failed to close recognition engine: %v", err)
	}
}

// setLanguage reconfigures recognition. The engine only honors language at
// session start, so the session is torn down and, if the controller was
// running, reopened with the new locale.
func (c *captureController) setLanguage(tag string) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	c.language = tag
	c.mu.Unlock()

	if !c.isConfigured() || !c.isRunning() {
		return nil
	}

	// The close handler restarts with the updated language; no explicit
	// reopen is needed while the directive stays directiveRun.
	if err := c.recognizer.Close(c.baseContext); err != nil {
		return fmt.Errorf("failed to restart recognition engine: %w", err)
	}
	return nil
}

// setMuted suppresses fragments without stopping the engine, trading wasted
// recognition work for instant un-mute.
func (c *captureController) setMuted(muted bool) {
	if c == nil {
		return
	}
	c.muted.Store(muted)
}

func (c *captureController) isMuted() bool {
	return c != nil && c.muted.Load()
}

func (c *captureController) close() {
	if c == nil {
		return
	}

	c.stop()
	if c.input != nil {
		if err := c.input.close(); err != nil {
			log.Printf("Failed to close audio input: %v", err)
		}
	}
}

func (c *captureController) openEngine() error {
	c.mu.Lock()
	language := c.language
	ctx := c.baseContext
	c.mu.Unlock()

	encodingInfo := audio.GetDefaultEncodingInfo()
	if c.input != nil {
		encodingInfo = c.input.encodingInfo()
	}

	err := c.recognizer.Transcribe(ctx,
		speechtotext.WithLanguage(language),
		speechtotext.WithEncodingInfo(encodingInfo),
		speechtotext.WithSpeechStartedCallback(c.invokeSpeechStarted),
		speechtotext.WithSpeechEndedCallback(c.invokeSpeechEnded),
		speechtotext.WithFragmentCallback(c.invokeFragment),
		speechtotext.WithClosedCallback(c.onEngineClosed),
	)
	if err != nil {
		return fmt.Errorf("failed to start recognition engine: %w", err)
	}
	return nil
}

// onEngineClosed is the engine's stop handler. Recognition engines end
// their session on their own; the directive decides whether that end is
// final or just a seam between two sessions.
func (c *captureController) onEngineClosed() {
	if captureDirective(c.directive.Load()) != directiveRun {
		return
	}

	if err := c.openEngine(); err != nil {
		// Degrades to producing no fragments rather than failing the
		// session; the user toggling listening retries.
		log.Printf("Failed to restart recognition engine: %v", err)
		c.directive.Store(int32(directiveStop))
	}
}

func (c *captureController) invokeSpeechStarted() {
	if c.isMuted() {
		return
	}
	if cb := c.currentCallbacks().onSpeechStarted; cb != nil {
		cb()
	}
}

func (c *captureController) invokeSpeechEnded() {
	if c.isMuted() {
		return
	}
	if cb := c.currentCallbacks().onSpeechEnded; cb != nil {
		cb()
	}
}

// invokeFragment drops fragments while muted; the engine keeps running so
// un-muting is instant.
func (c *captureController) invokeFragment(fragment string) {
	if c.isMuted() {
		return
	}
	if cb := c.currentCallbacks().onFragment; cb != nil {
		cb(fragment)
	}
}

func (c *captureController) currentCallbacks() captureCallbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callbacks
}
