// Package session composes speech capture, utterance aggregation, the
// session transport and audio playback into one race-free session state
// machine. Every asynchronous source is normalized into a typed event and
// serialized onto one queue drained by a single goroutine, so session state
// has exactly one writer and ordering is the only correctness concern.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jinzhu/copier"

	"github.com/girovoice/giro-core/core/events"
	"github.com/girovoice/giro-core/core/transport"
	"github.com/girovoice/giro-core/core/wire"
)

const (
	eventQueueCapacity = 64

	defaultLanguage    = "pt-BR"
	defaultPatience    = 2 * time.Second
	defaultTurnTimeout = 30 * time.Second
)

type Orchestrator struct {
	// state is owned by the loop goroutine; it is never read or written
	// anywhere else. Observers get copies through State().
	state        SessionState
	aggregator   utteranceAggregator
	remembered   *RememberedContext
	turnDeadline time.Time

	transcriptLog transcript

	capture   *captureController
	transport *sessionTransport
	playback  *playbackController

	queue   chan events.Event
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closed    atomic.Bool

	sessionOptions SessionOptions
	turnTimeout    time.Duration
	progressCues   ProgressCues
	baseContext    context.Context

	publishMu        sync.RWMutex
	published        SessionState
	publishedContext string
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		state: SessionState{
			Muted:    true,
			Language: defaultLanguage,
			Patience: defaultPatience,
		},
		remembered:  NewRememberedContext(""),
		turnTimeout: defaultTurnTimeout,
		queue:       make(chan events.Event, eventQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
		baseContext: context.Background(),
	}

	o.transport = newSessionTransport(nil)
	o.playback = newPlaybackController(nil)
	o.capture = newCaptureController(nil, newAudioInput(nil, func(audio []byte) {
		if o.capture.recognizer != nil {
			if err := o.capture.recognizer.SendAudio(audio); err != nil {
				logger.Warn("failed to forward captured audio", "error", err)
			}
		}
	}))

	for _, opt := range opts {
		opt(o)
	}

	o.published = o.state
	o.publishedContext = o.remembered.Text()

	return o
}

// Start opens the session channel and begins reconciling events.
//
// ctx is the base context for the whole session; cancelling it closes the
// orchestrator.
//
// Contract: call Start at most once per orchestrator instance.
func (o *Orchestrator) Start(ctx context.Context, opts ...SessionOption) error {
	if o.closed.Load() {
		return fmt.Errorf("orchestrator already closed")
	}

	o.sessionOptions = SessionOptions{}
	for _, opt := range opts {
		opt(&o.sessionOptions)
	}

	o.baseContext = ctx

	o.capture.configure(ctx, o.state.Language, captureCallbacks{
		onFragment:      func(fragment string) { o.enqueue(events.NewUserTranscriptFragment(fragment)) },
		onSpeechStarted: func() { o.enqueue(events.NewUserSpeechStarted()) },
		onSpeechEnded:   func() { o.enqueue(events.NewUserSpeechEnded()) },
	})
	o.playback.setCallbacks(func(handleID string, final bool) {
		o.enqueue(events.NewPlaybackFinished(handleID, final))
	})

	if err := o.transport.open(ctx,
		transport.WithStatusCallback(func(stage wire.Stage) { o.enqueue(events.NewServerStatusReceived(stage)) }),
		transport.WithTextCallback(func(text string) { o.enqueue(events.NewAssistantTextReceived(text)) }),
		transport.WithToolUseCallback(func() { o.enqueue(events.NewToolUseFlagged()) }),
		transport.WithAudioCallback(func(audio []byte) { o.enqueue(events.NewAssistantAudioReceived(audio)) }),
		transport.WithFaultCallback(func(err error) { o.enqueue(events.NewTransportFault(err)) }),
	); err != nil {
		return err
	}

	o.startOnce.Do(func() {
		o.started.Store(true)
		go o.run()
		go o.tickPatience()
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	})

	return nil
}

// Close tears the session down: capture stops without restarting, the
// channel closes, any in-flight playback is released and the partial
// utterance is discarded, never auto-sent.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)

		o.capture.close()
		if err := o.transport.close(); err != nil {
			logger.Warn("failed to close session transport", "error", err)
		}
		o.playback.close()

		close(o.closeCh)
		if o.started.Load() {
			<-o.done
		}
	})
}

// Commands from the interface are queued like every other event so session
// state keeps its single writer.

func (o *Orchestrator) ToggleListening() { o.enqueue(events.NewListeningToggled()) }
func (o *Orchestrator) SetMuted(muted bool) {
	o.enqueue(events.NewMuteSet(muted))
}
func (o *Orchestrator) SetLanguage(tag string) { o.enqueue(events.NewLanguageSet(tag)) }
func (o *Orchestrator) SetPatience(patience time.Duration) {
	o.enqueue(events.NewPatienceSet(patience))
}

// State returns a copy of the last published session state.
func (o *Orchestrator) State() SessionState {
	o.publishMu.RLock()
	defer o.publishMu.RUnlock()
	return o.published
}

// Loudness reports the smoothed live playback loudness in [0, 1].
func (o *Orchestrator) Loudness() float64 {
	return o.playback.loudness()
}

// RememberedContext returns the capped context log as last published.
func (o *Orchestrator) RememberedContext() string {
	o.publishMu.RLock()
	defer o.publishMu.RUnlock()
	return o.publishedContext
}

// Transcript returns a deep copy of the conversation log.
func (o *Orchestrator) Transcript() []TranscriptEntry {
	o.publishMu.RLock()
	defer o.publishMu.RUnlock()

	entries := []TranscriptEntry{}
	if err := copier.Copy(&entries, o.transcriptLog.entries); err != nil {
		return nil
	}
	return entries
}

func (o *Orchestrator) enqueue(event events.Event) {
	select {
	case <-o.closeCh:
	case o.queue <- event:
	}
}

func (o *Orchestrator) run() {
	defer close(o.done)

	for {
		select {
		case <-o.closeCh:
			return
		case event := <-o.queue:
			o.handleEvent(event)
		}
	}
}

// tickPatience drives the aggregator deadline checks and the turn
// watchdog. Ticks are dropped rather than queued up when the loop is busy.
func (o *Orchestrator) tickPatience() {
	ticker := time.NewTicker(patiencePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.closeCh:
			return
		case <-ticker.C:
			select {
			case o.queue <- events.NewPatienceTick():
			default:
			}
		}
	}
}
