package session

import (
	"context"
	"time"

	"github.com/girovoice/giro-core/core/audio"
	"github.com/girovoice/giro-core/core/speechtotext"
	"github.com/girovoice/giro-core/core/transport"
	"github.com/girovoice/giro-core/core/wire"
)

type OrchestratorOption func(*Orchestrator)

// SpeechRecognizer is the continuous-recognition capability: run a
// listening session in a given locale, emit one finalized transcript per
// detected pause and signal when the session stops.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close(ctx context.Context) error
}

func WithSpeechRecognizer(client SpeechRecognizer) OrchestratorOption {
	return func(o *Orchestrator) { o.capture.recognizer = client }
}

// AudioInput is the microphone capability feeding the recognizer.
type AudioInput interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
	EncodingInfo() audio.EncodingInfo
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.capture.input.base = client }
}

// AudioPlayer is the playback capability: decode and play an opaque audio
// buffer, signal natural completion and expose the live output loudness.
type AudioPlayer interface {
	Play(buffer []byte, opts ...audio.PlayOption) (audio.Playback, error)
}

func WithAudioPlayer(client AudioPlayer) OrchestratorOption {
	return func(o *Orchestrator) { o.playback.player = client }
}

// SessionBackend is the duplex session channel capability.
type SessionBackend interface {
	Open(ctx context.Context, opts ...transport.SessionOption) error
	Send(msg wire.ChatText) error
	Close() error
}

func WithSessionBackend(client SessionBackend) OrchestratorOption {
	return func(o *Orchestrator) { o.transport.backend = client }
}

func WithLanguage(tag string) OrchestratorOption {
	return func(o *Orchestrator) { o.state.Language = tag }
}

func WithPatience(patience time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if patience > 0 {
			o.state.Patience = patience
		}
	}
}

// WithRememberedContext seeds the capped context log carried across
// sessions. The caller owns persistence; see WithContextPersistCallback.
func WithRememberedContext(text string) OrchestratorOption {
	return func(o *Orchestrator) { o.remembered = NewRememberedContext(text) }
}

// WithTurnTimeout bounds how long a dispatched turn may stay unanswered
// before the progress stage is forced back to none.
func WithTurnTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.turnTimeout = timeout
		}
	}
}

// ProgressCues are short sound buffers played as each server-progress stage
// arrives. Cue playback never toggles the speaking state.
type ProgressCues struct {
	Processing []byte
	Written    []byte
	Ready      []byte
}

func WithProgressCues(cues ProgressCues) OrchestratorOption {
	return func(o *Orchestrator) { o.progressCues = cues }
}

// SessionOptions are the per-run observer callbacks. All callbacks are
// invoked from the orchestrator loop goroutine and must not block.
type SessionOptions struct {
	onStateChanged       func(state SessionState)
	onUserTranscript     func(utterance string)
	onAssistantResponse  func(text string)
	onToolUsed           func()
	onContextPersist     func(context string)
	onPreferencesChanged func(language string, patience time.Duration)
}

type SessionOption func(*SessionOptions)

// WithStateChangedCallback registers a callback invoked after every
// observable session-state transition with a copy of the new state.
func WithStateChangedCallback(callback func(state SessionState)) SessionOption {
	return func(o *SessionOptions) {
		o.onStateChanged = callback
	}
}

func WithUserTranscriptCallback(callback func(utterance string)) SessionOption {
	return func(o *SessionOptions) {
		o.onUserTranscript = callback
	}
}

func WithAssistantResponseCallback(callback func(text string)) SessionOption {
	return func(o *SessionOptions) {
		o.onAssistantResponse = callback
	}
}

// WithToolUsedCallback fires when the backend reports that an external
// lookup tool contributed to the current turn.
func WithToolUsedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.onToolUsed = callback
	}
}

// WithContextPersistCallback receives the remembered context after every
// append so the caller can write it back to its store.
func WithContextPersistCallback(callback func(context string)) SessionOption {
	return func(o *SessionOptions) {
		o.onContextPersist = callback
	}
}

// WithPreferencesChangedCallback receives the language and patience values
// whenever a command changes either.
func WithPreferencesChangedCallback(callback func(language string, patience time.Duration)) SessionOption {
	return func(o *SessionOptions) {
		o.onPreferencesChanged = callback
	}
}
