// Package transport defines the session-channel capability the orchestrator
// talks through. Any backend that can carry tagged text frames plus raw
// binary frames over one duplex connection is substitutable.
package transport

import "github.com/girovoice/giro-core/core/wire"

// SessionOptions carry the demux callbacks for one opened session channel.
// The backend parses every inbound text frame exactly once and routes it by
// tag; binary frames go straight to the audio callback.
type SessionOptions struct {
	StatusCallback  func(stage wire.Stage)
	TextCallback    func(text string)
	ToolUseCallback func()
	AudioCallback   func(audio []byte)

	// FaultCallback receives malformed-frame and channel-level errors. The
	// session stays open where possible; faults are turn-scoped.
	FaultCallback func(err error)

	// ClosedCallback fires once when the channel is gone for good.
	ClosedCallback func()
}

type SessionOption func(*SessionOptions)

func WithStatusCallback(callback func(stage wire.Stage)) SessionOption {
	return func(o *SessionOptions) {
		o.StatusCallback = callback
	}
}

func WithTextCallback(callback func(text string)) SessionOption {
	return func(o *SessionOptions) {
		o.TextCallback = callback
	}
}

func WithToolUseCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.ToolUseCallback = callback
	}
}

func WithAudioCallback(callback func(audio []byte)) SessionOption {
	return func(o *SessionOptions) {
		o.AudioCallback = callback
	}
}

func WithFaultCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) {
		o.FaultCallback = callback
	}
}

func WithClosedCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.ClosedCallback = callback
	}
}
