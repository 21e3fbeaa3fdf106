package speechtotext

import "github.com/girovoice/giro-core/core/audio"

// TranscriptionOptions configure one continuous recognition session. The
// engine emits one finalized fragment per detected pause; the capture
// controller aggregates those into utterances.
type TranscriptionOptions struct {
	// FragmentCallback receives one finalized transcript per detected pause.
	FragmentCallback func(fragment string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// ClosedCallback fires when the recognition session stops for any
	// reason, including engine-side timeouts. The caller decides whether to
	// restart; the engine never restarts itself.
	ClosedCallback func()

	// Language is the locale tag recognition runs in, e.g. "pt-BR".
	Language string

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithFragmentCallback(callback func(fragment string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.FragmentCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithClosedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ClosedCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
