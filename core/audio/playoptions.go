package audio

// PlayOptions configure a single playback started through an audio player
// client. They are consumed once at Play time; later mutation has no effect
// on a running playback.
type PlayOptions struct {
	// Loop restarts the buffer from the beginning when it drains instead of
	// finishing the playback.
	Loop bool

	// OnEnded is called exactly once when the playback reaches its natural
	// end. It is not called for stopped or replaced playbacks.
	OnEnded func()
}

type PlayOption func(*PlayOptions)

func WithLoop() PlayOption {
	return func(o *PlayOptions) {
		o.Loop = true
	}
}

func WithEndedCallback(callback func()) PlayOption {
	return func(o *PlayOptions) {
		o.OnEnded = callback
	}
}
