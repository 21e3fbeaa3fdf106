package audio

// Playback is one live audio handle owned by a player client. At most one
// playback is alive per player; the session layer enforces replacement
// semantics on top of this contract.
type Playback interface {
	// ID uniquely identifies the handle so late lifecycle callbacks from
	// superseded playbacks can be told apart from the live one.
	ID() string

	// Stop releases the handle without invoking its completion callback.
	// Idempotent.
	Stop()

	// Loudness reports the root-mean-square of the most recently rendered
	// output window, normalized to [0, 1]. Zero once the handle is released.
	Loudness() float64
}
