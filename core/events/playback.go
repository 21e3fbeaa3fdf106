package events

const KindPlaybackFinished Kind = "playback.finished"

// PlaybackFinished signals that a playback reached its natural end. HandleID
// identifies which handle finished so completions from superseded handles
// can be ignored. Final marks the synthesized-response segment whose end
// clears the speaking state.
type PlaybackFinished struct {
	Base
	HandleID string
	Final    bool
}

func NewPlaybackFinished(handleID string, final bool) PlaybackFinished {
	return PlaybackFinished{Base: NewBase(KindPlaybackFinished), HandleID: handleID, Final: final}
}
