package events

const (
	KindUserSpeechStarted      Kind = "user.speech.started"
	KindUserSpeechEnded        Kind = "user.speech.ended"
	KindUserTranscriptFragment Kind = "user.transcript.fragment"
)

// UserSpeechStarted signals that the recognition engine detected the user
// starting to speak. It drives barge-in against in-flight playback.
type UserSpeechStarted struct{ Base }

func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted)}
}

type UserSpeechEnded struct{ Base }

func NewUserSpeechEnded() UserSpeechEnded {
	return UserSpeechEnded{Base: NewBase(KindUserSpeechEnded)}
}

// UserTranscriptFragment carries one finalized recognition result for a
// short span of speech, before aggregation into an utterance.
type UserTranscriptFragment struct {
	Base
	Fragment string
}

func NewUserTranscriptFragment(fragment string) UserTranscriptFragment {
	return UserTranscriptFragment{Base: NewBase(KindUserTranscriptFragment), Fragment: fragment}
}
