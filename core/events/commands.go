package events

import "time"

const (
	KindListeningToggled Kind = "command.listening.toggled"
	KindMuteSet          Kind = "command.mute.set"
	KindLanguageSet      Kind = "command.language.set"
	KindPatienceSet      Kind = "command.patience.set"
	KindPatienceTick     Kind = "command.patience.tick"
)

// Commands are queued like every other event so session state is only ever
// mutated from the orchestrator loop.

type ListeningToggled struct{ Base }

func NewListeningToggled() ListeningToggled {
	return ListeningToggled{Base: NewBase(KindListeningToggled)}
}

type MuteSet struct {
	Base
	Muted bool
}

func NewMuteSet(muted bool) MuteSet {
	return MuteSet{Base: NewBase(KindMuteSet), Muted: muted}
}

type LanguageSet struct {
	Base
	Tag string
}

func NewLanguageSet(tag string) LanguageSet {
	return LanguageSet{Base: NewBase(KindLanguageSet), Tag: tag}
}

type PatienceSet struct {
	Base
	Duration time.Duration
}

func NewPatienceSet(duration time.Duration) PatienceSet {
	return PatienceSet{Base: NewBase(KindPatienceSet), Duration: duration}
}

// PatienceTick is the fixed-interval poll that evaluates the pending
// utterance against the patience deadline and the turn watchdog.
type PatienceTick struct{ Base }

func NewPatienceTick() PatienceTick {
	return PatienceTick{Base: NewBase(KindPatienceTick)}
}
