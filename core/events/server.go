package events

import "github.com/girovoice/giro-core/core/wire"

const (
	KindServerStatusReceived   Kind = "server.status.received"
	KindAssistantTextReceived  Kind = "server.text.received"
	KindAssistantAudioReceived Kind = "server.audio.received"
	KindToolUseFlagged         Kind = "server.tool.flagged"
	KindTransportFault         Kind = "server.transport.fault"
)

// ServerStatusReceived carries one server-progress marker for the in-flight
// turn.
type ServerStatusReceived struct {
	Base
	Stage wire.Stage
}

func NewServerStatusReceived(stage wire.Stage) ServerStatusReceived {
	return ServerStatusReceived{Base: NewBase(KindServerStatusReceived), Stage: stage}
}

// AssistantTextReceived carries the finalized reply text for the in-flight
// turn. It always logically precedes the turn's audio.
type AssistantTextReceived struct {
	Base
	Text string
}

func NewAssistantTextReceived(text string) AssistantTextReceived {
	return AssistantTextReceived{Base: NewBase(KindAssistantTextReceived), Text: text}
}

// AssistantAudioReceived carries the synthesized speech bytes for the
// current turn. Ownership of the buffer passes to playback.
type AssistantAudioReceived struct {
	Base
	Audio []byte
}

func NewAssistantAudioReceived(audio []byte) AssistantAudioReceived {
	return AssistantAudioReceived{Base: NewBase(KindAssistantAudioReceived), Audio: audio}
}

type ToolUseFlagged struct{ Base }

func NewToolUseFlagged() ToolUseFlagged {
	return ToolUseFlagged{Base: NewBase(KindToolUseFlagged)}
}

// TransportFault reports a malformed inbound frame or a failed send. Faults
// are turn-scoped: the orchestrator abandons the turn and recovers.
type TransportFault struct {
	Base
	Err error
}

func NewTransportFault(err error) TransportFault {
	return TransportFault{Base: NewBase(KindTransportFault), Err: err}
}
