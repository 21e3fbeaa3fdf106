// Package wire defines the structured frames exchanged with the Giro
// backend over the session channel. Inbound text frames are parsed once at
// the transport boundary into the closed [Inbound] variant; everything past
// that boundary works with typed messages instead of loose JSON.
package wire

import (
	"encoding/json"
	"fmt"
)

const (
	TypeChatText       = "chat_text"
	TypeStatus         = "status"
	TypeAiResponseText = "ai_response_text"
	TypeMcpFlag        = "mcp_flag"
)

// Stage is the server-progress marker the backend emits while composing and
// synthesizing a reply.
type Stage string

const (
	StageProcessing Stage = "processing"
	StageWritten    Stage = "written"
	StageReady      Stage = "ready"
)

func ParseStage(text string) (Stage, error) {
	switch Stage(text) {
	case StageProcessing, StageWritten, StageReady:
		return Stage(text), nil
	}
	return "", fmt.Errorf("unknown status stage %q", text)
}

// Inbound is the closed set of messages the backend sends. New tags are a
// compile-time visible extension point: add a variant here and the demux
// switch stops compiling until it is handled.
type Inbound interface {
	isInbound()
}

// StatusUpdate advances the server-progress stage for the in-flight turn.
type StatusUpdate struct {
	Stage Stage
}

// AiText carries the finalized reply text. It is delivered before the audio
// for the same turn; some turns produce text with no audio at all.
type AiText struct {
	Text string
}

// McpFlag is informational: the backend used an external lookup tool while
// composing the current reply.
type McpFlag struct{}

// AudioPayload carries the synthesized speech for the current turn. It is
// handed straight to playback, never re-parsed.
type AudioPayload struct {
	Audio []byte
}

func (StatusUpdate) isInbound() {}
func (AiText) isInbound()       {}
func (McpFlag) isInbound()      {}
func (AudioPayload) isInbound() {}

type envelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseInbound decodes one inbound text frame. Binary frames never pass
// through here; the transport wraps them in [AudioPayload] directly.
func ParseInbound(frame []byte) (Inbound, error) {
	var parsed envelope
	if err := json.Unmarshal(frame, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbound frame: %w", err)
	}

	switch parsed.Type {
	case TypeStatus:
		stage, err := ParseStage(parsed.Text)
		if err != nil {
			return nil, err
		}
		return StatusUpdate{Stage: stage}, nil
	case TypeAiResponseText:
		return AiText{Text: parsed.Text}, nil
	case TypeMcpFlag:
		return McpFlag{}, nil
	}

	return nil, fmt.Errorf("unknown inbound frame type %q", parsed.Type)
}
