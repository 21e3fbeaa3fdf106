package wire

import "fmt"

// ChatText is the single outbound frame: one finalized utterance, already
// prefixed with the language marker and any remembered context.
type ChatText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	languageMarkerFormat = "[EXPECTED LANGUAGE OF RESPONSE: %s]"

	// The backend prompt convention is Portuguese on the wire regardless of
	// the requested response language.
	contextPrefix    = "Coisas que eu disse antes para você ter contexto:("
	contextSeparator = ") | E agora que eu disse agora e quero uma resposta direta:"
)

// NewChatText builds the outbound frame for one dispatched utterance.
// rememberedContext may be empty, in which case the bare utterance follows
// the language marker.
func NewChatText(language, rememberedContext, utterance string) ChatText {
	text := fmt.Sprintf(languageMarkerFormat, language)
	if rememberedContext != "" {
		text += contextPrefix + rememberedContext + contextSeparator + utterance
	} else {
		text += utterance
	}

	return ChatText{Type: TypeChatText, Text: text}
}
