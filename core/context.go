package session

// contextCharBudget caps the remembered context re-sent with every request.
// Overflow drops the oldest content first.
const contextCharBudget = 20000

// RememberedContext is the capped running log of prior user utterances that
// gives the backend conversational memory. It is owned by whoever
// constructs the orchestrator and handed in explicitly; the orchestrator
// appends to it after every dispatched utterance and reports changes
// through the persist callback.
type RememberedContext struct {
	text string
}

func NewRememberedContext(initial string) *RememberedContext {
	c := &RememberedContext{}
	c.text = clampFront(initial, contextCharBudget)
	return c
}

func (c *RememberedContext) Text() string {
	if c == nil {
		return ""
	}
	return c.text
}

// Append joins the dispatched utterance onto the context and re-clamps to
// the character budget.
func (c *RememberedContext) Append(utterance string) {
	if c == nil || utterance == "" {
		return
	}

	if c.text == "" {
		c.text = clampFront(utterance, contextCharBudget)
		return
	}

	c.text = clampFront(c.text+", "+utterance, contextCharBudget)
}

// clampFront keeps the trailing budget characters, dropping the oldest
// content. Counted in runes so a multi-byte boundary is never split.
func clampFront(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[len(runes)-budget:])
}
