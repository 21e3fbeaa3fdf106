package session

import (
	"strings"
	"time"
)

const (
	// patiencePollInterval is how often the pending utterance is checked
	// against the patience deadline. The timer is re-armed by updating
	// lastFragmentAt instead of rescheduling, so fragment bursts cause no
	// timer churn.
	patiencePollInterval = 100 * time.Millisecond

	// quickDispatchThreshold is the character limit under which a lone
	// fragment is assumed to be a complete short command and dispatched at
	// the next poll instead of waiting out the full patience duration. Once
	// a second fragment arrives the user is mid-statement and the patience
	// gap applies.
	quickDispatchThreshold = 30

	// emptyUtterancePlaceholder is dispatched when the patience deadline
	// fires with nothing accumulated. Not an error; the backend treats it
	// as an open prompt.
	emptyUtterancePlaceholder = "..."

	fragmentSeparator = ", "
)

// utteranceAggregator accumulates recognition fragments into one pending
// utterance and decides when it is final. At most one pending utterance
// exists; it is cleared the instant it is taken for dispatch. All methods
// are called from the orchestrator loop only.
type utteranceAggregator struct {
	fragments      []string
	lastFragmentAt time.Time
	accumulating   bool
}

// addFragment appends one fragment and re-arms the patience deadline.
func (a *utteranceAggregator) addFragment(fragment string, now time.Time) {
	a.fragments = append(a.fragments, fragment)
	a.lastFragmentAt = now
	a.accumulating = true
}

func (a *utteranceAggregator) isAccumulating() bool {
	return a.accumulating
}

func (a *utteranceAggregator) pendingText() string {
	return strings.Join(a.fragments, fragmentSeparator)
}

// due reports whether the pending utterance should be dispatched at this
// poll: either the short-utterance fast path applies or the gap since the
// last fragment exceeded the patience duration.
func (a *utteranceAggregator) due(now time.Time, patience time.Duration) bool {
	if !a.accumulating {
		return false
	}

	if len(a.fragments) == 1 && len(a.pendingText()) <= quickDispatchThreshold {
		return true
	}

	return now.Sub(a.lastFragmentAt) > patience
}

// take returns the finalized utterance text and clears the pending state so
// the next fragment starts a fresh utterance.
func (a *utteranceAggregator) take() string {
	text := a.pendingText()
	a.clear()

	if text == "" {
		return emptyUtterancePlaceholder
	}
	return text
}

// clear discards the pending utterance without dispatching it.
func (a *utteranceAggregator) clear() {
	a.fragments = nil
	a.lastFragmentAt = time.Time{}
	a.accumulating = false
}
