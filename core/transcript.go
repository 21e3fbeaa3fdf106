package session

import "time"

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// TranscriptEntry is one finalized line of the conversation: a dispatched
// user utterance or a server reply.
type TranscriptEntry struct {
	Author Author
	Text   string
	At     time.Time
}

type transcript struct {
	entries []TranscriptEntry
}

func (t *transcript) append(author Author, text string) {
	t.entries = append(t.entries, TranscriptEntry{
		Author: author,
		Text:   text,
		At:     time.Now(),
	})
}
