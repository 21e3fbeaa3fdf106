// Package deepgram implements the continuous-recognition capability on the
// Deepgram streaming API. One client owns at most one websocket listening
// session at a time; a session ends when Deepgram closes the stream or
// Close is called, and the owner is told through the closed callback so it
// can decide whether to restart. Calling Transcribe again opens a fresh
// session, which is how language changes are applied.
package deepgram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}

// Close ends the current listening session, if any. The closed callback
// registered on Transcribe still fires when the read loop drains, so
// callers that auto-restart must flip their run directive before calling
// Close. Idempotent; the client stays usable for a later Transcribe.
func (s *TranscriptionClient) Close(context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return nil
	}

	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "CloseStream"}); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	s.conn.Close()
	s.conn = nil

	return nil
}
