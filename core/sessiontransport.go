package session

import (
	"context"
	"fmt"

	"github.com/girovoice/giro-core/core/transport"
	"github.com/girovoice/giro-core/core/wire"
)

// sessionTransport is the facade over the duplex session channel. It owns
// the outbound frame construction; inbound demultiplexing happens in the
// backend, which pushes typed callbacks registered at open time.
type sessionTransport struct {
	backend SessionBackend
}

func newSessionTransport(backend SessionBackend) *sessionTransport {
	return &sessionTransport{backend: backend}
}

func (t *sessionTransport) isConfigured() bool {
	return t != nil && t.backend != nil
}

func (t *sessionTransport) open(ctx context.Context, opts ...transport.SessionOption) error {
	if !t.isConfigured() {
		return nil
	}

	if err := t.backend.Open(ctx, opts...); err != nil {
		return fmt.Errorf("failed to open session transport: %w", err)
	}
	return nil
}

// sendUtterance writes one dispatched utterance, prefixed with the language
// marker and the remembered context per the wire convention.
func (t *sessionTransport) sendUtterance(language, rememberedContext, utterance string) error {
	if !t.isConfigured() {
		return nil
	}

	if err := t.backend.Send(wire.NewChatText(language, rememberedContext, utterance)); err != nil {
		return fmt.Errorf("failed to send utterance: %w", err)
	}
	return nil
}

func (t *sessionTransport) close() error {
	if !t.isConfigured() {
		return nil
	}

	if err := t.backend.Close(); err != nil {
		return fmt.Errorf("failed to close session transport: %w", err)
	}
	return nil
}
