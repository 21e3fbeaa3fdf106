// Package events defines the typed session events every asynchronous source
// is normalized into before it reaches the orchestrator queue. Recognition
// fragments, patience ticks, inbound server frames, playback lifecycle and
// user commands all arrive here as values of one closed set, so the
// orchestrator loop can reconcile them with exhaustive matching.
package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
