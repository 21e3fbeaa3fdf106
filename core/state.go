package session

import (
	"time"

	"github.com/girovoice/giro-core/core/wire"
)

// ServerStage is the observable progress of the in-flight server turn. It
// only ever advances None → Processing → Written → Ready and resets to None
// once the turn reaches a terminal outcome.
type ServerStage int

const (
	StageNone ServerStage = iota
	StageProcessing
	StageWritten
	StageReady
)

func (s ServerStage) String() string {
	switch s {
	case StageProcessing:
		return "processing"
	case StageWritten:
		return "written"
	case StageReady:
		return "ready"
	}
	return "none"
}

// canAdvanceTo reports whether next is the immediate successor of s. Status
// frames arriving out of order are dropped instead of applied.
func (s ServerStage) canAdvanceTo(next ServerStage) bool {
	return next == s+1 && next <= StageReady
}

func stageFromWire(stage wire.Stage) ServerStage {
	switch stage {
	case wire.StageProcessing:
		return StageProcessing
	case wire.StageWritten:
		return StageWritten
	case wire.StageReady:
		return StageReady
	}
	return StageNone
}

// SessionState is the externally observable session state. It is owned by
// the orchestrator loop; everything outside the loop sees copies.
type SessionState struct {
	Listening bool
	Muted     bool
	Speaking  bool
	Waiting   bool

	ServerStage ServerStage

	Language string
	Patience time.Duration
}
