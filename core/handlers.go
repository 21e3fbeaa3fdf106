package session

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/girovoice/giro-core/core/events"
)

// handleEvent is the only place session state mutates. It runs exclusively
// on the loop goroutine.
func (o *Orchestrator) handleEvent(event events.Event) {
	switch typedEvent := event.(type) {
	case events.UserTranscriptFragment:
		o.handleFragment(typedEvent)
	case events.UserSpeechStarted:
		o.handleSpeechStarted()
	case events.UserSpeechEnded:
		// Fragment delivery already restarts the patience window; nothing
		// to reconcile here.
	case events.PatienceTick:
		o.handlePatienceTick(typedEvent)
	case events.ServerStatusReceived:
		o.handleStatus(typedEvent)
	case events.AssistantTextReceived:
		o.handleAssistantText(typedEvent)
	case events.ToolUseFlagged:
		if o.sessionOptions.onToolUsed != nil {
			o.sessionOptions.onToolUsed()
		}
	case events.AssistantAudioReceived:
		o.handleAssistantAudio(typedEvent)
	case events.PlaybackFinished:
		o.handlePlaybackFinished(typedEvent)
	case events.TransportFault:
		o.handleTransportFault(typedEvent)
	case events.ListeningToggled:
		o.handleListeningToggled()
	case events.MuteSet:
		o.handleMuteSet(typedEvent)
	case events.LanguageSet:
		o.handleLanguageSet(typedEvent)
	case events.PatienceSet:
		o.handlePatienceSet(typedEvent)
	}
}

func (o *Orchestrator) handleFragment(event events.UserTranscriptFragment) {
	if !o.state.Listening || o.state.Muted {
		return
	}

	o.aggregator.addFragment(event.Fragment, event.Timestamp())
	o.state.Waiting = true
	o.publish()
}

// handleSpeechStarted implements barge-in: the user talking over a playing
// response stops it immediately.
func (o *Orchestrator) handleSpeechStarted() {
	if !o.state.Speaking {
		return
	}

	o.playback.stopCurrent()
	o.state.Speaking = false
	o.publish()
}

func (o *Orchestrator) handlePatienceTick(event events.PatienceTick) {
	o.checkTurnWatchdog(event.Timestamp())

	if o.aggregator.due(event.Timestamp(), o.state.Patience) {
		o.dispatchUtterance(o.aggregator.take())
	}
}

func (o *Orchestrator) dispatchUtterance(utterance string) {
	_, span := tracer.Start(o.baseContext, "dispatch utterance",
		trace.WithAttributes(attribute.Int("utterance.length", len(utterance))))
	defer span.End()

	o.state.Waiting = false
	o.appendTranscript(AuthorUser, utterance)
	if o.sessionOptions.onUserTranscript != nil {
		o.sessionOptions.onUserTranscript(utterance)
	}

	if err := o.transport.sendUtterance(o.state.Language, o.remembered.Text(), utterance); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.state.ServerStage = StageNone
		o.publish()
		return
	}

	o.remembered.Append(utterance)
	o.publishMu.Lock()
	o.publishedContext = o.remembered.Text()
	o.publishMu.Unlock()
	if o.sessionOptions.onContextPersist != nil {
		o.sessionOptions.onContextPersist(o.remembered.Text())
	}

	if o.turnTimeout > 0 {
		o.turnDeadline = time.Now().Add(o.turnTimeout)
	}
	o.publish()
}

// checkTurnWatchdog resets the progress stage when a dispatched turn never
// produces a reply, so the interface does not show a stuck stage forever.
func (o *Orchestrator) checkTurnWatchdog(now time.Time) {
	if o.turnDeadline.IsZero() || now.Before(o.turnDeadline) {
		return
	}

	logger.Warn("turn reply overdue, resetting progress stage",
		"timeout", o.turnTimeout.String(),
	)
	o.turnDeadline = time.Time{}
	o.state.ServerStage = StageNone
	o.publish()
}

func (o *Orchestrator) handleStatus(event events.ServerStatusReceived) {
	stage := stageFromWire(event.Stage)
	if !o.state.ServerStage.canAdvanceTo(stage) {
		logger.Warn("ignoring out-of-order status update",
			"current", o.state.ServerStage.String(),
			"received", stage.String(),
		)
		return
	}

	o.state.ServerStage = stage
	o.playProgressCue(stage)
	o.publish()
}

// playProgressCue plays a short non-final sound so the user hears the turn
// advancing before the spoken reply arrives.
func (o *Orchestrator) playProgressCue(stage ServerStage) {
	var cue []byte
	switch stage {
	case StageProcessing:
		cue = o.progressCues.Processing
	case StageWritten:
		cue = o.progressCues.Written
	case StageReady:
		cue = o.progressCues.Ready
	}
	if len(cue) == 0 {
		return
	}

	if err := o.playback.play(cue, false, false); err != nil {
		logger.Warn("failed to play progress cue", "stage", stage.String(), "error", err)
	}
}

func (o *Orchestrator) handleAssistantText(event events.AssistantTextReceived) {
	o.appendTranscript(AuthorAssistant, event.Text)

	// The reply text ends the turn's progress tracking, even when the
	// matching audio is still in flight.
	o.playback.stopCurrent()
	o.state.Speaking = false
	o.state.ServerStage = StageNone
	o.turnDeadline = time.Time{}
	o.publish()

	if o.sessionOptions.onAssistantResponse != nil {
		o.sessionOptions.onAssistantResponse(event.Text)
	}
}

func (o *Orchestrator) handleAssistantAudio(event events.AssistantAudioReceived) {
	o.state.ServerStage = StageNone
	o.turnDeadline = time.Time{}

	if err := o.playback.play(event.Audio, false, true); err != nil {
		logger.Warn("failed to play response audio", "error", err)
		o.state.Speaking = false
	} else {
		o.state.Speaking = true
	}
	o.publish()
}

func (o *Orchestrator) handlePlaybackFinished(event events.PlaybackFinished) {
	if !event.Final {
		return
	}

	o.state.Speaking = false
	o.publish()
}

func (o *Orchestrator) handleTransportFault(event events.TransportFault) {
	logger.Error("session transport fault", "error", event.Err)

	o.state.ServerStage = StageNone
	o.turnDeadline = time.Time{}
	o.publish()
}

func (o *Orchestrator) handleListeningToggled() {
	if o.state.Listening {
		o.capture.stop()
		o.aggregator.clear()
		o.state.Listening = false
		o.state.Waiting = false
		o.publish()
		return
	}

	if err := o.capture.start(); err != nil {
		logger.Error("failed to start speech capture", "error", err)
		return
	}
	o.state.Listening = true
	o.publish()
}

func (o *Orchestrator) handleMuteSet(event events.MuteSet) {
	if o.state.Muted == event.Muted {
		return
	}

	o.state.Muted = event.Muted
	o.capture.setMuted(event.Muted)
	o.publish()
}

func (o *Orchestrator) handleLanguageSet(event events.LanguageSet) {
	if event.Tag == "" || event.Tag == o.state.Language {
		return
	}

	o.state.Language = event.Tag
	if err := o.capture.setLanguage(event.Tag); err != nil {
		logger.Warn("failed to switch recognition language", "language", event.Tag, "error", err)
	}
	o.publish()
	o.notifyPreferences()
}

func (o *Orchestrator) handlePatienceSet(event events.PatienceSet) {
	if event.Duration <= 0 {
		return
	}

	o.state.Patience = event.Duration
	o.publish()
	o.notifyPreferences()
}

func (o *Orchestrator) notifyPreferences() {
	if o.sessionOptions.onPreferencesChanged != nil {
		o.sessionOptions.onPreferencesChanged(o.state.Language, o.state.Patience)
	}
}

func (o *Orchestrator) appendTranscript(author Author, text string) {
	o.publishMu.Lock()
	o.transcriptLog.append(author, text)
	o.publishMu.Unlock()
}

func (o *Orchestrator) publish() {
	o.publishMu.Lock()
	o.published = o.state
	o.publishMu.Unlock()

	if o.sessionOptions.onStateChanged != nil {
		o.sessionOptions.onStateChanged(o.state)
	}
}
