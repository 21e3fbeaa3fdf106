package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/girovoice/giro-core/core/audio"
	"github.com/girovoice/giro-core/core/events"
	"github.com/girovoice/giro-core/core/speechtotext"
	"github.com/girovoice/giro-core/core/transport"
	"github.com/girovoice/giro-core/core/wire"
)

func newTestOrchestrator(backend *sessionBackendStub, player *audioPlayerStub, recognizer *recognizerStub) *Orchestrator {
	opts := []OrchestratorOption{}
	if backend != nil {
		opts = append(opts, WithSessionBackend(backend))
	}
	if player != nil {
		opts = append(opts, WithAudioPlayer(player))
	}
	if recognizer != nil {
		opts = append(opts, WithSpeechRecognizer(recognizer))
	}

	orchestrator := NewOrchestrator(opts...)
	orchestrator.state.Listening = true
	orchestrator.state.Muted = false
	return orchestrator
}

func TestFragmentSetsWaiting(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Hello"))

	if !orchestrator.State().Waiting {
		t.Fatalf("expected waiting to be set after a fragment arrives")
	}
}

func TestFragmentIgnoredWhileMuted(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)
	orchestrator.state.Muted = true

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Hello"))

	if orchestrator.State().Waiting {
		t.Fatalf("expected fragments to be ignored while muted")
	}
	if orchestrator.aggregator.isAccumulating() {
		t.Fatalf("expected no pending utterance while muted")
	}
}

func TestPatienceGapDispatchesUtterance(t *testing.T) {
	backend := &sessionBackendStub{}
	orchestrator := newTestOrchestrator(backend, nil, nil)

	utterances := []string{}
	orchestrator.sessionOptions.onUserTranscript = func(utterance string) {
		utterances = append(utterances, utterance)
	}

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Hello"))
	orchestrator.handleEvent(events.NewUserTranscriptFragment("how are you"))
	orchestrator.aggregator.lastFragmentAt = time.Now().Add(-orchestrator.state.Patience - time.Second)

	orchestrator.handleEvent(events.NewPatienceTick())

	if len(backend.sent) != 1 {
		t.Fatalf("expected one dispatched frame, got %d", len(backend.sent))
	}
	if !strings.Contains(backend.sent[0].Text, "Hello, how are you") {
		t.Fatalf("expected the joined utterance on the wire, got %q", backend.sent[0].Text)
	}
	if !strings.Contains(backend.sent[0].Text, "[EXPECTED LANGUAGE OF RESPONSE: pt-BR]") {
		t.Fatalf("expected the language marker on the wire, got %q", backend.sent[0].Text)
	}
	if len(utterances) != 1 || utterances[0] != "Hello, how are you" {
		t.Fatalf("expected the transcript callback with the joined utterance, got %v", utterances)
	}
	if orchestrator.State().Waiting {
		t.Fatalf("expected waiting to clear on dispatch")
	}
	if got := orchestrator.RememberedContext(); got != "Hello, how are you" {
		t.Fatalf("expected the dispatched utterance appended to context, got %q", got)
	}
}

func TestDispatchedUtteranceEntersTranscript(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Oi"))
	orchestrator.handleEvent(events.NewPatienceTick())

	entries := orchestrator.Transcript()
	if len(entries) != 1 || entries[0].Author != AuthorUser || entries[0].Text != "Oi" {
		t.Fatalf("expected one user transcript entry, got %+v", entries)
	}
}

func TestSendFailureResetsStage(t *testing.T) {
	backend := &sessionBackendStub{sendErr: fmt.Errorf("connection lost")}
	orchestrator := newTestOrchestrator(backend, nil, nil)
	orchestrator.state.ServerStage = StageProcessing

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Oi"))
	orchestrator.handleEvent(events.NewPatienceTick())

	if got := orchestrator.State().ServerStage; got != StageNone {
		t.Fatalf("expected stage reset after a failed send, got %v", got)
	}
	if got := orchestrator.RememberedContext(); got != "" {
		t.Fatalf("expected the context untouched after a failed send, got %q", got)
	}
}

func TestStatusAdvancesStagesInOrder(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)

	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageProcessing))
	if got := orchestrator.State().ServerStage; got != StageProcessing {
		t.Fatalf("expected stage processing, got %v", got)
	}

	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageWritten))
	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageReady))
	if got := orchestrator.State().ServerStage; got != StageReady {
		t.Fatalf("expected stage ready, got %v", got)
	}
}

func TestOutOfOrderStatusDropped(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)

	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageWritten))
	if got := orchestrator.State().ServerStage; got != StageNone {
		t.Fatalf("expected a skipped stage to be dropped, got %v", got)
	}

	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageProcessing))
	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageProcessing))
	if got := orchestrator.State().ServerStage; got != StageProcessing {
		t.Fatalf("expected a repeated stage to be dropped, got %v", got)
	}
}

func TestAssistantTextEndsTurnProgress(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)
	orchestrator.state.ServerStage = StageReady
	orchestrator.turnDeadline = time.Now().Add(time.Minute)

	responses := []string{}
	orchestrator.sessionOptions.onAssistantResponse = func(text string) {
		responses = append(responses, text)
	}

	orchestrator.handleEvent(events.NewAssistantTextReceived("Tudo bem!"))

	if got := orchestrator.State().ServerStage; got != StageNone {
		t.Fatalf("expected reply text to reset the stage, got %v", got)
	}
	if !orchestrator.turnDeadline.IsZero() {
		t.Fatalf("expected reply text to disarm the turn watchdog")
	}
	if len(responses) != 1 || responses[0] != "Tudo bem!" {
		t.Fatalf("expected the response callback, got %v", responses)
	}

	entries := orchestrator.Transcript()
	if len(entries) != 1 || entries[0].Author != AuthorAssistant {
		t.Fatalf("expected one assistant transcript entry, got %+v", entries)
	}
}

func TestAssistantAudioStartsSpeaking(t *testing.T) {
	player := &audioPlayerStub{}
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, player, nil)
	orchestrator.state.ServerStage = StageReady

	orchestrator.handleEvent(events.NewAssistantAudioReceived([]byte{0x01, 0x02}))

	state := orchestrator.State()
	if !state.Speaking {
		t.Fatalf("expected speaking while response audio plays")
	}
	if state.ServerStage != StageNone {
		t.Fatalf("expected response audio to reset the stage, got %v", state.ServerStage)
	}
	if len(player.handles) != 1 {
		t.Fatalf("expected one playback started, got %d", len(player.handles))
	}
}

func TestFinalPlaybackCompletionClearsSpeaking(t *testing.T) {
	player := &audioPlayerStub{}
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, player, nil)

	orchestrator.handleEvent(events.NewAssistantAudioReceived([]byte{0x01}))
	player.handles[0].finish()

	// The controller reports completion through its callback; replay it as
	// the queued event the loop would see.
	orchestrator.handleEvent(events.NewPlaybackFinished(player.handles[0].id, true))

	if orchestrator.State().Speaking {
		t.Fatalf("expected speaking to clear when the response finishes")
	}
}

func TestBargeInStopsPlayback(t *testing.T) {
	player := &audioPlayerStub{}
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, player, nil)

	orchestrator.handleEvent(events.NewAssistantAudioReceived([]byte{0x01}))
	orchestrator.handleEvent(events.NewUserSpeechStarted())

	if orchestrator.State().Speaking {
		t.Fatalf("expected barge-in to clear the speaking state")
	}
	if !player.handles[0].stopped {
		t.Fatalf("expected barge-in to stop the live playback")
	}
}

func TestSpeechStartedWithoutPlaybackIsHarmless(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, &audioPlayerStub{}, nil)

	orchestrator.handleEvent(events.NewUserSpeechStarted())

	if orchestrator.State().Speaking {
		t.Fatalf("expected no speaking state without a live playback")
	}
}

func TestProgressCuePlaysWithoutSpeaking(t *testing.T) {
	player := &audioPlayerStub{}
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, player, nil)
	orchestrator.progressCues = ProgressCues{Processing: []byte{0x0a}}

	orchestrator.handleEvent(events.NewServerStatusReceived(wire.StageProcessing))

	if len(player.handles) != 1 {
		t.Fatalf("expected the processing cue to start playing, got %d handles", len(player.handles))
	}
	if orchestrator.State().Speaking {
		t.Fatalf("expected cue playback to leave the speaking state alone")
	}

	orchestrator.handleEvent(events.NewPlaybackFinished(player.handles[0].id, false))
	if orchestrator.State().Speaking {
		t.Fatalf("expected cue completion to leave the speaking state alone")
	}
}

func TestTurnWatchdogResetsStuckStage(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)
	orchestrator.state.ServerStage = StageProcessing
	orchestrator.turnDeadline = time.Now().Add(-time.Second)

	orchestrator.handleEvent(events.NewPatienceTick())

	if got := orchestrator.State().ServerStage; got != StageNone {
		t.Fatalf("expected the watchdog to reset a stuck stage, got %v", got)
	}
	if !orchestrator.turnDeadline.IsZero() {
		t.Fatalf("expected the watchdog to disarm after firing")
	}
}

func TestTransportFaultResetsStage(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)
	orchestrator.state.ServerStage = StageWritten
	orchestrator.turnDeadline = time.Now().Add(time.Minute)

	orchestrator.handleEvent(events.NewTransportFault(fmt.Errorf("malformed frame")))

	if got := orchestrator.State().ServerStage; got != StageNone {
		t.Fatalf("expected a transport fault to reset the stage, got %v", got)
	}
	if !orchestrator.turnDeadline.IsZero() {
		t.Fatalf("expected a transport fault to disarm the turn watchdog")
	}
}

func TestToggleListeningStartsAndStopsCapture(t *testing.T) {
	recognizer := &recognizerStub{}
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, recognizer)
	orchestrator.state.Listening = false

	orchestrator.handleEvent(events.NewListeningToggled())
	if !orchestrator.State().Listening {
		t.Fatalf("expected listening after the first toggle")
	}
	if len(recognizer.sessions) != 1 {
		t.Fatalf("expected one recognition session, got %d", len(recognizer.sessions))
	}

	orchestrator.handleEvent(events.NewUserTranscriptFragment("pending"))
	orchestrator.handleEvent(events.NewListeningToggled())

	state := orchestrator.State()
	if state.Listening {
		t.Fatalf("expected listening to clear after the second toggle")
	}
	if state.Waiting {
		t.Fatalf("expected the pending utterance discarded when listening stops")
	}
	if orchestrator.aggregator.isAccumulating() {
		t.Fatalf("expected no pending utterance after listening stops")
	}
	if recognizer.closeCalls != 1 {
		t.Fatalf("expected the recognition session closed, got %d closes", recognizer.closeCalls)
	}
}

func TestSetLanguageUpdatesStateAndPreferences(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, &recognizerStub{})

	var gotLanguage string
	var gotPatience time.Duration
	orchestrator.sessionOptions.onPreferencesChanged = func(language string, patience time.Duration) {
		gotLanguage = language
		gotPatience = patience
	}

	orchestrator.handleEvent(events.NewLanguageSet("en-US"))

	if got := orchestrator.State().Language; got != "en-US" {
		t.Fatalf("expected language en-US, got %q", got)
	}
	if gotLanguage != "en-US" || gotPatience != orchestrator.State().Patience {
		t.Fatalf("expected the preferences callback with the new values, got %q %v", gotLanguage, gotPatience)
	}
}

func TestSetPatienceRejectsNonPositive(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)
	before := orchestrator.State().Patience

	orchestrator.handleEvent(events.NewPatienceSet(0))
	orchestrator.handleEvent(events.NewPatienceSet(-time.Second))

	if got := orchestrator.State().Patience; got != before {
		t.Fatalf("expected non-positive patience values rejected, got %v", got)
	}

	orchestrator.handleEvent(events.NewPatienceSet(3 * time.Second))
	if got := orchestrator.State().Patience; got != 3*time.Second {
		t.Fatalf("expected patience updated to 3s, got %v", got)
	}
}

func TestMuteCommandSuppressesFragments(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, &recognizerStub{})

	orchestrator.handleEvent(events.NewMuteSet(true))
	orchestrator.handleEvent(events.NewUserTranscriptFragment("suppressed"))

	if orchestrator.State().Waiting {
		t.Fatalf("expected fragments suppressed while muted")
	}
	if !orchestrator.capture.isMuted() {
		t.Fatalf("expected the capture controller to track the mute flag")
	}

	orchestrator.handleEvent(events.NewMuteSet(false))
	orchestrator.handleEvent(events.NewUserTranscriptFragment("heard"))

	if !orchestrator.State().Waiting {
		t.Fatalf("expected fragments to flow again after unmuting")
	}
}

func TestStateChangedCallbackObservesTransitions(t *testing.T) {
	orchestrator := newTestOrchestrator(&sessionBackendStub{}, nil, nil)

	observed := []SessionState{}
	orchestrator.sessionOptions.onStateChanged = func(state SessionState) {
		observed = append(observed, state)
	}

	orchestrator.handleEvent(events.NewUserTranscriptFragment("Oi"))

	if len(observed) != 1 || !observed[0].Waiting {
		t.Fatalf("expected a state notification with waiting set, got %v", observed)
	}
}

type sessionBackendStub struct {
	sent    []wire.ChatText
	sendErr error

	openCalls  int
	closeCalls int
}

func (s *sessionBackendStub) Open(context.Context, ...transport.SessionOption) error {
	s.openCalls++
	return nil
}

func (s *sessionBackendStub) Send(msg wire.ChatText) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *sessionBackendStub) Close() error {
	s.closeCalls++
	return nil
}

type playbackHandleStub struct {
	id       string
	stopped  bool
	loudness float64
	onEnded  func()
}

func (p *playbackHandleStub) ID() string        { return p.id }
func (p *playbackHandleStub) Stop()             { p.stopped = true }
func (p *playbackHandleStub) Loudness() float64 { return p.loudness }

func (p *playbackHandleStub) finish() {
	if p.onEnded != nil {
		p.onEnded()
	}
}

type audioPlayerStub struct {
	handles []*playbackHandleStub
	playErr error
}

func (s *audioPlayerStub) Play(buffer []byte, opts ...audio.PlayOption) (audio.Playback, error) {
	if s.playErr != nil {
		return nil, s.playErr
	}

	options := audio.PlayOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	handle := &playbackHandleStub{
		id:      fmt.Sprintf("handle-%d", len(s.handles)+1),
		onEnded: options.OnEnded,
	}
	s.handles = append(s.handles, handle)
	return handle, nil
}

type recognizerStub struct {
	sessions   []speechtotext.TranscriptionOptions
	closeCalls int

	transcribeErr error
}

func (r *recognizerStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	if r.transcribeErr != nil {
		return r.transcribeErr
	}

	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	r.sessions = append(r.sessions, options)
	return nil
}

func (r *recognizerStub) SendAudio([]byte) error { return nil }

func (r *recognizerStub) Close(context.Context) error {
	r.closeCalls++
	if len(r.sessions) > 0 {
		if closed := r.sessions[len(r.sessions)-1].ClosedCallback; closed != nil {
			closed()
		}
	}
	return nil
}
