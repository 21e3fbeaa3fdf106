package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	session "github.com/girovoice/giro-core/core"
	"github.com/girovoice/giro-core/core/audio/miniaudio"
	"github.com/girovoice/giro-core/core/audio/portaudio"
	"github.com/girovoice/giro-core/core/speechtotext/deepgram"
	"github.com/girovoice/giro-core/core/transport/backend"
	"github.com/girovoice/giro-core/internal/preferences"
	"github.com/girovoice/giro-core/internal/tui"
)

const (
	defaultSessionURL = "ws://localhost:8080/session"

	portaudioBufferSize = 1024
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sessionURL := os.Getenv("GIRO_SESSION_URL")
	if sessionURL == "" {
		sessionURL = defaultSessionURL
	}

	store, err := preferences.Open(preferencesPath())
	if err != nil {
		return err
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}

	// The orchestrator closes its audio input on shutdown; the miniaudio
	// client tears down capture and playback together on the first close.
	var input session.AudioInput = audioClient
	if os.Getenv("GIRO_CAPTURE_BACKEND") == "portaudio" {
		portaudioClient, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return fmt.Errorf("failed to initialize portaudio capture: %w", err)
		}
		input = portaudioClient
		defer audioClient.Close()
	}

	orchestrator := session.NewOrchestrator(
		session.WithSpeechRecognizer(deepgram.NewTranscriptionClient()),
		session.WithAudioInput(input),
		session.WithAudioPlayer(audioClient),
		session.WithSessionBackend(backend.NewClient(sessionURL)),
		session.WithLanguage(store.Language()),
		session.WithPatience(store.Patience()),
		session.WithRememberedContext(store.RememberedContext()),
	)
	defer orchestrator.Close()

	program := tea.NewProgram(
		tui.NewModel(orchestrator),
		tea.WithAltScreen(),
	)

	err = orchestrator.Start(context.Background(),
		session.WithStateChangedCallback(func(state session.SessionState) {
			program.Send(tui.StateMsg{State: state})
		}),
		session.WithUserTranscriptCallback(func(utterance string) {
			program.Send(tui.TranscriptMsg{Author: session.AuthorUser, Text: utterance})
		}),
		session.WithAssistantResponseCallback(func(text string) {
			program.Send(tui.TranscriptMsg{Author: session.AuthorAssistant, Text: text})
		}),
		session.WithToolUsedCallback(func() {
			program.Send(tui.ToolUsedMsg{})
		}),
		session.WithContextPersistCallback(func(context string) {
			if err := store.SetRememberedContext(context); err != nil {
				log.Printf("Failed to persist remembered context: %v", err)
			}
		}),
		session.WithPreferencesChangedCallback(func(language string, patience time.Duration) {
			if err := store.SetLanguage(language); err != nil {
				log.Printf("Failed to persist language: %v", err)
			}
			if err := store.SetPatience(patience); err != nil {
				log.Printf("Failed to persist patience: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interface failed: %w", err)
	}
	return nil
}

func preferencesPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "giro.yaml"
	}
	return filepath.Join(configDir, "giro", "preferences.yaml")
}
