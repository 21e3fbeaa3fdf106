package session

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/girovoice/giro-core/core/audio"
)

// audioInput is the microphone facade feeding captured audio into the
// recognition engine. Capture runs for the whole session once started; mute
// is applied downstream of the engine, not here.
type audioInput struct {
	base AudioInput

	streaming atomic.Bool

	// onInputAudio is called for every captured chunk.
	onInputAudio func(audio []byte)
}

func newAudioInput(client AudioInput, onInputAudio func(audio []byte)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func(audio []byte) {}
	}

	return &audioInput{base: client, onInputAudio: onInputAudio}
}

func (a *audioInput) isConfigured() bool {
	return a != nil && a.base != nil
}

func (a *audioInput) start(ctx context.Context) {
	if !a.isConfigured() {
		return
	}

	if !a.streaming.CompareAndSwap(false, true) {
		return
	}

	go func() {
		if err := a.base.Stream(ctx, a.onInputAudio); err != nil {
			a.streaming.Store(false)
			log.Printf("Failed to stream audio input: %v", err)
		}
	}()
}

func (a *audioInput) close() error {
	if !a.isConfigured() {
		return nil
	}

	a.base.Close()
	a.streaming.Store(false)
	return nil
}

func (a *audioInput) encodingInfo() audio.EncodingInfo {
	if !a.isConfigured() {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}
