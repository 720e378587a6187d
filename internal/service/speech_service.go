package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"sonna/internal/pkg/tts"
)

// Spoken response filenames. The fallback name differs so clients can
// tell which voice produced the audio.
const (
	primaryFilename  = "sonna_output.mp3"
	fallbackFilename = "sonna_response.mp3"
)

// PrimarySynthesizer the configured primary voice.
type PrimarySynthesizer interface {
	Synthesize(ctx context.Context, text string) (*tts.Result, error)
}

// FallbackSynthesizer the credential-free fallback voice.
type FallbackSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeechResult one synthesized utterance.
type SpeechResult struct {
	Audio    []byte
	Filename string
	Provider string
}

// SpeechService renders reply text to MP3, degrading from the primary
// voice to the fallback when the primary is missing or fails.
type SpeechService struct {
	primary  PrimarySynthesizer // optional, nil skips straight to fallback
	fallback FallbackSynthesizer
}

// NewSpeechService creates a speech service
func NewSpeechService(primary PrimarySynthesizer, fallback FallbackSynthesizer) *SpeechService {
	return &SpeechService{
		primary:  primary,
		fallback: fallback,
	}
}

// Speak synthesizes text, trying the primary voice first.
func (s *SpeechService) Speak(ctx context.Context, text string) (*SpeechResult, error) {
	if s.primary != nil {
		result, err := s.primary.Synthesize(ctx, text)
		if err == nil {
			return &SpeechResult{
				Audio:    result.AudioData,
				Filename: primaryFilename,
				Provider: "volcano",
			}, nil
		}
		log.Warn().Err(err).Msg("primary speech synthesis failed, falling back")
	}

	audio, err := s.fallback.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return &SpeechResult{
		Audio:    audio,
		Filename: fallbackFilename,
		Provider: "gtts",
	}, nil
}
