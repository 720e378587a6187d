package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"sonna/internal/ai"
	"sonna/internal/model"
	"sonna/internal/pkg/id"
	"sonna/internal/pkg/storage"
)

// NoSpeechReply is spoken when the recording contains no recognizable
// speech. Such turns persist nothing.
const NoSpeechReply = "I couldn't catch that. Could you please repeat?"

// defaultAudioExt assumed when the upload carries no usable filename.
const defaultAudioExt = ".m4a"

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// ReplyGenerator produces the assistant reply for one turn.
type ReplyGenerator interface {
	Reply(ctx context.Context, req *ai.ReplyRequest) (string, error)
	Model() string
}

// VoiceService orchestrates one voice turn end to end: transcription,
// persistence, reply generation and speech synthesis.
type VoiceService struct {
	users         *UserService
	conversations *ConversationService
	speech        *SpeechService
	transcriber   Transcriber
	generator     ReplyGenerator
	archive       storage.Storage // optional recording archive, nil disables
}

// NewVoiceService creates a voice service
func NewVoiceService(
	users *UserService,
	conversations *ConversationService,
	speech *SpeechService,
	transcriber Transcriber,
	generator ReplyGenerator,
	archive storage.Storage,
) *VoiceService {
	return &VoiceService{
		users:         users,
		conversations: conversations,
		speech:        speech,
		transcriber:   transcriber,
		generator:     generator,
		archive:       archive,
	}
}

// TurnResult everything one voice turn produced. MessageID stays empty
// when the turn persisted nothing.
type TurnResult struct {
	Audio          []byte
	Filename       string
	ConversationID string
	MessageID      string
	Transcript     string
	ReplyText      string
}

// ProcessTurn runs the full voice loop for one uploaded recording: the
// audio is transcribed, both sides of the turn are persisted exactly
// once, a reply is generated against the context window and the reply
// is spoken back. The context window is loaded before the live
// utterance is stored, so the generator sees only prior turns.
func (s *VoiceService) ProcessTurn(ctx context.Context, filename string, audio io.Reader) (*TurnResult, error) {
	user, err := s.users.DefaultUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	conv, err := s.conversations.ActiveConversation(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	history, err := s.conversations.RecentContext(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}
	log.Debug().Str("conversation_id", conv.ID).Int("context", len(history)).Msg("voice turn started")

	tempPath, cleanup, err := saveTemp(filename, audio)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	defer cleanup()

	transcript, err := s.transcribe(ctx, tempPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	result := &TurnResult{ConversationID: conv.ID}

	if transcript == "" {
		log.Warn().Str("conversation_id", conv.ID).Msg("no speech detected")
		result.Transcript = NoSpeechReply
		result.ReplyText = NoSpeechReply
	} else {
		result.Transcript = transcript

		archivePath := s.archiveRecording(ctx, tempPath)

		if _, err := s.conversations.AddMessage(ctx, conv.ID, model.RoleUser, transcript, archivePath, map[string]any{"source": "voice"}); err != nil {
			return nil, fmt.Errorf("persist user message: %w", err)
		}

		s.conversations.MaybeRetitle(ctx, conv.ID, transcript)

		replyText, genErr := s.generator.Reply(ctx, &ai.ReplyRequest{
			Text:        transcript,
			History:     history,
			Timezone:    user.Timezone(""),
			Preferences: user.Preferences,
		})
		meta := map[string]any{"model": s.generator.Model()}
		if genErr != nil {
			reason := fallbackReason(genErr)
			replyText = ai.FallbackReply
			meta["fallback_reason"] = reason
			log.Warn().Err(genErr).Str("conversation_id", conv.ID).Str("reason", reason).Msg("reply generation failed, using fallback")
		}

		asst, err := s.conversations.AddMessage(ctx, conv.ID, model.RoleAssistant, replyText, "", meta)
		if err != nil {
			return nil, fmt.Errorf("persist assistant message: %w", err)
		}
		result.MessageID = asst.ID
		result.ReplyText = replyText
	}

	speech, err := s.speech.Speak(ctx, result.ReplyText)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	result.Audio = speech.Audio
	result.Filename = speech.Filename

	log.Info().
		Str("conversation_id", result.ConversationID).
		Str("message_id", result.MessageID).
		Str("voice", speech.Provider).
		Msg("voice turn completed")
	return result, nil
}

// transcribe runs speech recognition over the saved upload.
func (s *VoiceService) transcribe(ctx context.Context, tempPath string) (string, error) {
	f, err := os.Open(tempPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := s.transcriber.Transcribe(ctx, filepath.Base(tempPath), f)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// archiveRecording uploads the turn's audio to the archive and returns
// the object key. Archival is best effort: failures are logged and the
// turn continues without an audio path.
func (s *VoiceService) archiveRecording(ctx context.Context, tempPath string) string {
	if s.archive == nil {
		return ""
	}

	f, err := os.Open(tempPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open recording for archive")
		return ""
	}
	defer f.Close()

	key := "voice/" + id.New() + filepath.Ext(tempPath)
	if _, err := s.archive.Upload(ctx, key, f, storage.ContentTypeForKey(key)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to archive recording")
		return ""
	}
	return key
}

// fallbackReason classifies a generation failure for the persisted
// turn metadata.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return "disabled"
	case errors.Is(err, ai.ErrEmptyReply):
		return "empty_reply"
	default:
		return "error"
	}
}

// saveTemp spools the upload to a temp file whose extension follows
// the uploaded filename. The returned cleanup is safe to call more
// than once.
func saveTemp(filename string, audio io.Reader) (string, func(), error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = defaultAudioExt
	}

	tmp, err := os.CreateTemp("", "sonna-voice-*"+ext)
	if err != nil {
		return "", nil, err
	}
	path := tmp.Name()

	if _, err := io.Copy(tmp, audio); err != nil {
		tmp.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove temp audio")
		}
	}
	return path, cleanup, nil
}
