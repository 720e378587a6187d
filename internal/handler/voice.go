package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sonna/internal/model"
	"sonna/internal/pkg/storage"
	"sonna/internal/service"
)

// VoiceHandler voice turn and transcription endpoints
type VoiceHandler struct {
	voice       *service.VoiceService
	transcriber service.Transcriber
	archive     storage.Storage
}

// NewVoiceHandler creates a voice handler. voice may be nil when the
// session store is unavailable; archive may be nil when no recording
// storage is configured.
func NewVoiceHandler(voice *service.VoiceService, transcriber service.Transcriber, archive storage.Storage) *VoiceHandler {
	return &VoiceHandler{
		voice:       voice,
		transcriber: transcriber,
		archive:     archive,
	}
}

// VoiceLoop runs one full voice turn
// @Summary      Voice reasoning loop
// @Description  Accepts a recorded utterance, transcribes it, generates an assistant reply in the active conversation and returns the reply as synthesized speech. Turn metadata travels in response headers.
// @Tags         conversation
// @Accept       multipart/form-data
// @Produce      audio/mpeg
// @Param        audio  formData  file  true  "Recorded utterance"
// @Success      200  {file}    binary  "Synthesized reply audio"
// @Header       200  {string}  X-Conversation-ID   "Conversation the turn belongs to"
// @Header       200  {string}  X-Message-ID        "Persisted assistant message"
// @Header       200  {string}  X-Transcribed-Text  "What the user said"
// @Header       200  {string}  X-Response-Text     "What the assistant replied"
// @Failure      400  {object}  ErrorResponse  "Missing or unreadable audio file"
// @Failure      500  {object}  ErrorResponse  "Voice processing failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /conversation/voice-loop [post]
func (h *VoiceHandler) VoiceLoop(c *gin.Context) {
	if h.voice == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid audio upload",
			Detail:  err.Error(),
		})
		return
	}

	audio, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "Failed to open audio upload",
			Detail:  err.Error(),
		})
		return
	}
	defer audio.Close()

	result, err := h.voice.ProcessTurn(c.Request.Context(), file.Filename, audio)
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("voice turn failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Voice processing failed",
			Detail:  err.Error(),
		})
		return
	}

	c.Header("X-Conversation-ID", result.ConversationID)
	c.Header("X-Message-ID", result.MessageID)
	c.Header("X-Transcribed-Text", headerText(result.Transcript))
	c.Header("X-Response-Text", headerText(result.ReplyText))
	c.Header("Content-Disposition", `attachment; filename=`+result.Filename)
	c.Header("Accept-Ranges", "bytes")
	c.Data(http.StatusOK, "audio/mpeg", result.Audio)
}

// Transcribe converts one uploaded recording to text
// @Summary      Transcribe audio
// @Description  Runs speech recognition on an uploaded audio file and returns the plain transcript.
// @Tags         voice
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio  formData  file  true  "Audio file"
// @Success      200  {object}  model.TranscriptionResponse
// @Failure      400  {object}  ErrorResponse  "Missing or unreadable audio file"
// @Failure      415  {object}  ErrorResponse  "Not an audio upload"
// @Failure      500  {object}  ErrorResponse  "Transcription failed"
// @Router       /voice/transcribe [post]
func (h *VoiceHandler) Transcribe(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid audio upload",
			Detail:  err.Error(),
		})
		return
	}

	// Reject uploads that declare a non-audio content type. Absent
	// content types pass through; the recognizer decides.
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "audio/") {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Code:    41501,
			Message: "Audio file not allowed. Please upload a valid audio file.",
		})
		return
	}

	audio, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "Failed to open audio upload",
			Detail:  err.Error(),
		})
		return
	}
	defer audio.Close()

	text, err := h.transcriber.Transcribe(c.Request.Context(), file.Filename, audio)
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("transcription failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Transcription failed",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.TranscriptionResponse{Text: text})
}

// Recording streams an archived utterance
// @Summary      Fetch archived recording
// @Description  Streams a previously archived voice recording from object storage.
// @Tags         voice
// @Produce      audio/mpeg
// @Param        key  path  string  true  "Storage key"
// @Success      200  {file}    binary  "Recording audio"
// @Failure      404  {object}  ErrorResponse  "Recording not found"
// @Failure      503  {object}  ErrorResponse  "Storage unavailable"
// @Router       /voice/recordings/{key} [get]
func (h *VoiceHandler) Recording(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Storage not available",
		})
		return
	}

	// Keys address files under the archive root; parent references
	// would escape it.
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid recording key",
		})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.archive.Exists(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to read recording",
			Detail:  err.Error(),
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "Recording not found",
		})
		return
	}

	body, err := h.archive.Download(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to read recording",
			Detail:  err.Error(),
		})
		return
	}
	defer body.Close()

	c.Header("Content-Type", storage.ContentTypeForKey(key))
	c.Header("Accept-Ranges", "bytes")
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("recording stream interrupted")
	}
}
