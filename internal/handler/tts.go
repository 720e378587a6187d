package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sonna/internal/model"
	"sonna/internal/service"
)

// TTSHandler text-to-speech endpoint
type TTSHandler struct {
	speech *service.SpeechService
}

// NewTTSHandler creates a TTS handler
func NewTTSHandler(speech *service.SpeechService) *TTSHandler {
	return &TTSHandler{speech: speech}
}

// Speak synthesizes speech for arbitrary text
// @Summary      Synthesize speech
// @Description  Converts text into spoken audio. Uses the primary synthesis provider and degrades to the fallback provider; the attachment filename tells the two apart.
// @Tags         tts
// @Accept       json
// @Produce      audio/mpeg
// @Param        request  body  model.SpeakRequest  true  "Text to speak"
// @Success      200  {file}    binary  "MP3 audio"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      500  {object}  ErrorResponse  "Both synthesis providers failed"
// @Router       /tts/speak [post]
func (h *TTSHandler) Speak(c *gin.Context) {
	var req model.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.speech.Speak(c.Request.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("speech synthesis failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "TTS generation failed",
			Detail:  err.Error(),
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename=`+result.Filename)
	c.Header("Accept-Ranges", "bytes")
	c.Data(http.StatusOK, "audio/mpeg", result.Audio)
}
