package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"sonna/internal/pkg/id"
)

// Config TTS settings
type Config struct {
	APIURL      string // API address, default: https://openspeech.bytedance.com/api/v1/tts
	AccessToken string // access token (required)
	AppID       string // application ID (optional)
	Cluster     string // cluster name, default: volcano_tts
	VoiceType   string // voice type, default: BV115_streaming
	Language    string // synthesis language, default: en
	SampleRate  int    // sample rate, default: 44100
}

// Client text-to-speech client for the volcengine openspeech API.
// Reference: https://openspeech.bytedance.com/api/v1/tts
type Client struct {
	apiURL      string
	accessToken string
	appID       string
	cluster     string
	voiceType   string
	language    string
	sampleRate  int
	httpClient  *http.Client
}

// NewClient creates a TTS client
func NewClient(config Config) (*Client, error) {
	if config.AccessToken == "" {
		return nil, fmt.Errorf("TTS access token is required")
	}

	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = "https://openspeech.bytedance.com/api/v1/tts"
	}

	cluster := config.Cluster
	if cluster == "" {
		cluster = "volcano_tts"
	}

	voiceType := config.VoiceType
	if voiceType == "" {
		voiceType = "BV115_streaming"
	}

	language := config.Language
	if language == "" {
		language = "en"
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}

	return &Client{
		apiURL:      apiURL,
		accessToken: config.AccessToken,
		appID:       config.AppID,
		cluster:     cluster,
		voiceType:   voiceType,
		language:    language,
		sampleRate:  sampleRate,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Result synthesis result
type Result struct {
	AudioData []byte  // MP3 audio bytes
	Duration  float64 // audio duration in seconds, 0 if not reported
}

// Synthesize converts text to MP3 audio
func (c *Client) Synthesize(ctx context.Context, text string) (*Result, error) {
	requestID := id.New()
	requestConfig := c.buildRequestConfig(text, requestID)

	reqBody, err := json.Marshal(requestConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer; %s", c.accessToken))
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("request_id", requestID).
		Int("text_len", len(text)).
		Msg("sending TTS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var apiResp map[string]interface{}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	code, _ := apiResp["code"].(float64)
	if code != 3000 {
		message, _ := apiResp["message"].(string)
		if message == "" {
			message = "unknown error"
		}
		return nil, fmt.Errorf("TTS API error: code %.0f, message: %s", code, message)
	}

	audioDataBase64, _ := apiResp["data"].(string)
	if audioDataBase64 == "" {
		return nil, fmt.Errorf("audio data not found in response")
	}

	audioData, err := base64.StdEncoding.DecodeString(audioDataBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	return &Result{
		AudioData: audioData,
		Duration:  parseDuration(apiResp),
	}, nil
}

// buildRequestConfig builds the request document per the vendor format
func (c *Client) buildRequestConfig(text, requestID string) map[string]interface{} {
	appConfig := map[string]interface{}{
		"token":   c.accessToken,
		"cluster": c.cluster,
	}
	if c.appID != "" {
		appConfig["appid"] = c.appID
	}

	audioConfig := map[string]interface{}{
		"voice_type":       c.voiceType,
		"encoding":         "mp3",
		"compression_rate": 1,
		"rate":             c.sampleRate,
		"speed_ratio":      1.0,
		"volume_ratio":     1.0,
		"pitch_ratio":      1.0,
		"language":         c.language,
	}

	requestConfig := map[string]interface{}{
		"reqid":            requestID,
		"text":             text,
		"text_type":        "plain",
		"operation":        "query",
		"silence_duration": "125",
		"pure_english_opt": "1",
	}

	return map[string]interface{}{
		"app":     appConfig,
		"user":    map[string]interface{}{"uid": requestID},
		"audio":   audioConfig,
		"request": requestConfig,
	}
}

// parseDuration extracts the audio duration from the addition field.
// The vendor reports milliseconds, as either a string or a number.
func parseDuration(apiResp map[string]interface{}) float64 {
	addition, ok := apiResp["addition"].(map[string]interface{})
	if !ok {
		return 0
	}

	switch v := addition["duration"].(type) {
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed / 1000.0
		}
	case float64:
		return v / 1000.0
	}
	return 0
}
