package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config transcription client settings
type Config struct {
	URL      string        // server base URL, default: http://localhost:9000
	Model    string        // model name, default: small
	Language string        // language hint, default: en
	Timeout  time.Duration // request timeout, default: 60s
}

// Client speech-to-text client for a local faster-whisper server
// exposing the OpenAI-compatible /v1/audio/transcriptions endpoint.
type Client struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// NewClient creates a transcription client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.URL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}

	model := cfg.Model
	if model == "" {
		model = "small"
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads audio and returns the recognized text: the
// stripped segment texts joined with single spaces. Voice-activity
// filtering is enabled server-side, so silence yields an empty string
// rather than an error.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	fields := map[string]string{
		"model":           c.model,
		"language":        c.language,
		"response_format": "verbose_json",
		"vad_filter":      "true",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	url := c.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Debug().
		Str("filename", filename).
		Str("model", c.model).
		Str("language", c.language).
		Msg("sending transcription request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return joinSegments(&parsed), nil
}

// joinSegments concatenates stripped segment texts with single spaces,
// falling back to the whole-text field when no segments are present.
func joinSegments(resp *transcriptionResponse) string {
	if len(resp.Segments) == 0 {
		return strings.TrimSpace(resp.Text)
	}

	parts := make([]string, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
