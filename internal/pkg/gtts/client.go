package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config fallback TTS settings
type Config struct {
	BaseURL  string // endpoint, default: https://translate.google.com/translate_tts
	Language string // synthesis language, default: en
}

// Client text-to-speech client for the Google Translate TTS endpoint,
// used as the fallback synthesis provider. The endpoint caps each
// request at roughly 200 characters, so longer text is split on word
// boundaries and the returned MP3 frames are concatenated.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewClient creates a fallback TTS client
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://translate.google.com/translate_tts"
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	return &Client{
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// maxChunkRunes is the per-request text limit of the endpoint.
const maxChunkRunes = 200

// Synthesize converts text to MP3 audio
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("empty text")
	}

	log.Debug().
		Int("chunks", len(chunks)).
		Int("text_len", len(text)).
		Msg("sending fallback TTS request")

	var buf bytes.Buffer
	for i, chunk := range chunks {
		data, err := c.fetchChunk(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", c.language)
	params.Set("q", chunk)
	params.Set("total", strconv.Itoa(total))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fallback TTS request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// splitText splits text on word boundaries into chunks of at most max
// runes. A single word longer than max is hard-split.
func splitText(text string, max int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range words {
		runes := []rune(word)

		for len(runes) > max {
			flush()
			chunks = append(chunks, string(runes[:max]))
			runes = runes[max:]
		}
		if len(runes) == 0 {
			continue
		}

		need := len(runes)
		if currentLen > 0 {
			need++ // separating space
		}
		if currentLen+need > max {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(string(runes))
		currentLen += len(runes)
	}
	flush()

	return chunks
}
