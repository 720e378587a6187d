package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sonna/internal/config"
	"sonna/internal/model"
)

// probeTimeout bounds the startup reachability check.
const probeTimeout = 5 * time.Second

// FallbackReply is spoken whenever no model reply could be produced.
const FallbackReply = "I'm sorry, I can't think right now. Please check my AI connection."

// Client is the reply generator. Availability is decided once at
// startup: a missing API key or an unreachable endpoint disables
// generation for the lifetime of the process, and Reply then fails
// fast with ErrDisabled instead of timing out per request.
type Client struct {
	cfg       *config.AIConfig
	dialogue  *DialogueChain
	available bool
}

// NewClient builds the reply generator and probes the configured
// endpoint. A failed probe does not fail construction; the client
// comes up disabled and the caller decides how to degrade.
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	dialogue, err := NewDialogueChain(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialogue chain: %w", err)
	}

	c := &Client{cfg: cfg, dialogue: dialogue}

	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured, replies disabled")
		return c, nil
	}

	if err := probeEndpoint(ctx, cfg); err != nil {
		log.Error().Err(err).Str("base_url", cfg.BaseURL).Msg("AI endpoint unreachable, replies disabled")
		return c, nil
	}

	c.available = true
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("AI replies enabled")
	return c, nil
}

// Available reports whether reply generation is enabled.
func (c *Client) Available() bool {
	return c.available
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// ReplyRequest one dialogue turn plus the context it runs in.
type ReplyRequest struct {
	Text        string               // transcribed utterance
	History     []model.ContextEntry // prior turns, oldest first
	Timezone    string               // IANA name from the profile
	Preferences map[string]any       // profile preferences
}

// Reply produces the assistant reply for one turn. It returns
// ErrDisabled when generation is off and ErrEmptyReply when the model
// answered with no text; callers substitute their own fallback
// wording.
func (c *Client) Reply(ctx context.Context, req *ReplyRequest) (string, error) {
	if !c.available {
		return "", ErrDisabled
	}

	resp, err := c.dialogue.Run(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyReply
	}

	log.Debug().
		Int("prompt_tokens", resp.PromptTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("reply generated")
	return text, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return nil
}

// probeEndpoint checks that the configured endpoint answers HTTP at
// all, mirroring a model-list call. Any response counts as reachable
// whatever the status code; only transport-level failures mark the
// endpoint down.
func probeEndpoint(ctx context.Context, cfg *config.AIConfig) error {
	url := strings.TrimSuffix(probeBase(cfg), "/") + "/models"

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("AI endpoint probe")
	return nil
}

// probeBase resolves the endpoint to probe when no base URL is
// configured, matching the per-provider defaults of the chat model.
func probeBase(cfg *config.AIConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if cfg.Provider == "ark" {
		return "https://ark.cn-beijing.volces.com/api/v3"
	}
	return "https://api.openai.com/v1"
}
