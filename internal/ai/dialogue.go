package ai

import (
	"context"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"sonna/internal/ai/component"
	"sonna/internal/config"
)

// DialogueChain drives one assistant turn: system preamble plus the
// recent history window in, one reply message out.
type DialogueChain struct {
	chatModel einomodel.BaseChatModel
}

// NewDialogueChain builds the chain on the configured chat model.
func NewDialogueChain(ctx context.Context, cfg *config.AIConfig) (*DialogueChain, error) {
	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &DialogueChain{chatModel: chatModel}, nil
}

// DialogueResponse raw model output of one turn.
type DialogueResponse struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// Run executes one dialogue turn. The preamble travels with the live
// utterance rather than as a standing system message, so the clock and
// profile context always reflect the current turn.
func (c *DialogueChain) Run(ctx context.Context, req *ReplyRequest) (*DialogueResponse, error) {
	now := time.Now().In(resolveLocation(req.Timezone))
	preamble := buildPreamble(now, req.Preferences)

	messages := historyMessages(req.History)
	messages = append(messages, schema.UserMessage(preamble+"\n\nUser: "+req.Text))

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	var promptTokens, outputTokens int
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		promptTokens = resp.ResponseMeta.Usage.PromptTokens
		outputTokens = resp.ResponseMeta.Usage.CompletionTokens
	}

	return &DialogueResponse{
		Text:         resp.Content,
		PromptTokens: promptTokens,
		OutputTokens: outputTokens,
	}, nil
}
