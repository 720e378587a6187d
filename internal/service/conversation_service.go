package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"sonna/internal/model"
)

const (
	// contextWindow messages handed to the reply generator per turn
	contextWindow = 10
	// listLimit conversations returned by a listing
	listLimit = 50
	// messagesLimit messages returned when reading a conversation
	messagesLimit = 500
)

// ConversationStore persistence needed for dialogue threading.
type ConversationStore interface {
	GetOrCreateActive(ctx context.Context, userID string, now time.Time) (*model.Conversation, error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
	MaybeRetitle(ctx context.Context, id, candidate string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore persistence for conversation messages.
type MessageStore interface {
	Add(ctx context.Context, msg *model.Message) error
	Recent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}

// ConversationService session-continuous dialogue threading.
type ConversationService struct {
	conversations ConversationStore
	messages      MessageStore
}

// NewConversationService creates a conversation service
func NewConversationService(conversations ConversationStore, messages MessageStore) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
	}
}

// ActiveConversation returns the user's conversation inside the active
// window, creating a fresh one when none qualifies.
func (s *ConversationService) ActiveConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	return s.conversations.GetOrCreateActive(ctx, userID, time.Now().UTC())
}

// AddMessage persists one utterance. The conversation is touched first
// with the same timestamp the message carries, so its activity clock
// always equals the newest message's created_at; a vanished
// conversation surfaces as ErrNotFound before anything is written.
func (s *ConversationService) AddMessage(ctx context.Context, conversationID string, role model.Role, content, audioPath string, metadata map[string]any) (*model.Message, error) {
	now := time.Now().UTC()

	if err := s.conversations.Touch(ctx, conversationID, now); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		AudioPath:      audioPath,
		Metadata:       metadata,
		CreatedAt:      now,
	}
	if err := s.messages.Add(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentContext returns the dialogue context window, oldest first.
func (s *ConversationService) RecentContext(ctx context.Context, conversationID string) ([]model.ContextEntry, error) {
	msgs, err := s.messages.Recent(ctx, conversationID, contextWindow)
	if err != nil {
		return nil, err
	}

	entries := make([]model.ContextEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, model.ContextEntryOf(m))
	}
	return entries, nil
}

// MaybeRetitle promotes the placeholder title to one derived from the
// first utterance. The store enforces the first-turn guard, so calling
// this on every turn is safe. Titling is cosmetic and never fails the
// turn.
func (s *ConversationService) MaybeRetitle(ctx context.Context, conversationID, firstMessage string) {
	renamed, err := s.conversations.MaybeRetitle(ctx, conversationID, firstMessage)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to retitle conversation")
		return
	}
	if renamed {
		log.Debug().Str("conversation_id", conversationID).Msg("conversation titled from first message")
	}
}

// List returns the user's conversations, most recent activity first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]*model.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID, listLimit)
}

// Messages returns a conversation's messages oldest first. A missing
// conversation is reported rather than an empty list.
func (s *ConversationService) Messages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	if _, err := s.conversations.FindByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID, messagesLimit)
}

// Delete removes a conversation and its messages. Message cleanup
// failures leave orphans behind and are only logged; the conversation
// itself is already gone at that point.
func (s *ConversationService) Delete(ctx context.Context, conversationID string) error {
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}

	n, err := s.messages.DeleteByConversation(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to delete conversation messages")
		return nil
	}
	log.Info().Str("conversation_id", conversationID).Int64("messages", n).Msg("conversation deleted")
	return nil
}
