package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sonna/internal/repository"
	"sonna/internal/service"
)

// ConversationHandler conversation history endpoints
type ConversationHandler struct {
	users         *service.UserService
	conversations *service.ConversationService
}

// NewConversationHandler creates a conversation handler. Both services
// may be nil when the session store is unavailable.
func NewConversationHandler(users *service.UserService, conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		users:         users,
		conversations: conversations,
	}
}

// List returns the default user's conversations, newest activity first
// @Summary      List conversations
// @Description  Returns the default user's conversations ordered by most recent activity.
// @Tags         conversation
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "{\"conversations\": [...], \"total\": N}"
// @Failure      500  {object}  ErrorResponse  "Lookup failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /conversation [get]
func (h *ConversationHandler) List(c *gin.Context) {
	if h.conversations == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	ctx := c.Request.Context()

	user, err := h.users.DefaultUser(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to resolve user",
			Detail:  err.Error(),
		})
		return
	}

	convs, err := h.conversations.List(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to list conversations",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"total":         len(convs),
	})
}

// Messages returns one conversation's messages, oldest first
// @Summary      Conversation messages
// @Description  Returns the full message history of a conversation in chronological order.
// @Tags         conversation
// @Produce      json
// @Param        id  path  string  true  "Conversation ID"
// @Success      200  {object}  map[string]interface{}  "{\"messages\": [...], \"total\": N}"
// @Failure      404  {object}  ErrorResponse  "Conversation not found"
// @Failure      500  {object}  ErrorResponse  "Lookup failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /conversation/{id}/messages [get]
func (h *ConversationHandler) Messages(c *gin.Context) {
	if h.conversations == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	id := c.Param("id")

	msgs, err := h.conversations.Messages(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Conversation not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to list messages",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// Delete removes a conversation and its messages
// @Summary      Delete conversation
// @Description  Deletes a conversation together with all of its messages.
// @Tags         conversation
// @Produce      json
// @Param        id  path  string  true  "Conversation ID"
// @Success      200  {object}  map[string]interface{}  "{\"message\": \"Conversation deleted\"}"
// @Failure      404  {object}  ErrorResponse  "Conversation not found"
// @Failure      500  {object}  ErrorResponse  "Delete failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /conversation/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	if h.conversations == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	id := c.Param("id")

	if err := h.conversations.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Conversation not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to delete conversation",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Conversation deleted",
	})
}
