package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sonna/internal/model"
	"sonna/internal/service"
)

// ProfileHandler default-user profile endpoints
type ProfileHandler struct {
	users *service.UserService
}

// NewProfileHandler creates a profile handler. users may be nil when
// the session store is unavailable.
func NewProfileHandler(users *service.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Get returns the default user's profile
// @Summary      Read profile
// @Description  Returns the default user's name, email and preference map.
// @Tags         profile
// @Produce      json
// @Success      200  {object}  model.ProfileResponse
// @Failure      500  {object}  ErrorResponse  "Lookup failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	if h.users == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	user, err := h.users.DefaultUser(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to resolve user",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, profileOf(user))
}

// Update replaces the default user's preference map
// @Summary      Update profile
// @Description  Replaces the default user's preference map wholesale and returns the updated profile. Recognized preference keys feed response personalization; unknown keys are kept but ignored.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body  model.UpdateProfileRequest  true  "New preference map"
// @Success      200  {object}  model.ProfileResponse
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      500  {object}  ErrorResponse  "Update failed"
// @Failure      503  {object}  ErrorResponse  "Session store unavailable"
// @Router       /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	if h.users == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    50301,
			Message: "Database not available",
		})
		return
	}

	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	user, err := h.users.UpdatePreferences(c.Request.Context(), req.Preferences)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Failed to update preferences",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, profileOf(user))
}

func profileOf(u *model.User) model.ProfileResponse {
	return model.ProfileResponse{
		Name:        u.Name,
		Email:       u.Email,
		Preferences: u.Preferences,
	}
}
