package model

// SpeakRequest text-to-speech request
type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

// UpdateProfileRequest replaces the default user's preference map
type UpdateProfileRequest struct {
	Preferences map[string]any `json:"preferences" binding:"required"`
}
