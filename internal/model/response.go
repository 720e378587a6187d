package model

// TranscriptionResponse plain transcription result
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// ProfileResponse default user profile
type ProfileResponse struct {
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Preferences map[string]any `json:"preferences"`
}

// HealthResponse liveness plus store connectivity
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
