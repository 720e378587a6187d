package config

import (
	"errors"
	"time"
)

// Config application configuration root
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Whisper WhisperConfig `mapstructure:"whisper"`
	TTS     TTSConfig     `mapstructure:"tts"`
	GTTS    GTTSConfig    `mapstructure:"gtts"`
	Storage StorageConfig `mapstructure:"storage"`
	User    UserConfig    `mapstructure:"user"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig language model settings
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig model sampling parameters
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig logging settings (zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB settings
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WhisperConfig local speech-recognition server settings
type WhisperConfig struct {
	URL      string        `mapstructure:"url"`      // transcription endpoint base URL
	Model    string        `mapstructure:"model"`    // whisper model size/name
	Language string        `mapstructure:"language"` // language hint
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig primary speech-synthesis provider settings
type TTSConfig struct {
	APIURL      string `mapstructure:"api_url"`
	AccessToken string `mapstructure:"access_token"`
	AppID       string `mapstructure:"app_id"`
	Cluster     string `mapstructure:"cluster"`
	VoiceType   string `mapstructure:"voice_type"`
	Language    string `mapstructure:"language"`
	SampleRate  int    `mapstructure:"sample_rate"`
}

// GTTSConfig fallback speech-synthesis provider settings
type GTTSConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// StorageConfig audio artifact archive settings
// Empty type disables archival.
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig local filesystem storage
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	BaseURL  string `mapstructure:"base_url"`
}

// OSSConfig Aliyun OSS storage
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
}

// UserConfig the implicit default user
type UserConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Whisper.URL == "" {
		return errors.New("whisper url is required")
	}

	if c.User.Email == "" {
		return errors.New("default user email is required")
	}

	return nil
}
