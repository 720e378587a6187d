package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Storage archive for voice audio artifacts
type Storage interface {
	// Upload stores an object and returns its access URL
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Download opens an object for reading
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present
	Exists(ctx context.Context, key string) (bool, error)

	// GetStorageType returns the backend type
	GetStorageType() string
}

// StorageType backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local" // local filesystem
	StorageTypeOSS   StorageType = "oss"   // Aliyun OSS
)

// ContentTypeForKey maps a storage key's extension to a MIME type
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	contentTypes := map[string]string{
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".m4a":  "audio/mp4",
		".ogg":  "audio/ogg",
		".webm": "audio/webm",
		".flac": "audio/flac",
	}

	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
