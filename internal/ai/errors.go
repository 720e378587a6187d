package ai

import "errors"

var (
	// ErrDisabled reply generation is off for this process, either
	// because no API key was configured or because the startup
	// reachability probe failed.
	ErrDisabled = errors.New("reply generation disabled")

	// ErrEmptyReply the model answered with no usable text.
	ErrEmptyReply = errors.New("empty reply from model")
)
