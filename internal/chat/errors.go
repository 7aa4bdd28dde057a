package chat

import (
	"errors"
)

// ErrSendInFlight is returned when a send is attempted while another
// one is still running. The attempt is dropped, not queued.
var ErrSendInFlight = errors.New("a message is already being sent")

// ErrEmptyResponse is returned when the API answered successfully but
// produced no text.
var ErrEmptyResponse = errors.New("empty response from API")

// ConfigError means a send was refused before any network traffic
// because a required setting is missing.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	if e.Missing == "model" {
		return "Select a model"
	}
	return "Set API settings before chatting"
}
