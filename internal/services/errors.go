package services

import (
	"errors"

	"routeplanner/internal/models"
)

var (
	ErrGeocodeUnavailable     = errors.New("geocode service unavailable")
	ErrIncompleteEndpoints    = errors.New("start and end coordinates are both required")
	ErrNoActiveField          = errors.New("no endpoint is selected for map clicks")
	ErrRouteNotFound          = errors.New("no route found")
	ErrGeolocationUnavailable = errors.New("current position unavailable")
	ErrUnknownSuggestion      = errors.New("suggestion does not exist")
	ErrSessionNotFound        = errors.New("planning session not found")
	ErrInvalidCoordinates     = errors.New("invalid coordinates")

	// errSuperseded marks a completion that lost to a newer request and was dropped.
	errSuperseded = errors.New("superseded by a newer request")
)

const (
	MessageIncompleteEndpoints    = "Select both start and end locations."
	MessageNoActiveField          = "Please set start or end from the map first."
	MessageRouteNotFound          = "No route could be found between the selected locations."
	MessageGeolocationUnavailable = "Unable to retrieve your current location."
)

// PromptError is a failure the user must see as a blocking prompt.
type PromptError struct {
	Code    string
	Message string
	Err     error
}

func (e *PromptError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PromptError) Unwrap() error {
	return e.Err
}

func (e *PromptError) Prompt() models.Prompt {
	return models.Prompt{Code: e.Code, Message: e.Message}
}

func newPromptError(code, message string, err error) *PromptError {
	return &PromptError{Code: code, Message: message, Err: err}
}

// AsPrompt extracts the prompt carried by err, if any.
func AsPrompt(err error) (*PromptError, bool) {
	var pe *PromptError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
