package services

import (
	"context"
	"errors"
	"fmt"

	"routeplanner/internal/models"
)

var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
	ErrPositionTimeout     = errors.New("geolocation timed out")
)

type GeolocationProvider interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

// Error codes of the browser GeolocationPositionError.
const (
	GeolocationPermissionDenied    = 1
	GeolocationPositionUnavailable = 2
	GeolocationTimeout             = 3
)

// ReportedPosition is the result of navigator.geolocation.getCurrentPosition
// as posted by the browser: either coordinates or an error code.
type ReportedPosition struct {
	Coordinates  *models.Coordinates `json:"coordinates"`
	ErrorCode    int                 `json:"error_code"`
	ErrorMessage string              `json:"error_message"`
}

func (p ReportedPosition) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}

	switch p.ErrorCode {
	case 0:
	case GeolocationPermissionDenied:
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrPermissionDenied, p.ErrorMessage)
	case GeolocationTimeout:
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrPositionTimeout, p.ErrorMessage)
	default:
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, p.ErrorMessage)
	}

	if p.Coordinates == nil {
		return models.Coordinates{}, ErrPositionUnavailable
	}
	if err := p.Coordinates.Validate(); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	return *p.Coordinates, nil
}
