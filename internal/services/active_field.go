package services

import (
	"sync"

	"routeplanner/internal/models"
)

// ActiveFieldController tracks which endpoint receives the next map click.
// Targeting is sticky: a consumed click leaves the state as it was.
type ActiveFieldController struct {
	mu    sync.Mutex
	state models.ActiveField
}

func NewActiveFieldController() *ActiveFieldController {
	return &ActiveFieldController{state: models.ActiveFieldNone}
}

func (a *ActiveFieldController) Select(role models.Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = models.ActiveFieldFor(role)
}

func (a *ActiveFieldController) Current() models.ActiveField {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Target returns the endpoint a map click should resolve, or a NO_ACTIVE_FIELD prompt.
func (a *ActiveFieldController) Target() (models.Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	role, ok := a.state.Role()
	if !ok {
		return "", newPromptError(models.PromptNoActiveField, MessageNoActiveField, ErrNoActiveField)
	}
	return role, nil
}

func (a *ActiveFieldController) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = models.ActiveFieldNone
}

func (a *ActiveFieldController) restore(state models.ActiveField) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch state {
	case models.ActiveFieldStart, models.ActiveFieldEnd:
		a.state = state
	default:
		a.state = models.ActiveFieldNone
	}
}

// Banner is the instruction shown while a field is waiting for a click.
func (a *ActiveFieldController) Banner() string {
	switch a.Current() {
	case models.ActiveFieldStart:
		return "Click on the map to set your starting point"
	case models.ActiveFieldEnd:
		return "Click on the map to set your destination"
	default:
		return ""
	}
}
