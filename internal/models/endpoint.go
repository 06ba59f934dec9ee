package models

import "fmt"

type Role string

const (
	RoleStart Role = "start"
	RoleEnd   Role = "end"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStart, RoleEnd:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown endpoint role %q", s)
	}
}

// Endpoint is one anchor of the route. Coordinates is nil until a resolution
// (suggestion pick, reverse lookup, geolocation or map click) has completed.
type Endpoint struct {
	Role        Role             `json:"role" bson:"role"`
	Text        string           `json:"text" bson:"text"`
	Coordinates *Coordinates     `json:"coordinates" bson:"coordinates"`
	Suggestions []PlaceCandidate `json:"suggestions" bson:"suggestions"`
}

func NewEndpoint(role Role) Endpoint {
	return Endpoint{Role: role, Suggestions: []PlaceCandidate{}}
}

// Clone returns a deep copy safe to hand out of the session lock.
func (e Endpoint) Clone() Endpoint {
	out := e
	if e.Coordinates != nil {
		c := *e.Coordinates
		out.Coordinates = &c
	}
	out.Suggestions = make([]PlaceCandidate, len(e.Suggestions))
	copy(out.Suggestions, e.Suggestions)
	return out
}

type ActiveField string

const (
	ActiveFieldNone  ActiveField = "none"
	ActiveFieldStart ActiveField = "start"
	ActiveFieldEnd   ActiveField = "end"
)

func ActiveFieldFor(role Role) ActiveField {
	if role == RoleEnd {
		return ActiveFieldEnd
	}
	return ActiveFieldStart
}

// Role reports the endpoint a map click targets. ok is false for ActiveFieldNone.
func (a ActiveField) Role() (Role, bool) {
	switch a {
	case ActiveFieldStart:
		return RoleStart, true
	case ActiveFieldEnd:
		return RoleEnd, true
	default:
		return "", false
	}
}
