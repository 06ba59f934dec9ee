package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("endpoint_role", validateEndpointRole)
	validate.RegisterValidation("geolocation_code", validateGeolocationCode)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateEndpointRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "start", "end":
		return true
	}
	return false
}

// Browser geolocation error codes: 1 permission denied, 2 unavailable, 3 timeout.
func validateGeolocationCode(fl validator.FieldLevel) bool {
	code := fl.Field().Int()
	return code >= 0 && code <= 3
}

// ValidationDetails flattens validator errors into field -> rule pairs.
// Other errors come back under the "request" key.
func ValidationDetails(err error) map[string]string {
	details := make(map[string]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return details
	}

	details["request"] = err.Error()
	return details
}
