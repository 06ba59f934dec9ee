package utils

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken     = "invalid token"
	ErrTokenExpired     = "token expired"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrValidationFailed = "validation failed"
	ErrRateLimited      = "rate limit exceeded"
)

// Context keys set by the middleware
const (
	ContextUserID    = "user_id"
	ContextPrincipal = "principal"
	ContextRequestID = "request_id"
)
