package models

// APIError is the body of every failed store API response except the OAuth2
// token endpoint
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// API error codes
const (
	ErrBadRequest       = "BAD_REQUEST"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrConflict         = "CONFLICT"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrValidationFailed = "VALIDATION_FAILED"

	ErrPizzaNotFound    = "PIZZA_NOT_FOUND"
	ErrPizzaInvalidData = "PIZZA_INVALID_DATA"

	ErrOrderNotFound          = "ORDER_NOT_FOUND"
	ErrOrderInvalidData       = "ORDER_INVALID_DATA"
	ErrOrderInvalidStatus     = "ORDER_INVALID_STATUS"
	ErrOrderInvalidTransition = "ORDER_INVALID_TRANSITION"
)

// OAuth2 token endpoint error codes (RFC 6749 section 5.2)
const (
	ErrInvalidRequest       = "invalid_request"
	ErrInvalidClient        = "invalid_client"
	ErrUnsupportedGrantType = "unsupported_grant_type"
)

// ErrorKind classifies a failure for callers that react to the category
// rather than the concrete error
type ErrorKind string

const (
	KindNetwork           ErrorKind = "network_error"
	KindServer            ErrorKind = "server_error"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation_error"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindUnauthorized      ErrorKind = "unauthorized"
)

var kindByCode = map[string]ErrorKind{
	ErrBadRequest:             KindValidation,
	ErrValidationFailed:       KindValidation,
	ErrConflict:               KindValidation,
	ErrPizzaInvalidData:       KindValidation,
	ErrOrderInvalidData:       KindValidation,
	ErrOrderInvalidStatus:     KindValidation,
	ErrInvalidRequest:         KindValidation,
	ErrUnsupportedGrantType:   KindValidation,
	ErrNotFound:               KindNotFound,
	ErrPizzaNotFound:          KindNotFound,
	ErrOrderNotFound:          KindNotFound,
	ErrOrderInvalidTransition: KindInvalidTransition,
	ErrUnauthorized:           KindUnauthorized,
	ErrForbidden:              KindUnauthorized,
	ErrInvalidClient:          KindUnauthorized,
	ErrInternalServer:         KindServer,
}

// KindForCode maps an API or OAuth2 error code to its kind, or "" when the
// code is unknown
func KindForCode(code string) ErrorKind {
	return kindByCode[code]
}

// NewAPIError creates a new API error with the given code and message
func NewAPIError(code, message string, details ...map[string]interface{}) APIError {
	err := APIError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// OAuth2Error is the RFC 6749 error body
type OAuth2Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

func NewOAuth2Error(code, description string) OAuth2Error {
	return OAuth2Error{Error: code, ErrorDescription: description}
}
