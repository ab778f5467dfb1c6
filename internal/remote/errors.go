package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/pizzeria/internal/models"
)

// Error describes a failed call to the store API
type Error struct {
	Op     string
	Kind   models.ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the taxonomy kind of a gateway error, or "" for other errors
func KindOf(err error) models.ErrorKind {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Kind
	}
	return ""
}

// errorFromResponse builds the error for a non-2xx reply. A known API error
// code decides the kind; otherwise the status does.
func errorFromResponse(op string, status int, body []byte) *Error {
	kind := kindForStatus(status)
	detail := strings.TrimSpace(string(body))

	var apiErr models.APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		detail = apiErr.Code + ": " + apiErr.Message
		if k := models.KindForCode(apiErr.Code); k != "" {
			kind = k
		}
	}
	return &Error{Op: op, Kind: kind, Status: status, Err: errors.New(detail)}
}

func kindForStatus(status int) models.ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return models.KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return models.KindUnauthorized
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return models.KindValidation
	case status == http.StatusConflict:
		return models.KindInvalidTransition
	default:
		return models.KindServer
	}
}
