package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// PublicMessage returns the backend's message for client errors. Server
// error details are not shown to users.
func (e *Error) PublicMessage() string {
	if e.Status >= 500 {
		return ""
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}
