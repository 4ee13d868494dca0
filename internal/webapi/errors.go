// Package webapi holds the response conventions shared by every HTTP action
// of the process.
package webapi

import (
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json"

// ErrorMessage is one entry of the standard error body.
type ErrorMessage struct {
	Msg string `json:"msg"`
}

// ErrorBody is the standard error body: {"errors":[{"msg":"..."}]}.
type ErrorBody struct {
	Errors []ErrorMessage `json:"errors"`
}

// WriteError writes status and the standard JSON error body carrying messages.
func WriteError(responseWriter http.ResponseWriter, status int, messages ...string) {
	body := ErrorBody{Errors: make([]ErrorMessage, 0, len(messages))}
	for _, message := range messages {
		body.Errors = append(body.Errors, ErrorMessage{Msg: message})
	}

	responseWriter.Header().Set("Content-Type", contentTypeJSON)
	responseWriter.Header().Set("X-Content-Type-Options", "nosniff")
	responseWriter.WriteHeader(status)

	// The status line is already sent; a failed body write only affects this client.
	_ = json.NewEncoder(responseWriter).Encode(body)
}
