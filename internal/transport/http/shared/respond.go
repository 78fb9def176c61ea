// Package shared holds the response helpers every handler uses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "shiplog/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into its HTTP status and a
// stable error envelope. Uncoded errors surface as 500 without leaking the
// message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal error"

	var coded *dErrors.Error
	if errors.As(err, &coded) {
		message = coded.Message
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":             string(code),
		"error_description": message,
	})
}
