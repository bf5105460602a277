package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/slok/sprites/internal/model"
)

const unknownErrorMessage = "Unknown error"

type errorBodyJSON struct {
	Error  string `json:"error"`
	Errors []any  `json:"errors"`
}

// NewAPIError returns the API error of a failed response.
func NewAPIError(status int, body []byte) error {
	return &model.APIError{
		StatusCode: status,
		Message:    errorMessage(status, body),
	}
}

// errorMessage gets the message from an error response body: the `error`
// field, the `errors` list joined or the raw body if it's not JSON.
func errorMessage(status int, body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		if text := http.StatusText(status); text != "" {
			return text
		}
		return unknownErrorMessage
	}

	var eb errorBodyJSON
	err := json.Unmarshal(body, &eb)
	if err != nil {
		return raw
	}

	if eb.Error != "" {
		return eb.Error
	}

	if len(eb.Errors) > 0 {
		msgs := make([]string, 0, len(eb.Errors))
		for _, e := range eb.Errors {
			msgs = append(msgs, fmt.Sprint(e))
		}
		return strings.Join(msgs, ", ")
	}

	return unknownErrorMessage
}
