package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/slok/sprites/internal/model"
)

type streamEventJSON struct {
	Type     string     `json:"type"`
	Data     string     `json:"data,omitempty"`
	Error    string     `json:"error,omitempty"`
	Message  string     `json:"message,omitempty"`
	Signal   string     `json:"signal,omitempty"`
	PID      int        `json:"pid,omitempty"`
	ExitCode *int       `json:"exit_code,omitempty"`
	Time     *time.Time `json:"time,omitempty"`
}

func (s streamEventJSON) toModel() model.StreamEvent {
	errMsg := s.Error
	if errMsg == "" && s.Type == model.EventTypeError {
		errMsg = s.Message
	}

	return model.StreamEvent{
		Type:     s.Type,
		Data:     s.Data,
		Error:    errMsg,
		Signal:   s.Signal,
		PID:      s.PID,
		ExitCode: s.ExitCode,
		Time:     s.Time,
	}
}

// PostStream posts body as JSON and parses the NDJSON event stream response.
// The response is fully buffered. If any of the events is an error the
// operation fails with it.
func (c *Client) PostStream(ctx context.Context, path string, body any) ([]model.StreamEvent, error) {
	if body == nil {
		body = map[string]any{}
	}

	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}

	events, err := ParseNDJSON(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("could not parse %s stream: %w", path, err)
	}

	for _, ev := range events {
		if ev.IsError() {
			msg := ev.Error
			if msg == "" {
				msg = unknownErrorMessage
			}
			return nil, &model.APIError{Message: msg}
		}
	}

	return events, nil
}

// ParseNDJSON parses newline delimited JSON events, blank lines are skipped.
func ParseNDJSON(body []byte) ([]model.StreamEvent, error) {
	events := []model.StreamEvent{}
	for i, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var ev streamEventJSON
		err := json.Unmarshal(line, &ev)
		if err != nil {
			return nil, fmt.Errorf("invalid event on line %d: %w", i+1, err)
		}
		events = append(events, ev.toModel())
	}

	return events, nil
}
