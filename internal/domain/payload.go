package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PushNotification is the optional display section of a push message.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushPayload is what the push transport delivers to the worker.
type PushPayload struct {
	Notification *PushNotification `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

func (payload PushPayload) Title() string {
	if payload.Notification == nil {
		return ""
	}
	return payload.Notification.Title
}

func (payload PushPayload) Body() string {
	if payload.Notification == nil {
		return ""
	}
	return payload.Notification.Body
}

var ErrEmptyPayload = errors.New("empty push payload")

func DecodePushPayload(raw []byte) (PushPayload, error) {
	if len(raw) == 0 {
		return PushPayload{}, ErrEmptyPayload
	}
	var payload PushPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return PushPayload{}, fmt.Errorf("decode push payload: %w", err)
	}
	return payload, nil
}
