package domain

import (
	"encoding/json"
	"fmt"
)

type CommandKind string

const (
	CommandShowLocalNotification CommandKind = "SHOW_LOCAL_NOTIFICATION"
	CommandShowNotification      CommandKind = "SHOW_NOTIFICATION"
	CommandRequestPush           CommandKind = "REQUEST_PUSH"
	CommandAppOpen               CommandKind = "APP_OPEN"
)

func (kind CommandKind) Known() bool {
	switch kind {
	case CommandShowLocalNotification, CommandShowNotification, CommandRequestPush, CommandAppOpen:
		return true
	}
	return false
}

// ClientCommand is posted by a foreground instance and consumed exactly once.
type ClientCommand struct {
	Type    CommandKind `json:"type"`
	Title   *string     `json:"title,omitempty"`
	Body    *string     `json:"body,omitempty"`
	Message *string     `json:"message,omitempty"`
}

func (command ClientCommand) TitleOrEmpty() string {
	return derefString(command.Title)
}

func (command ClientCommand) BodyOrEmpty() string {
	return derefString(command.Body)
}

// ParseCommand decodes a command frame. Unknown kinds are not an error.
func ParseCommand(raw []byte) (ClientCommand, error) {
	var command ClientCommand
	if err := json.Unmarshal(raw, &command); err != nil {
		return ClientCommand{}, fmt.Errorf("decode client command: %w", err)
	}
	return command, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
