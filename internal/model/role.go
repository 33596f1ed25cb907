package model

import (
	"errors"
	"strings"
)

var ErrUnknownMessageRole = errors.New("unknown message role")

// ParseMessageRole maps stored role names back to MessageRole. "bot" is the
// name older widget deployments wrote for assistant turns.
func ParseMessageRole(s string) (MessageRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return MessageRoleUser, nil
	case "assistant", "bot", "model":
		return MessageRoleAssistant, nil
	default:
		return "", ErrUnknownMessageRole
	}
}

func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}
