package model

import "time"

type MessageRole string

const (
	MessageRoleUser      = MessageRole("user")
	MessageRoleAssistant = MessageRole("assistant")
)

// Message is a single persisted conversation turn. UserInfo is only ever set on
// user turns, and only when the visitor supplied it with that turn.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	UserInfo  *UserInfo   `json:"userInfo,omitempty"`
}

// HistoryLine is the reduced form of a message used as prompt context.
type HistoryLine struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

func (m Message) Line() HistoryLine {
	return HistoryLine{Role: m.Role, Content: m.Content}
}

// NextTimestamp keeps per-session timestamps strictly increasing even when the
// wall clock stalls or steps back.
func NextTimestamp(last, now time.Time) time.Time {
	if now.After(last) {
		return now
	}
	return last.Add(time.Microsecond)
}
