package model

import "strings"

// UserInfo is the optional profile hint a visitor can attach to a message.
// It personalises generation and is never used for authentication.
type UserInfo struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Normalize trims both fields and returns nil when nothing is left.
func (u *UserInfo) Normalize() *UserInfo {
	if u == nil {
		return nil
	}
	n := UserInfo{
		Name:    strings.TrimSpace(u.Name),
		Contact: strings.TrimSpace(u.Contact),
	}
	if n.Name == "" && n.Contact == "" {
		return nil
	}
	return &n
}

func (u *UserInfo) Equal(other *UserInfo) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}
	return *u == *other
}
