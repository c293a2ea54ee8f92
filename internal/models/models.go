package models

import (
	"errors"
	"time"
)

var (
	ErrNameTaken       = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrEmptyMessage    = errors.New("message is empty")
)

// User represents a chat participant. Records are created on first successful
// join and kept for the life of the process; only Online toggles.
type User struct {
	Username string `json:"username"`
	JoinedAt string `json:"joinedAt"`
	Online   bool   `json:"online"`
}

// Message represents a broadcast chat message.
type Message struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ClientEvent represents an event sent from the client to the server.
// Payload fields are interpreted per Type.
type ClientEvent struct {
	Type     ClientEventType `json:"type"`
	Username string          `json:"username,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// ServerEvent represents an event sent to the client.
// Only the fields belonging to Type are populated.
type ServerEvent struct {
	Type     ServerEventType `json:"type"`
	Error    string          `json:"error,omitempty"`
	User     *User           `json:"user,omitempty"`
	Users    []User          `json:"users,omitempty"`
	Message  *Message        `json:"message,omitempty"`
	Username string          `json:"username,omitempty"`
}

type ClientEventType string

const (
	ClientEventTypeJoin       ClientEventType = "join"
	ClientEventTypeSend       ClientEventType = "send"
	ClientEventTypeTyping     ClientEventType = "typing"
	ClientEventTypeStopTyping ClientEventType = "stop_typing"
	ClientEventTypeLogout     ClientEventType = "logout"
)

type ServerEventType string

const (
	ServerEventTypeJoined      ServerEventType = "joined"
	ServerEventTypeMessage     ServerEventType = "message"
	ServerEventTypeUsersUpdate ServerEventType = "users_update"
	ServerEventTypeTyping      ServerEventType = "user_typing"
	ServerEventTypeStopTyping  ServerEventType = "user_stop_typing"
	ServerEventTypeError       ServerEventType = "error"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatTime renders a timestamp the way the client displays it:
// UTC, second resolution, date and time separated by a space.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
