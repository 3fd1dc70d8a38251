// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published after a runner account is created.  It
// carries enough for a mail worker to send the verification message
// without querying the primary database.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}
