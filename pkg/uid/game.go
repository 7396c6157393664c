package uid

import (
	"github.com/google/uuid"
)

// NewGameID returns a random UUID used as the games primary key.
func NewGameID() string {
	return uuid.NewString()
}

// NewConnID identifies one websocket connection for its lifetime.
func NewConnID() string {
	return "conn_" + uuid.NewString()
}
