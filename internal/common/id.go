package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique run ID with the "run_" prefix.
// Every swarm pass gets one so log lines and events from overlapping
// scheduled runs can be told apart.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewInstanceID generates a unique server instance ID with the "srv_"
// prefix. Websocket clients use it to detect server restarts.
func NewInstanceID() string {
	return "srv_" + uuid.New().String()
}
