package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery records one send attempt. Keep it compact and schema-stable;
// never store webhook URLs (they embed credentials).
type Delivery struct {
	At     time.Time `json:"at"`
	Bot    string    `json:"bot"`
	Thread string    `json:"thread"`
	Kind   string    `json:"kind"`   // "text" | "card"
	Source string    `json:"source"` // e.g. "cli", "schedule:standup"
	OK     bool      `json:"ok"`
	Status int       `json:"status,omitempty"` // HTTP status, 0 on transport failure
	Error  string    `json:"error,omitempty"`
	TookMS int64     `json:"took_ms"`
	// Message is the created message resource name from the reply.
	Message string `json:"message,omitempty"`
}
