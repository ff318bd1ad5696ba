package notifier

import (
	"errors"
	"time"
)

var ErrUnknownBot = errors.New("unknown bot")

// Config controls per-bot send throttling.
type Config struct {
	RatePerSec float64 // 0 disables throttling
	Burst      int     // defaults to max(1, ceil(RatePerSec))
}

// Message is one outgoing chat message.
type Message struct {
	Bot  string
	Text string
	// Card sends Text as a card; color tokens are resolved first.
	Card bool
	// Thread groups replies; empty starts a new thread.
	Thread string
	// Source identifies the caller in the journal, e.g. "cli" or "schedule:standup".
	Source string
}

func (m Message) kind() string {
	if m.Card {
		return "card"
	}
	return "text"
}

type HistoryItem struct {
	At     time.Time
	Bot    string
	Kind   string
	Source string
	OK     bool
	Error  string
}
