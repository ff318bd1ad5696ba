package config

import (
	"strings"

	"gchatbot/pkg/gchat"
)

// Config is the on-disk configuration (JSON or YAML).
//
// Example (YAML):
//
//	bots:
//	  - name: ops
//	    url: https://chat.googleapis.com/v1/spaces/AAA/messages?key=...&token=...
//	proxy: { proxy: squid.internal, port: 3128, user: bot, password: secret }
//	logging: { level: info, console: true }
//	schedules:
//	  - { name: standup, bot: ops, schedule: "0 9 * * 1-5", text: "Standup in 5" }
type Config struct {
	Bots []gchat.BotConfig `json:"bots"`
	// Proxy is the default proxy for bots without their own.
	Proxy *gchat.ProxyConfig `json:"proxy,omitempty"`

	Logging  LoggingConfig   `json:"logging"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	Schedules []ScheduleConfig `json:"schedules,omitempty"`
	// Timezone for cron schedules (IANA name). Empty means local time.
	Timezone string `json:"timezone,omitempty"`
}

// Registry returns the bot section in the shape gchat.NewRegistry expects.
// Names and URLs are trimmed the same way Validate sees them.
func (c *Config) Registry() gchat.RegistryConfig {
	if c == nil {
		return gchat.RegistryConfig{}
	}
	bots := make([]gchat.BotConfig, 0, len(c.Bots))
	for _, b := range c.Bots {
		b.Name = strings.TrimSpace(b.Name)
		b.URL = strings.TrimSpace(b.URL)
		bots = append(bots, b)
	}
	return gchat.RegistryConfig{Bots: bots, Proxy: c.Proxy}
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChat forwards log lines at or above MinLevel to a bot.
type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	Bot        string `json:"bot"`
	Thread     string `json:"thread,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional delivery journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/deliveries.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifierConfig controls per-bot send throttling. RatePerSec 0 disables it.
type NotifierConfig struct {
	RatePerSec float64 `json:"rate_per_sec"`
	Burst      int     `json:"burst,omitempty"`
}

// ScheduleConfig is one recurring announcement.
//
// Schedule accepts a cron expression ("0 9 * * 1-5", "@hourly"), a Go
// duration ("30m") or HH:MM ("01:30"); see scheduler.ParseSchedule.
type ScheduleConfig struct {
	Name     string `json:"name"`
	Bot      string `json:"bot"`
	Schedule string `json:"schedule"`
	Text     string `json:"text"`
	Card     bool   `json:"card,omitempty"`
	Thread   string `json:"thread,omitempty"`
}
