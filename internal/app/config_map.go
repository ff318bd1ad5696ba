package app

import (
	"fmt"
	"strings"
	"time"

	"gchatbot/internal/config"
	"gchatbot/internal/notifier"
	"gchatbot/internal/scheduler"
	"gchatbot/internal/storage"
	logx "gchatbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Console: true}
	}
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    l.Chat.Enabled && strings.TrimSpace(l.Chat.Bot) != "",
			MinLevel:   l.Chat.MinLevel,
			RatePerSec: l.Chat.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	if cfg == nil || cfg.Notifier == nil {
		return notifier.Config{}
	}
	return notifier.Config{RatePerSec: cfg.Notifier.RatePerSec, Burst: cfg.Notifier.Burst}
}

func mapSchedules(cfg *config.Config) []scheduler.Def {
	if cfg == nil {
		return nil
	}
	out := make([]scheduler.Def, 0, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		out = append(out, scheduler.Def{
			Name:     strings.TrimSpace(s.Name),
			Bot:      strings.TrimSpace(s.Bot),
			Schedule: s.Schedule,
			Text:     s.Text,
			Card:     s.Card,
			Thread:   s.Thread,
		})
	}
	return out
}
