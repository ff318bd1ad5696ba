package config

import (
	"reflect"
	"strings"

	"gchatbot/pkg/gchat"
	logx "gchatbot/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging. Webhook URLs and proxy passwords
// carry secrets and are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Bots, newCfg.Bots) {
		changed = append(changed, "bots")
		attrs = append(attrs,
			logx.Int("bots.count", len(newCfg.Bots)),
			logx.String("bots.names", strings.Join(botNames(newCfg.Bots), ",")),
		)
	}

	if !reflect.DeepEqual(oldCfg.Proxy, newCfg.Proxy) {
		changed = append(changed, "proxy")
		attrs = append(attrs, logx.Bool("proxy.set", newCfg.Proxy != nil))
		if newCfg.Proxy != nil {
			attrs = append(attrs, logx.String("proxy.host", newCfg.Proxy.Proxy))
		}
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.chat_enabled", newCfg.Logging.Chat.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		// Storage is opened once at startup; a change needs a restart.
		changed = append(changed, "storage")
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
	}

	if !reflect.DeepEqual(oldCfg.Schedules, newCfg.Schedules) ||
		strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, "schedules")
		attrs = append(attrs,
			logx.Int("schedules.count", len(newCfg.Schedules)),
			logx.String("schedules.tz", strings.TrimSpace(newCfg.Timezone)),
		)
	}

	return changed, attrs
}

func botNames(bots []gchat.BotConfig) []string {
	out := make([]string, 0, len(bots))
	for _, b := range bots {
		out = append(out, b.Name)
	}
	return out
}
