package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks cross-references and required fields. Proxy fields are
// deliberately not checked: an incomplete proxy fails at send time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error

	bots := make(map[string]struct{}, len(c.Bots))
	for i, b := range c.Bots {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("bots[%d]: name is required", i))
			continue
		}
		// The registry would silently replace the earlier entry.
		if _, dup := bots[name]; dup {
			errs = append(errs, fmt.Errorf("bots[%d]: duplicate name %q", i, name))
		}
		bots[name] = struct{}{}
		if strings.TrimSpace(b.URL) == "" {
			errs = append(errs, fmt.Errorf("bots[%d] (%s): url is required", i, name))
		}
	}

	if lc := c.Logging.Chat; lc.Enabled {
		if _, ok := bots[strings.TrimSpace(lc.Bot)]; !ok {
			errs = append(errs, fmt.Errorf("logging.chat.bot: unknown bot %q", lc.Bot))
		}
	}

	if st := c.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	if n := c.Notifier; n != nil && n.RatePerSec < 0 {
		errs = append(errs, errors.New("notifier.rate_per_sec must be >= 0"))
	}

	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	}

	names := make(map[string]struct{}, len(c.Schedules))
	for i, s := range c.Schedules {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("schedules[%d]: name is required", i))
		} else if _, dup := names[name]; dup {
			errs = append(errs, fmt.Errorf("schedules[%d]: duplicate name %q", i, name))
		}
		names[name] = struct{}{}
		if _, ok := bots[strings.TrimSpace(s.Bot)]; !ok {
			errs = append(errs, fmt.Errorf("schedules[%d] (%s): unknown bot %q", i, name, s.Bot))
		}
		if strings.TrimSpace(s.Schedule) == "" {
			errs = append(errs, fmt.Errorf("schedules[%d] (%s): schedule is required", i, name))
		}
		if strings.TrimSpace(s.Text) == "" {
			errs = append(errs, fmt.Errorf("schedules[%d] (%s): text is required", i, name))
		}
	}

	return errors.Join(errs...)
}
