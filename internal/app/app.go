package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gchatbot/internal/config"
	"gchatbot/internal/notifier"
	"gchatbot/internal/runtime/supervisor"
	"gchatbot/internal/scheduler"
	"gchatbot/internal/storage"
	"gchatbot/pkg/gchat"
	logx "gchatbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	reg *gchat.Registry
	// logBots mirrors reg for the chat log sink. Its clients never log, so a
	// sink post cannot produce another chat line.
	logBots *gchat.Registry
	notif   *notifier.Service
	sched   *scheduler.Service

	logTarget atomic.Pointer[logTarget]
}

// logTarget is the bot and thread the chat log sink posts to.
type logTarget struct {
	bot    string
	thread string
}

// New loads the config and builds every component without starting
// background work. One-shot commands use it directly and call Close.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
	}
	a.setLogTarget(cfg)

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		a.store = st
		a.log.Debug("storage enabled", logx.String("driver", sc.Driver))
	}

	a.reg = gchat.NewRegistry(cfg.Registry(), gchat.WithLogger(log.With(logx.String("comp", "gchat"))))
	a.logBots = gchat.NewRegistry(cfg.Registry(), gchat.WithLogger(logx.Nop()))
	a.notif = notifier.New(mapNotifierConfig(cfg), a.reg, a.store, log.With(logx.String("comp", "notifier")))
	a.sched = scheduler.New(a.notif, log.With(logx.String("comp", "scheduler")))
	if err := a.sched.Apply(mapSchedules(cfg), cfg.Timezone); err != nil {
		a.log.Warn("some schedules are invalid", logx.Err(err))
	}

	// The sink bypasses the notifier and uses the silent logBots clients.
	logSvc.SetSink(func(ctx context.Context, text string) error {
		t := a.logTarget.Load()
		if t == nil || t.bot == "" {
			return nil
		}
		c, ok := a.logBots.Get(t.bot)
		if !ok {
			return fmt.Errorf("log bot %q is not registered", t.bot)
		}
		_, err := c.SendText(ctx, text, t.thread)
		return err
	})

	return a, nil
}

func (a *App) setLogTarget(cfg *config.Config) {
	if cfg == nil || !cfg.Logging.Chat.Enabled {
		a.logTarget.Store(nil)
		return
	}
	a.logTarget.Store(&logTarget{
		bot:    strings.TrimSpace(cfg.Logging.Chat.Bot),
		thread: strings.TrimSpace(cfg.Logging.Chat.Thread),
	})
}

func (a *App) Config() *config.Config        { return a.cfgm.Get() }
func (a *App) Logger() logx.Logger           { return a.log }
func (a *App) Registry() *gchat.Registry     { return a.reg }
func (a *App) Notifier() *notifier.Service   { return a.notif }
func (a *App) Scheduler() *scheduler.Service { return a.sched }
func (a *App) Store() storage.Store          { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the scheduler, the config watcher and the reload loop.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return a.sched.Validate(mapSchedules(cfg))
	})

	if err := a.sched.Start(a.sup.Context()); err != nil {
		a.log.Warn("some schedules failed to register", logx.Err(err))
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.startWatchdog()
	a.notifySystemd(sdReady)
	a.log.Info("app started",
		logx.String("config", a.cfgPath),
		logx.Int("bots", a.reg.Len()),
		logx.Int("schedules", len(a.sched.Entries())),
	)
	return nil
}

// applyConfig pushes a reloaded config into every live component.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	a.notifySystemd(sdReloading)
	defer a.notifySystemd(sdReady)

	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
			break
		}
	}

	// Bots first so the log target and schedules resolve against the new set.
	added, removed := a.reg.Reload(newCfg.Registry())
	a.logBots.Reload(newCfg.Registry())
	a.setLogTarget(newCfg)
	a.logs.Apply(mapLoggingConfig(newCfg))
	a.notif.Apply(mapNotifierConfig(newCfg))
	if err := a.sched.Apply(mapSchedules(newCfg), newCfg.Timezone); err != nil {
		a.log.Warn("some schedules failed to register", logx.Err(err))
	}

	fields := append([]logx.Field{
		logx.String("changed", strings.Join(sections, ",")),
		logx.Int("bots.added", added),
		logx.Int("bots.removed", removed),
	}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in reverse dependency order.
func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return a.Close()
	}
	a.log.Info("stopping")
	a.notifySystemd(sdStopping)
	a.sup.Cancel()

	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.Close()
}

// Close releases the store and the logging service.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

// step runs one shutdown step bounded by max so a stuck component cannot
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
