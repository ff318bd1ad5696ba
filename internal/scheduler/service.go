package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gchatbot/internal/notifier"
	"gchatbot/pkg/gchat"
	logx "gchatbot/pkg/logx"
)

const defaultRunTimeout = 30 * time.Second

// Sender is the notifier surface the scheduler needs.
type Sender interface {
	Send(ctx context.Context, m notifier.Message) (*gchat.Reply, error)
}

// Def is one recurring announcement.
type Def struct {
	Name     string
	Bot      string
	Schedule string
	Text     string
	Card     bool
	Thread   string
}

// Entry describes a registered schedule.
type Entry struct {
	Name string
	Bot  string
	Spec string
	Next time.Time
}

type Service struct {
	log     logx.Logger
	send    Sender
	parser  cron.Parser
	timeout time.Duration

	mu     sync.Mutex
	c      *cron.Cron
	loc    *time.Location
	tz     string
	runCtx context.Context
	defs   []Def
	ids    map[string]cron.EntryID
}

func New(send Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:  log,
		send: send,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:  cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timeout: defaultRunTimeout,
		loc:     time.Local,
		ids:     map[string]cron.EntryID{},
	}
}

// Validate checks every def without registering anything.
func (s *Service) Validate(defs []Def) error {
	var errs []error
	for _, d := range defs {
		if _, err := s.parse(d.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) parse(raw string) (string, error) {
	ps, err := ParseSchedule(raw)
	if err != nil {
		return "", err
	}
	spec := ps.CronSpec()
	if _, err := s.parser.Parse(spec); err != nil {
		return "", err
	}
	return spec, nil
}

// Apply replaces all schedules and the timezone (IANA name, empty = local).
// Invalid defs are skipped and reported; the valid ones are still registered.
func (s *Service) Apply(defs []Def, tz string) error {
	tz = strings.TrimSpace(tz)
	loc := time.Local
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs = append([]Def(nil), defs...)
	if tz != s.tz {
		s.tz, s.loc = tz, loc
		if s.c != nil {
			// The location is fixed per cron instance.
			s.restartLocked()
		}
	}
	if s.c == nil {
		return s.Validate(defs)
	}
	return s.registerAllLocked()
}

func (s *Service) restartLocked() {
	old := s.c
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc), cron.WithChain(
		cron.Recover(cronLogger{s.log}),
		cron.SkipIfStillRunning(cronLogger{s.log}),
	))
	s.c.Start()
	if old != nil {
		// Running jobs finish on their own.
		old.Stop()
	}
}

func (s *Service) registerAllLocked() error {
	for name, id := range s.ids {
		s.c.Remove(id)
		delete(s.ids, name)
	}
	var errs []error
	for _, d := range s.defs {
		spec, err := s.parse(d.Schedule)
		if err == nil {
			var id cron.EntryID
			id, err = s.c.AddFunc(spec, s.job(d))
			if err == nil {
				s.ids[d.Name] = id
				s.log.Debug("schedule registered",
					logx.String("name", d.Name), logx.String("bot", d.Bot), logx.String("spec", spec),
					logx.Time("next", s.c.Entry(id).Next))
				continue
			}
		}
		s.log.Error("schedule register failed", logx.String("name", d.Name), logx.String("spec", d.Schedule), logx.Err(err))
		errs = append(errs, fmt.Errorf("schedule %q: %w", d.Name, err))
	}
	return errors.Join(errs...)
}

func (s *Service) job(d Def) func() {
	return func() {
		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		if err := s.fire(ctx, d); err != nil {
			s.log.Warn("scheduled send failed", logx.String("name", d.Name), logx.String("error", gchat.RedactedError(err)))
		}
	}
}

func (s *Service) fire(ctx context.Context, d Def) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.send.Send(ctx, notifier.Message{
		Bot:    d.Bot,
		Text:   d.Text,
		Card:   d.Card,
		Thread: d.Thread,
		Source: "schedule:" + d.Name,
	})
	return err
}

// RunNow fires the named schedule immediately.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var (
		def   Def
		found bool
	)
	for _, d := range s.defs {
		if d.Name == name {
			def, found = d, true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("schedule %q not found", name)
	}
	return s.fire(ctx, def)
}

// Start starts cron triggering. Jobs run with ctx until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.runCtx = ctx
	s.restartLocked()
	err := s.registerAllLocked()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.ids)))
	return err
}

// Stop stops triggering and waits for running jobs until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.ids = map[string]cron.EntryID{}
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

// Entries lists registered schedules in definition order.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.defs))
	for _, d := range s.defs {
		e := Entry{Name: d.Name, Bot: d.Bot, Spec: d.Schedule}
		if id, ok := s.ids[d.Name]; ok && s.c != nil {
			e.Next = s.c.Entry(id).Next
		}
		out = append(out, e)
	}
	return out
}

// NextRuns previews the next n activations of a schedule string after from.
func (s *Service) NextRuns(raw string, from time.Time, n int) ([]time.Time, error) {
	spec, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	sched, _ := s.parser.Parse(spec)
	s.mu.Lock()
	loc := s.loc
	s.mu.Unlock()
	t := from.In(loc)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
