package notifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gchatbot/internal/storage"
	"gchatbot/pkg/gchat"
	logx "gchatbot/pkg/logx"
)

const historyMax = 300

// Service sends messages through a gchat.Registry.
//
// It is safe for concurrent use.
type Service struct {
	reg   *gchat.Registry
	store storage.Store
	log   logx.Logger

	mu       sync.Mutex
	cfg      Config
	limiters map[string]*rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

// New returns a Service. store may be nil (journal disabled).
func New(cfg Config, reg *gchat.Registry, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{reg: reg, store: store, log: log}
	s.Apply(cfg)
	return s
}

// Apply replaces the throttling config. Existing buckets are dropped.
func (s *Service) Apply(cfg Config) {
	if cfg.RatePerSec < 0 {
		cfg.RatePerSec = 0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(math.Ceil(cfg.RatePerSec)))
	}
	s.mu.Lock()
	s.cfg = cfg
	s.limiters = map[string]*rate.Limiter{}
	s.mu.Unlock()
}

func (s *Service) limiter(bot string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.RatePerSec <= 0 {
		return nil
	}
	l := s.limiters[bot]
	if l == nil {
		l = rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.Burst)
		s.limiters[bot] = l
	}
	return l
}

// Send delivers m with a single webhook call. It returns ErrUnknownBot
// (wrapped) when m.Bot is not registered.
func (s *Service) Send(ctx context.Context, m Message) (*gchat.Reply, error) {
	name := strings.TrimSpace(m.Bot)
	c, ok := s.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBot, name)
	}
	if l := s.limiter(name); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// Pick the key here so a failed send is journaled with the thread it targeted.
	thread := m.Thread
	if thread == "" {
		thread = gchat.NewThreadKey()
	}

	start := time.Now()
	var (
		reply *gchat.Reply
		err   error
	)
	if m.Card {
		reply, err = c.SendCard(ctx, m.Text, thread)
	} else {
		reply, err = c.SendText(ctx, m.Text, thread)
	}
	took := time.Since(start)

	d := storage.Delivery{
		At:     start,
		Bot:    name,
		Thread: thread,
		Kind:   m.kind(),
		Source: m.Source,
		OK:     err == nil,
		TookMS: took.Milliseconds(),
	}
	if reply != nil {
		d.Status = reply.StatusCode
		d.Message = reply.Name()
	}
	var se *gchat.StatusError
	if errors.As(err, &se) {
		d.Status = se.StatusCode()
	}
	if err != nil {
		d.Error = gchat.RedactedError(err)
		s.log.Warn("send failed", logx.String("bot", name), logx.String("source", m.Source), logx.String("thread", thread), logx.Int("status", d.Status), logx.Duration("took", took), logx.String("error", d.Error))
	} else {
		s.log.Info("message sent", logx.String("bot", name), logx.String("source", m.Source), logx.String("thread", d.Thread), logx.Duration("took", took))
	}

	s.record(ctx, d)
	return reply, err
}

func (s *Service) record(ctx context.Context, d storage.Delivery) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: d.At, Bot: d.Bot, Kind: d.Kind, Source: d.Source, OK: d.OK, Error: d.Error})
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()

	if s.store == nil {
		return
	}
	// The journal is best effort and must outlive a canceled send.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.AppendDelivery(wctx, d); err != nil {
		s.log.Warn("delivery journal write failed", logx.String("bot", d.Bot), logx.Err(err))
	}
}

// Snapshot returns the in-memory history, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}
