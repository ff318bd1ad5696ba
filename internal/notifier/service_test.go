package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gchatbot/internal/storage"
	"gchatbot/pkg/gchat"
	logx "gchatbot/pkg/logx"
)

type hit struct {
	threadKey string
	body      map[string]any
}

type fakeHook struct {
	*httptest.Server
	status int

	mu   sync.Mutex
	hits []hit
}

func newFakeHook(t *testing.T, status int) *fakeHook {
	t.Helper()
	h := &fakeHook{status: status}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(b, &body)
		h.mu.Lock()
		h.hits = append(h.hits, hit{threadKey: r.URL.Query().Get("threadKey"), body: body})
		h.mu.Unlock()
		w.WriteHeader(h.status)
		if h.status == http.StatusOK {
			_, _ = io.WriteString(w, `{"name":"spaces/S/messages/M"}`)
		}
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *fakeHook) calls() []hit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hit(nil), h.hits...)
}

func openJournal(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "journal")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSendText(t *testing.T) {
	t.Parallel()
	hook := newFakeHook(t, http.StatusOK)
	reg := gchat.NewRegistry(gchat.RegistryConfig{Bots: []gchat.BotConfig{{Name: "ops", URL: hook.URL}}})
	st := openJournal(t)
	svc := New(Config{}, reg, st, logx.Nop())

	reply, err := svc.Send(context.Background(), Message{Bot: "ops", Text: "hi", Thread: "T1", Source: "test"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Name() != "spaces/S/messages/M" {
		t.Fatalf("reply name = %q", reply.Name())
	}
	calls := hook.calls()
	if len(calls) != 1 || calls[0].threadKey != "T1" || calls[0].body["text"] != "hi" {
		t.Fatalf("calls = %+v", calls)
	}

	got, err := st.RecentDeliveries(context.Background(), 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("journal = %+v, %v", got, err)
	}
	d := got[0]
	if !d.OK || d.Bot != "ops" || d.Kind != "text" || d.Thread != "T1" || d.Status != 200 || d.Source != "test" || d.Message != "spaces/S/messages/M" {
		t.Fatalf("delivery = %+v", d)
	}
	if h := svc.Snapshot(); len(h) != 1 || !h[0].OK {
		t.Fatalf("history = %+v", h)
	}
}

func TestSendCardResolvesColors(t *testing.T) {
	t.Parallel()
	hook := newFakeHook(t, http.StatusOK)
	reg := gchat.NewRegistry(gchat.RegistryConfig{Bots: []gchat.BotConfig{{Name: "ops", URL: hook.URL}}})
	svc := New(Config{}, reg, nil, logx.Nop())

	if _, err := svc.Send(context.Background(), Message{Bot: "ops", Text: "${RED}down", Card: true}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	calls := hook.calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if calls[0].threadKey == "" {
		t.Fatal("empty thread should get a generated key")
	}
	b, _ := json.Marshal(calls[0].body)
	want := `{"cards":[{"sections":[{"widgets":[{"textParagraph":{"text":"#d81111down"}}]}]}]}`
	if string(b) != want {
		t.Fatalf("body = %s", b)
	}
}

func TestSendUnknownBot(t *testing.T) {
	t.Parallel()
	svc := New(Config{}, gchat.NewRegistry(gchat.RegistryConfig{}), nil, logx.Nop())
	_, err := svc.Send(context.Background(), Message{Bot: "ghost", Text: "x"})
	if !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("err = %v, want ErrUnknownBot", err)
	}
}

func TestSendRejectedIsJournaled(t *testing.T) {
	t.Parallel()
	hook := newFakeHook(t, http.StatusForbidden)
	reg := gchat.NewRegistry(gchat.RegistryConfig{Bots: []gchat.BotConfig{{Name: "ops", URL: hook.URL}}})
	st := openJournal(t)
	svc := New(Config{}, reg, st, logx.Nop())

	_, err := svc.Send(context.Background(), Message{Bot: "ops", Text: "x"})
	var se *gchat.StatusError
	if !errors.As(err, &se) || se.StatusCode() != http.StatusForbidden {
		t.Fatalf("err = %v", err)
	}
	if n := len(hook.calls()); n != 1 {
		t.Fatalf("calls = %d, want exactly one attempt", n)
	}
	got, _ := st.RecentDeliveries(context.Background(), 1)
	if len(got) != 1 || got[0].OK || got[0].Status != http.StatusForbidden || got[0].Error == "" {
		t.Fatalf("delivery = %+v", got)
	}
	if got[0].Thread == "" || got[0].Thread != hook.calls()[0].threadKey {
		t.Fatalf("journaled thread %q, webhook saw %q", got[0].Thread, hook.calls()[0].threadKey)
	}
}

func TestSendTransportErrorHidesWebhookCredentials(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	webhook := srv.URL + "/v1/spaces/AAA/messages?key=secretkey&token=secrettoken"
	srv.Close()

	reg := gchat.NewRegistry(gchat.RegistryConfig{Bots: []gchat.BotConfig{{Name: "ops", URL: webhook}}})
	st := openJournal(t)
	svc := New(Config{}, reg, st, logx.Nop())

	if _, err := svc.Send(context.Background(), Message{Bot: "ops", Text: "x"}); err == nil {
		t.Fatal("expected transport error")
	}
	got, _ := st.RecentDeliveries(context.Background(), 1)
	if len(got) != 1 || got[0].Error == "" || got[0].Thread == "" {
		t.Fatalf("delivery = %+v", got)
	}
	if strings.Contains(got[0].Error, "secret") {
		t.Fatalf("journal error leaks credentials: %s", got[0].Error)
	}
	if h := svc.Snapshot(); len(h) != 1 || strings.Contains(h[0].Error, "secret") {
		t.Fatalf("history = %+v", h)
	}
}

func TestSendThrottledPerBot(t *testing.T) {
	t.Parallel()
	hook := newFakeHook(t, http.StatusOK)
	reg := gchat.NewRegistry(gchat.RegistryConfig{Bots: []gchat.BotConfig{
		{Name: "a", URL: hook.URL},
		{Name: "b", URL: hook.URL},
	}})
	svc := New(Config{RatePerSec: 0.001, Burst: 1}, reg, nil, logx.Nop())

	ctx := context.Background()
	if _, err := svc.Send(ctx, Message{Bot: "a", Text: "1"}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	// Bot b has its own bucket.
	if _, err := svc.Send(ctx, Message{Bot: "b", Text: "1"}); err != nil {
		t.Fatalf("other bot send: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := svc.Send(short, Message{Bot: "a", Text: "2"}); err == nil {
		t.Fatal("second send on an exhausted bucket should fail with the context")
	}
	if n := len(hook.calls()); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}

	svc.Apply(Config{})
	if _, err := svc.Send(ctx, Message{Bot: "a", Text: "3"}); err != nil {
		t.Fatalf("send after disabling throttle: %v", err)
	}
}
