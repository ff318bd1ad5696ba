package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunUsage(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	if err := run(nil, &out); err == nil {
		t.Fatal("no command should fail")
	}
	if err := run([]string{"bogus"}, &out); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("unknown command err = %v", err)
	}
	out.Reset()
	if err := run([]string{"help"}, &out); err != nil || !strings.Contains(out.String(), "usage:") {
		t.Fatalf("help = %q, %v", out.String(), err)
	}
}

func TestSendListHistory(t *testing.T) {
	t.Parallel()
	bodies := make(chan string, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		bodies <- b.String()
		_, _ = w.Write([]byte(`{"name":"spaces/S/messages/M"}`))
	}))
	defer hook.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
bots:
  - { name: ops, url: %q }
  - { name: edge, url: %q, proxy: { proxy: p, port: 1, user: u, password: pw } }
logging: { level: error }
storage: { driver: file, path: %q }
schedules:
  - { name: standup, bot: ops, schedule: "0 9 * * 1-5", text: hi }
`, hook.URL, hook.URL, filepath.Join(dir, "journal"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run([]string{"send", "-config", cfgPath}, &out); err == nil {
		t.Fatal("send without -bot should fail")
	}
	if err := run([]string{"send", "-config", cfgPath, "-bot", "ops", "hello", "world"}, &out); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := <-bodies; got != `{"text":"hello world"}` {
		t.Fatalf("body = %q", got)
	}
	if !strings.Contains(out.String(), "spaces/S/messages/M") {
		t.Fatalf("out = %q", out.String())
	}

	out.Reset()
	if err := run([]string{"list", "-config", cfgPath}, &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	list := out.String()
	if strings.Index(list, "ops") > strings.Index(list, "edge") || !strings.Contains(list, "standup") || strings.Contains(list, "pw") {
		t.Fatalf("list = %q", list)
	}

	out.Reset()
	if err := run([]string{"history", "-config", cfgPath, "-n", "5"}, &out); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "cli") || !strings.Contains(out.String(), "ok") {
		t.Fatalf("history = %q", out.String())
	}
}
