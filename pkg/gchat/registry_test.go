package gchat

import (
	"context"
	"reflect"
	"testing"
)

func TestNewRegistryFromConfig(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{Bots: []BotConfig{
		{Name: "a", URL: "http://x"},
		{Name: "b", URL: "http://y", Proxy: &ProxyConfig{Proxy: "p", Port: 8080, User: "u", Password: "pw"}},
	}})

	a, ok := r.Get("a")
	if !ok || a.Proxy() != "" || a.URL() != "http://x" {
		t.Fatalf("bot a = %+v, ok=%v", a, ok)
	}
	b, ok := r.Get("b")
	if !ok || b.Proxy() != "http://u:pw@p:8080" {
		t.Fatalf("bot b proxy = %q, ok=%v", b.Proxy(), ok)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Names = %v", got)
	}
}

func TestRegistryDefaultProxy(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{
		Proxy: &ProxyConfig{Proxy: "d", Port: 3128, User: "du", Password: "dp"},
		Bots: []BotConfig{
			{Name: "plain", URL: "http://x"},
			{Name: "own", URL: "http://y", Proxy: &ProxyConfig{Proxy: "p", Port: 1, User: "u", Password: "pw"}},
		},
	})
	plain, _ := r.Get("plain")
	if plain.Proxy() != "http://du:dp@d:3128" {
		t.Fatalf("default proxy not applied: %q", plain.Proxy())
	}
	own, _ := r.Get("own")
	if own.Proxy() != "http://u:pw@p:1" {
		t.Fatalf("entry proxy should win: %q", own.Proxy())
	}

	r.Register("late", BotConfig{URL: "http://z"})
	late, _ := r.Get("late")
	if late.Proxy() != "http://du:dp@d:3128" {
		t.Fatalf("default proxy not applied to later registration: %q", late.Proxy())
	}
}

func TestRegistryEmpty(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{})
	if r.Len() != 0 || len(r.Names()) != 0 {
		t.Fatalf("empty registry has %v", r.Names())
	}
	if c, ok := r.Get("missing"); ok || c != nil {
		t.Fatal("missing bot should return nil, false")
	}
	calls := 0
	r.ForEach(func(*Client, string) { calls++ })
	if calls != 0 {
		t.Fatalf("ForEach called %d times", calls)
	}
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{Bots: []BotConfig{
		{Name: "a", URL: "http://x"},
		{Name: "b", URL: "http://y"},
	}})
	old, _ := r.Get("a")

	r.Register("a", BotConfig{URL: "http://x2"})
	cur, _ := r.Get("a")
	if cur == old {
		t.Fatal("re-register should install a new client")
	}
	if cur.URL() != "http://x2" {
		t.Fatalf("URL = %q", cur.URL())
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Names = %v, want [a b]", got)
	}
}

func TestRegistryForEachOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{})
	for _, n := range []string{"zeta", "alpha", "mid"} {
		r.Register(n, BotConfig{URL: "http://" + n})
	}

	var names []string
	r.ForEach(func(c *Client, name string) {
		if c.URL() != "http://"+name {
			t.Errorf("client for %s has URL %s", name, c.URL())
		}
		names = append(names, name)
	})
	if !reflect.DeepEqual(names, []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("ForEach order = %v", names)
	}
}

func TestRegistryNamesIsCopy(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{Bots: []BotConfig{{Name: "a", URL: "http://x"}}})
	n := r.Names()
	n[0] = "mutated"
	if r.Names()[0] != "a" {
		t.Fatal("Names must return a fresh slice")
	}
}

func TestRegistryRemoveAndReload(t *testing.T) {
	t.Parallel()
	r := NewRegistry(RegistryConfig{Bots: []BotConfig{
		{Name: "a", URL: "http://a"},
		{Name: "b", URL: "http://b"},
		{Name: "c", URL: "http://c"},
	}})

	if !r.Remove("b") || r.Remove("b") {
		t.Fatal("Remove should report presence once")
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Names after remove = %v", got)
	}

	added, removed := r.Reload(RegistryConfig{
		Proxy: &ProxyConfig{Proxy: "p", Port: 1, User: "u", Password: "pw"},
		Bots: []BotConfig{
			{Name: "c", URL: "http://c2"},
			{Name: "d", URL: "http://d"},
		},
	})
	if added != 1 || removed != 1 {
		t.Fatalf("Reload = (+%d, -%d), want (+1, -1)", added, removed)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Fatalf("Names after reload = %v", got)
	}
	c, _ := r.Get("c")
	if c.URL() != "http://c2" || c.Proxy() != "http://u:pw@p:1" {
		t.Fatalf("reloaded c = %s via %q", c.URL(), c.Proxy())
	}
}

func TestRegistryClientsSend(t *testing.T) {
	t.Parallel()
	hook := newFakeHook(t)
	r := NewRegistry(RegistryConfig{Bots: []BotConfig{{Name: "ops", URL: hook.Server.URL}}})
	c, ok := r.Get("ops")
	if !ok {
		t.Fatal("ops missing")
	}
	if _, err := c.SendText(context.Background(), "deploy done", "deploys"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got := hook.Calls()[0].Query.Get("threadKey"); got != "deploys" {
		t.Fatalf("threadKey = %q", got)
	}
}
