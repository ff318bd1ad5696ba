package gchat

import "testing"

func TestResolveColorTokensKnown(t *testing.T) {
	t.Parallel()
	c := New("http://x")
	for name, hex := range c.Colors() {
		if got := c.ResolveColorTokens("${" + name + "}"); got != hex {
			t.Fatalf("ResolveColorTokens(${%s}) = %q, want %q", name, got, hex)
		}
	}
	if got := c.Colors()["RED"]; got != "#d81111" {
		t.Fatalf("RED = %q, want #d81111", got)
	}
}

func TestResolveColorTokensVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "unknown", in: "${PURPLE}", want: "${PURPLE}"},
		{name: "lowercase is unknown", in: "${red}", want: "${red}"},
		{name: "empty name", in: "${}", want: "${}"},
		{name: "no tokens", in: "plain <b>text</b> $ {RED}", want: "plain <b>text</b> $ {RED}"},
		{name: "empty", in: "", want: ""},
		{name: "repeated", in: "${RED}a${RED}b${RED}", want: "#d81111a#d81111b#d81111"},
		{name: "mixed", in: `<font color="${GREEN}">ok</font> ${X} ${GREY}`, want: `<font color="#0f9d58">ok</font> ${X} #9e9e9e`},
		{name: "unterminated", in: "${RED", want: "${RED"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveColorTokens(tt.in); got != tt.want {
				t.Fatalf("ResolveColorTokens(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorsReturnsCopy(t *testing.T) {
	t.Parallel()
	a := New("http://a")
	m := a.Colors()
	m["RED"] = "#000000"
	delete(m, "BLUE")
	b := New("http://b")
	if b.Colors()["RED"] != "#d81111" || a.Colors()["BLUE"] == "" {
		t.Fatal("palette must not be mutable through Colors()")
	}
	if len(b.Colors()) != 7 {
		t.Fatalf("palette size = %d, want 7", len(b.Colors()))
	}
}
