package gchat

import "regexp"

// palette maps color symbols usable as ${NAME} tokens in card text.
var palette = map[string]string{
	"RED":     "#d81111",
	"GREEN":   "#0f9d58",
	"MAGENTA": "#c2185b",
	"YELLOW":  "#f4b400",
	"BLUE":    "#4285f4",
	"CYAN":    "#00acc1",
	"GREY":    "#9e9e9e",
}

var reColorToken = regexp.MustCompile(`\$\{([^{}]*)\}`)

// Colors returns a copy of the color palette.
func (c *Client) Colors() map[string]string {
	out := make(map[string]string, len(palette))
	for k, v := range palette {
		out[k] = v
	}
	return out
}

// ResolveColorTokens replaces every ${NAME} token naming a palette color with
// its hex value. Other tokens are left as-is.
func (c *Client) ResolveColorTokens(text string) string {
	return ResolveColorTokens(text)
}

// ResolveColorTokens is the package-level form of Client.ResolveColorTokens.
func ResolveColorTokens(text string) string {
	return reColorToken.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok[2 : len(tok)-1]
		if hex, ok := palette[name]; ok {
			return hex
		}
		return tok
	})
}
