package gchat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Text is a plain-text message body.
type Text struct {
	Text string `json:"text"`
}

// Card is a card message body: cards -> sections -> widgets.
type Card struct {
	Cards []CardItem `json:"cards"`
}

type CardItem struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	Widgets []Widget `json:"widgets"`
}

type Widget struct {
	TextParagraph *TextParagraph `json:"textParagraph,omitempty"`
}

type TextParagraph struct {
	Text string `json:"text"`
}

// NewCard wraps text in a single-section, single-widget card.
func NewCard(text string) Card {
	return Card{Cards: []CardItem{{
		Sections: []Section{{
			Widgets: []Widget{{TextParagraph: &TextParagraph{Text: text}}},
		}},
	}}}
}

// Reply is the result of a successful send.
type Reply struct {
	StatusCode int
	// Thread is the thread key the message was posted with.
	Thread string
	// Raw is the response body as received.
	Raw []byte
	// Body is Raw decoded as a JSON object; nil when empty or not an object.
	Body map[string]any
}

func newReply(status int, thread string, raw []byte) *Reply {
	r := &Reply{StatusCode: status, Thread: thread, Raw: raw}
	if len(bytes.TrimSpace(raw)) > 0 {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			r.Body = m
		}
	}
	return r
}

// Name returns the created message resource name, if the server sent one.
func (r *Reply) Name() string {
	if r == nil {
		return ""
	}
	s, _ := r.Body["name"].(string)
	return s
}

// ThreadName returns the server-side thread resource name, if present.
func (r *Reply) ThreadName() string {
	if r == nil {
		return ""
	}
	th, _ := r.Body["thread"].(map[string]any)
	s, _ := th["name"].(string)
	return s
}

// StatusError reports a non-200 response. Response.Body is already drained;
// its content is in Body.
type StatusError struct {
	Response *http.Response
	Body     []byte
}

func (e *StatusError) Error() string {
	status := "<nil response>"
	if e.Response != nil {
		status = e.Response.Status
	}
	b := bytes.TrimSpace(e.Body)
	if len(b) > 200 {
		b = append(b[:197:197], "..."...)
	}
	if len(b) == 0 {
		return fmt.Sprintf("gchat: unexpected status %s", status)
	}
	return fmt.Sprintf("gchat: unexpected status %s: %s", status, b)
}

// StatusCode returns the HTTP status, or 0 without a response.
func (e *StatusError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}
