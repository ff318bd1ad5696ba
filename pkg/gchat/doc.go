// Package gchat posts messages to chat-room incoming webhooks.
//
// A [Client] targets one webhook URL and sends either plain text
// ({"text": ...}) or a single-paragraph card. Every send is one HTTP POST
// with the thread key passed as the threadKey query parameter; when no
// thread is given a random v4 UUID is used, so unrelated messages open
// their own threads.
//
// Delivery is single-shot: a 200 response is a success, anything else is
// returned to the caller ([*StatusError] for non-200 responses, the
// transport error otherwise). There are no retries.
//
// A [Registry] manages named clients built from configuration, applying a
// default proxy to bots that don't set their own.
//
// # Color tokens
//
// Card text may contain ${NAME} tokens for RED, GREEN, MAGENTA, YELLOW,
// BLUE, CYAN and GREY, e.g. `<font color="${RED}">down</font>`. They are
// replaced with hex codes before sending; unknown tokens are kept.
package gchat
