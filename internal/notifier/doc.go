// Package notifier delivers messages to named webhook bots.
//
// A Message names a bot from the gchat registry and carries text plus an
// optional thread key. Send resolves the bot, waits on the bot's rate
// limiter when throttling is configured, performs exactly one webhook call
// and records the outcome.
//
// # Throttling
//
// Each bot gets its own token bucket (golang.org/x/time/rate) so a chatty
// schedule cannot starve other bots. A RatePerSec of zero disables it.
//
// # History
//
// Every attempt is appended to the optional delivery journal
// (internal/storage) and to a small in-memory ring for quick inspection.
package notifier
