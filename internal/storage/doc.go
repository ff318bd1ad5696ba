// Package storage keeps an optional journal of webhook deliveries.
//
// Each send performed through the notifier appends one Delivery record,
// success or failure. The journal is write-mostly; RecentDeliveries exists
// for the CLI's history command and for tests.
//
// Drivers:
//   - "file": JSON Lines file, no extra dependencies
//   - "sqlite": SQLite database (modernc.org/sqlite, pure Go)
package storage
