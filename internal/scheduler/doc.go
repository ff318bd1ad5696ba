// Package scheduler posts recurring announcements.
//
// Each Def binds a schedule string to a bot and a message. Schedules are
// cron expressions (robfig/cron, optional seconds field and descriptors),
// Go durations ("30m") or HH:MM intervals ("01:30"). Apply replaces the
// whole set atomically, which is what config hot reload needs.
package scheduler
