// Package scheduler runs recurring invocations ("timed jobs").
//
// A registration is keyed by a job type and a JSON argument, for example
// ("archive", {"tag": 12}), and is persisted through a JobList so it
// survives restarts. A cron tick (default "@every 5m") runs every
// registration whose interval has elapsed since its last run. Runs are
// sequential within a tick, and a registration is reserved while it runs so
// the same key never runs twice at once.
//
// Jobs that are not time sensitive only run inside the maintenance window
// when one is configured.
package scheduler
