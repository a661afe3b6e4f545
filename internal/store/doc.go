// Package store persists scheduled actions, recurrence rules, and the global
// flow template in SQLite.
//
// The Store manages database connections, schema migrations, and the CRUD
// operations the scheduler, recurrence engine, and reconciler coordinate
// through. Timestamps are stored as RFC3339 strings in UTC; day-of-week sets
// are packed into comma-separated integer lists.
//
// The database is the authoritative local record of pending work. Timers are
// re-armed from it on daemon start, so every mutation that changes when an
// action fires must go through this package.
package store
