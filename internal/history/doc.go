// Package history persists finished render runs in SQLite so the daemon can
// list recent runs after restarts.
//
// The store follows the same conventions as the rest of the state files: WAL
// journaling, a busy timeout, retries on SQLITE_BUSY, and an embedded schema
// guarded by a version row. A schema change requires deleting history.db.
package history
