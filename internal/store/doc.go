// Package store provides the SQLite journal of committed transactions.
//
// Every transaction the controller finalizes is appended with its forward operations, the operations that
// undo it, a content hash of the forward operations and the digest of the
// grid right after it committed.
//
// # Critical Patterns
//
// Logical Time
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Replay applies entries in ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Idempotent Writes
//   - INSERT ... ON CONFLICT DO NOTHING; WriteTransaction reports whether
//     the row was new
//
// Canonical Payloads
//   - Operation lists are stored as canonical JSON so equal lists are
//     byte-identical
//
// Versioning
//   - journal_meta records the operations and engine versions that created
//     the journal; Open refuses a journal with another operations version
//   - Each row repeats its operations version and reads refuse a mismatch
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - Pragmas are set per connection through DSN parameters
//   - Schema version tracked in PRAGMA user_version
package store
