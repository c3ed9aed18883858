// Package store provides the SQLite-backed dispatch journal.
//
// The journal is append-only: one row per dispatch, written after the
// dispatch reaches a terminal state. It never participates in the
// dispatch itself, and a write failure here cannot change a result.
//
// # Ordering
//
//   - seq is an autoincrement key assigned on insert
//   - All listings use ORDER BY seq, so history reads back in dispatch order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
