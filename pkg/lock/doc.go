// Package lock provides the write lock that serializes deploy runs.
//
// The lock is an advisory lock on a file inside the cache directory. It is
// taken once per run and held for the whole traversal and purge phase. A
// second run against the same directory fails immediately with a
// LOCK_HELD error instead of waiting.
package lock
