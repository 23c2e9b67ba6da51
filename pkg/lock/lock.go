// Package lock provides advisory locks that serialize playbook runs on one host.
//
// A lock is keyed by the playbook path and materialized as "<path>.lock". The
// locks are cooperative: they only exclude other callers of this package.
package lock

// Suffix is appended to a key to name its lock file.
const Suffix = ".lock"

// Manager acquires and releases named advisory locks.
type Manager interface {
	// Acquire claims the lock for key without blocking. It returns false when
	// the lock is held by anyone, including the caller, or cannot be taken.
	Acquire(key string) bool

	// Release gives up the lock for key. It is a no-op when the lock is not held.
	Release(key string)
}

// Path returns the lock file path for key.
func Path(key string) string {
	return key + Suffix
}
